package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a JSON logger on stdout as the default.
func Setup() {
	slog.SetDefault(slog.New(NewJSONHandler(os.Stdout)))
}

// WithDatabase makes the default logger also persist ERROR+ records through pg.
func WithDatabase(pg *PGHandler) {
	slog.SetDefault(slog.New(NewMultiHandler(NewJSONHandler(os.Stdout), pg)))
}

func NewJSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
}
