package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	pgBatchSize     = 50
	pgFlushInterval = 5 * time.Second
)

// PGHandler is an slog.Handler that batches ERROR+ records into system_logs.
// Handlers derived through WithAttrs share one buffer and flush loop.
type PGHandler struct {
	sink  *pgSink
	attrs []slog.Attr
}

type pgSink struct {
	db       *gorm.DB
	mu       sync.Mutex
	buffer   []models.SystemLog
	flushes  sync.WaitGroup
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	return newPGHandler(db, pgFlushInterval)
}

func newPGHandler(db *gorm.DB, interval time.Duration) *PGHandler {
	s := &pgSink{
		db:      db,
		buffer:  make([]models.SystemLog, 0, pgBatchSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop(interval)
	return &PGHandler{sink: s}
}

func (s *pgSink) loop(interval time.Duration) {
	defer close(s.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *pgSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, pgBatchSize)
	s.mu.Unlock()

	// Logged below ERROR so the failure does not loop back into this handler.
	if err := s.db.CreateInBatches(batch, pgBatchSize).Error; err != nil {
		slog.Warn("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered and waits for the flush goroutines to exit.
func (h *PGHandler) Stop() {
	s := h.sink
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
	s.flushes.Wait()
}

func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	apply := func(a slog.Attr) bool {
		setField(&entry, extra, a)
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	s := h.sink
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	full := len(s.buffer) >= pgBatchSize
	s.mu.Unlock()

	if full {
		s.flushes.Add(1)
		go func() {
			defer s.flushes.Done()
			s.flush()
		}()
	}
	return nil
}

// setField routes the well-known keys to columns and everything else to Extra.
func setField(entry *models.SystemLog, extra map[string]any, a slog.Attr) {
	switch a.Key {
	case "request_id":
		entry.RequestID = a.Value.String()
	case "user_id":
		s := a.Value.String()
		entry.UserID = &s
	case "item_id":
		s := a.Value.String()
		entry.ItemID = &s
	case "action":
		entry.Action = a.Value.String()
	case "error":
		entry.Error = a.Value.String()
	default:
		extra[a.Key] = a.Value.Resolve().Any()
	}
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PGHandler{sink: h.sink, attrs: merged}
}

// WithGroup is a no-op; persisted records are flat.
func (h *PGHandler) WithGroup(string) slog.Handler {
	return h
}
