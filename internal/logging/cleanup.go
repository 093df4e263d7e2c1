package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"gorm.io/gorm"
)

// PurgeOlderThan deletes system_logs recorded before cutoff.
func PurgeOlderThan(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// StartCleanup purges system_logs past the retention window once a day until
// done is closed. The returned channel is closed when the goroutine exits.
func StartCleanup(db *gorm.DB, retentionDays int, done <-chan struct{}) <-chan struct{} {
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := PurgeOlderThan(db, time.Now().AddDate(0, 0, -retentionDays))
				if err != nil {
					slog.Warn("log cleanup failed", "error", err)
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
	return exited
}
