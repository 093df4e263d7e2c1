package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the pool described by cfg.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return Open(cfg.DSN())
}

// Open connects to dsn. Driver errors are translated so unique and foreign
// key violations surface as gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return db, nil
}

// Migrate creates or updates the schema, including the full-text index
// that backs item search.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.ItemFavorite{},
		&models.SystemLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmt := "CREATE INDEX IF NOT EXISTS idx_items_search ON items USING GIN (" + models.ItemSearchVector + ")"
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create search index: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
