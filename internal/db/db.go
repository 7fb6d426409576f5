package db

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/storeforge/catsync/internal/config"
	"github.com/storeforge/catsync/pkg/database"
	"github.com/storeforge/catsync/pkg/models"
)

// NewDB returns a connected, auto-migrated database handle.
func NewDB(cfg *config.Database, log hclog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		DBName:          cfg.DBName,
		SSLMode:         cfg.SSLMode,
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}, log)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(models.ModelsToAutoMigrate()...); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return db, nil
}
