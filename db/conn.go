// Package db opens the gorm connection used by every store in the app
package db

import (
	"bitwise74/reel-api/internal/model"
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the database selected by driver and migrates every table.
func New(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if err := checkMounted(dsn); err != nil {
			return nil, err
		}

		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}

// checkMounted refuses to create a fresh sqlite file inside a container,
// where it would vanish with the container. The host mounts it instead.
func checkMounted(dsn string) error {
	if _, err := os.Stat("/.dockerenv"); err != nil {
		return nil
	}

	if _, err := os.Stat(dsn); os.IsNotExist(err) {
		return fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
	}

	return nil
}
