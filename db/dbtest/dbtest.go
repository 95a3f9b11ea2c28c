// Package dbtest hands out throwaway databases for tests
package dbtest

import (
	"bitwise74/reel-api/db"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a private in-memory sqlite database with every table
// migrated. Each test gets its own database so rows are never shared.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database, %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle, %v", err)
	}

	// sqlite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database, %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })

	return conn
}
