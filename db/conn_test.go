package db

import (
	"bitwise74/reel-api/internal/model"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reel.db")
	require.NoError(t, os.WriteFile(dsn, nil, 0o600))

	conn, err := New("sqlite", dsn)
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	for _, m := range model.All() {
		assert.True(t, conn.Migrator().HasTable(m))
	}

	assert.NoError(t, checkMounted(dsn))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New("mysql", "whatever")
	assert.Error(t, err)
}
