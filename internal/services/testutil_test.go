package services

import (
	"database/sql"
	"testing"

	"github.com/ragpanel/ragpanel-be/internal/database"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory sqlite database with the full schema applied.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
