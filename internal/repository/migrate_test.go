package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The daemon bootstraps a fresh Postgres database from the embedded
// migrations, so every table the repositories query has to be created there.
func TestMigrationsCoverAllTables(t *testing.T) {
	data, err := migrationFiles.ReadFile("migrations/00001_init.sql")
	require.NoError(t, err)
	sqlText := string(data)

	require.Contains(t, sqlText, "-- +goose Up")
	require.Contains(t, sqlText, "-- +goose Down")

	for _, table := range []string{
		"documents",
		"document_processing",
		"user_preferences",
		"extraction_templates",
	} {
		assert.Contains(t, sqlText, "CREATE TABLE IF NOT EXISTS "+table, "missing table %s", table)
		assert.Contains(t, sqlText, "DROP TABLE IF EXISTS "+table, "missing rollback for %s", table)
	}

	// Statements before the Down marker must all be in the Up section.
	up := sqlText[:strings.Index(sqlText, "-- +goose Down")]
	assert.Contains(t, up, "ON DELETE CASCADE")
	assert.Contains(t, up, "user_id       UUID NOT NULL UNIQUE")
}
