package repository

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"

	"certidocs-backend/internal/common"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigratePostgres applies the embedded schema migrations via goose. It opens
// a short-lived database/sql handle of its own because goose does not speak
// the pgx pool interface.
func MigratePostgres(ctx context.Context, dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return common.WrapError(err, "open migration connection")
	}
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return common.WrapError(err, "set migration dialect")
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return common.WrapError(err, "apply migrations")
	}
	logger.Info("database.migrated")
	return nil
}
