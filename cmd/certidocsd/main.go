package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certidocs-backend/internal/common"
	"certidocs-backend/internal/documents"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/engine/fallback"
	"certidocs-backend/internal/engine/gemini"
	"certidocs-backend/internal/export"
	"certidocs-backend/internal/pipeline"
	"certidocs-backend/internal/preferences"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/server"
	"certidocs-backend/internal/templates"
	"certidocs-backend/internal/textsource"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	chain := buildEngineChain(cfg, logger)
	processor := pipeline.NewProcessor(logger, textsource.NewSimulated(), chain...)

	tplSvc := templates.NewService(logger, store.Templates)
	prefSvc := preferences.NewService(logger, store.Preferences, tplSvc)
	docSvc := documents.NewService(logger, store, processor, cfg.Server.UploadDir, cfg.Pipeline.ProcessTimeout)
	expSvc := export.NewService(store.Documents, store.Processing, logger)

	router := server.NewEngine(logger, server.Services{
		Documents:   docSvc,
		Preferences: prefSvc,
		Templates:   tplSvc,
		Export:      expSvc,
	})

	srv := &http.Server{
		Addr:           server.Addr(cfg.Server.Addr),
		Handler:        router,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("server.listening", "addr", srv.Addr, "engine_chain", chainNames(chain))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	docSvc.Wait()
	logger.Info("server.stopped")
}

// openStore selects Postgres when DB_URL is set, sqlite otherwise. The
// Postgres schema is migrated before the pool opens.
func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.Store, func(), error) {
	if cfg.Database.DSN != "" {
		if err := repository.MigratePostgres(ctx, cfg.Database.DSN, logger); err != nil {
			return nil, nil, err
		}
		pool, err := repository.OpenPool(ctx, repository.PoolConfig{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool, logger), pool.Close, nil
	}

	db, err := repository.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewSQLiteStore(db, logger), func() { _ = db.Close() }, nil
}

// buildEngineChain orders engines by preference. The deterministic engine is
// always present and always last.
func buildEngineChain(cfg *common.Config, logger *slog.Logger) []engine.Engine {
	det := fallback.New(logger, cfg.Pipeline.SMMLVReference)
	if cfg.Pipeline.PreferredEngine != common.EngineGemini {
		return []engine.Engine{det}
	}
	client := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Models:  cfg.Gemini.Models,
		Timeout: cfg.Gemini.Timeout,
	}, logger)
	return []engine.Engine{
		gemini.NewExtractor(client, logger, cfg.Pipeline.SMMLVReference),
		det,
	}
}

func chainNames(chain []engine.Engine) []string {
	names := make([]string, len(chain))
	for i, eng := range chain {
		names[i] = eng.Name()
	}
	return names
}
