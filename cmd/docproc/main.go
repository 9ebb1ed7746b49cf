// docproc runs the extraction pipeline over one local file and prints the
// stored result. It uses the sqlite store, so no services are needed.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"certidocs-backend/internal/common"
	"certidocs-backend/internal/documents"
	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/engine/fallback"
	"certidocs-backend/internal/engine/gemini"
	"certidocs-backend/internal/pipeline"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/textsource"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: docproc <file> [user_id]")
		os.Exit(2)
	}
	path := os.Args[1]
	userID := uuid.New()
	if len(os.Args) >= 3 {
		parsed, err := uuid.Parse(os.Args[2])
		if err != nil {
			logger.Error("invalid user_id", "arg", os.Args[2], "error", err)
			os.Exit(2)
		}
		userID = parsed
	}

	cfg := common.LoadConfig()
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "./certidocs.db"
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read file", "path", path, "error", err)
		os.Exit(1)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Error("failed to open sqlite", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := repository.NewSQLiteStore(db, logger)

	det := fallback.New(logger, cfg.Pipeline.SMMLVReference)
	chain := []engine.Engine{det}
	if cfg.Pipeline.PreferredEngine == common.EngineGemini && cfg.Gemini.APIKey != "" {
		client := gemini.NewClient(gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Models:  cfg.Gemini.Models,
			Timeout: cfg.Gemini.Timeout,
		}, logger)
		chain = []engine.Engine{gemini.NewExtractor(client, logger, cfg.Pipeline.SMMLVReference), det}
	}
	processor := pipeline.NewProcessor(logger, textsource.NewSimulated(), chain...)
	svc := documents.NewService(logger, store, processor, "", cfg.Pipeline.ProcessTimeout)

	doc, err := svc.Upload(ctx, documents.UploadInput{
		UserID:   userID,
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Content:  content,
	})
	if err != nil {
		logger.Error("upload failed", "error", err)
		os.Exit(1)
	}
	svc.Wait()

	res, err := svc.Get(ctx, userID, doc.ID)
	if err != nil {
		logger.Error("failed to load result", "document_id", doc.ID, "error", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	os.Stdout.Write(append(out, '\n'))
}
