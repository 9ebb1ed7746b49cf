package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/entity"
)

// PoolConfig mirrors the database section of the application config.
type PoolConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OpenPool creates and pings a pgx pool.
func OpenPool(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "certidocs"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		logger.Error("database ping failed", "error", err)
		return nil, err
	}
	return pool, nil
}

// NewPostgresStore builds the repository set over one pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		Documents:   &pgDocumentRepo{pool: pool, logger: logger},
		Processing:  &pgProcessingRepo{pool: pool, logger: logger},
		Preferences: &pgPreferencesRepo{pool: pool, logger: logger},
		Templates:   &pgTemplateRepo{pool: pool, logger: logger},
	}
}

type pgDocumentRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (r *pgDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, user_id, filename, file_url, file_size, file_type, document_type, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.UserID, doc.Filename, doc.FileURL, doc.FileSize, doc.FileType,
		string(doc.DocumentType), string(doc.Status), doc.UploadedAt,
	)
	if err != nil {
		r.logger.Error("failed to create document", "document_id", doc.ID, "error", err)
		return common.WrapError(err, "create document")
	}
	return nil
}

func (r *pgDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, filename, file_url, file_size, file_type, document_type, status, uploaded_at, processed_at
		FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (r *pgDocumentRepo) List(ctx context.Context, userID uuid.UUID, filter DocumentFilter) ([]*entity.Document, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	if t := strings.ToUpper(strings.TrimSpace(filter.Type)); t != "" && t != "ALL" {
		args = append(args, t)
		where = append(where, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if s := strings.ToUpper(strings.TrimSpace(filter.Status)); s != "" && s != "ALL" {
		args = append(args, s)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("filename ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM documents WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, common.WrapError(err, "count documents")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, filename, file_url, file_size, file_type, document_type, status, uploaded_at, processed_at
		FROM documents WHERE %s ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, rows.Err()
}

func (r *pgDocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocStatus, documentType constants.DocumentType, processedAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2,
		    document_type = COALESCE(NULLIF($3, ''), document_type),
		    processed_at = COALESCE($4, processed_at)
		WHERE id = $1`,
		id, string(status), string(documentType), processedAt,
	)
	if err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "status", status, "error", err)
		return common.WrapError(err, "update document status")
	}
	return nil
}

func (r *pgDocumentRepo) Metrics(ctx context.Context, userID uuid.UUID) (*DocumentMetrics, error) {
	m := &DocumentMetrics{
		ByStatus: make(map[constants.DocStatus]int),
		ByType:   make(map[constants.DocumentType]int),
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, document_type, count(*) FROM documents
		WHERE user_id = $1 GROUP BY status, document_type`, userID)
	if err != nil {
		return nil, common.WrapError(err, "document metrics")
	}
	defer rows.Close()
	for rows.Next() {
		var status, dt string
		var n int
		if err := rows.Scan(&status, &dt, &n); err != nil {
			return nil, err
		}
		m.Total += n
		m.ByStatus[constants.DocStatus(status)] += n
		m.ByType[constants.DocumentType(dt)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(avg(p.confidence), 0)
		FROM document_processing p
		JOIN documents d ON d.id = p.document_id
		WHERE d.user_id = $1 AND p.confidence IS NOT NULL`, userID).Scan(&m.AvgConfidence)
	if err != nil {
		return nil, common.WrapError(err, "average confidence")
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var dt, status string
	err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.FileURL, &doc.FileSize,
		&doc.FileType, &dt, &status, &doc.UploadedAt, &doc.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "scan document")
	}
	doc.DocumentType = constants.DocumentType(dt)
	doc.Status = constants.DocStatus(status)
	return &doc, nil
}

type pgProcessingRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (r *pgProcessingRepo) Create(ctx context.Context, rec *entity.ProcessingRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document_processing (id, document_id, extracted_json, confidence, engine_name, error_message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.DocumentID, rec.ExtractedJSON, rec.Confidence, rec.EngineName,
		rec.ErrorMessage, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		r.logger.Error("failed to create processing record", "document_id", rec.DocumentID, "error", err)
		return common.WrapError(err, "create processing record")
	}
	return nil
}

func (r *pgProcessingRepo) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	var rec entity.ProcessingRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, document_id, extracted_json, confidence, engine_name, error_message, started_at, completed_at
		FROM document_processing WHERE document_id = $1
		ORDER BY completed_at DESC LIMIT 1`, documentID).
		Scan(&rec.ID, &rec.DocumentID, &rec.ExtractedJSON, &rec.Confidence,
			&rec.EngineName, &rec.ErrorMessage, &rec.StartedAt, &rec.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "load processing record")
	}
	return &rec, nil
}

type pgPreferencesRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (r *pgPreferencesRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserPreferences, error) {
	var prefs entity.UserPreferences
	var useCase string
	var fieldsJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, use_case, custom_fields, created_at, updated_at
		FROM user_preferences WHERE user_id = $1`, userID).
		Scan(&prefs.ID, &prefs.UserID, &useCase, &fieldsJSON, &prefs.CreatedAt, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, common.WrapError(err, "load preferences")
	}
	prefs.UseCase = constants.UseCase(useCase)
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &prefs.CustomFields); err != nil {
			return nil, common.WrapError(err, "decode custom fields")
		}
	}
	return &prefs, nil
}

func (r *pgPreferencesRepo) Upsert(ctx context.Context, prefs *entity.UserPreferences) error {
	fieldsJSON, err := json.Marshal(prefs.CustomFields)
	if err != nil {
		return common.WrapError(err, "encode custom fields")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_preferences (id, user_id, use_case, custom_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET use_case = EXCLUDED.use_case,
		    custom_fields = EXCLUDED.custom_fields,
		    updated_at = EXCLUDED.updated_at`,
		prefs.ID, prefs.UserID, string(prefs.UseCase), fieldsJSON, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to upsert preferences", "user_id", prefs.UserID, "error", err)
		return common.WrapError(err, "upsert preferences")
	}
	return nil
}

type pgTemplateRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (r *pgTemplateRepo) Create(ctx context.Context, tpl *entity.ExtractionTemplate) error {
	fieldsJSON, err := json.Marshal(tpl.Fields)
	if err != nil {
		return common.WrapError(err, "encode template fields")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO extraction_templates (id, user_id, name, description, fields, category, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tpl.ID, tpl.UserID, tpl.Name, tpl.Description, fieldsJSON, tpl.Category, tpl.IsDefault, tpl.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create template", "user_id", tpl.UserID, "name", tpl.Name, "error", err)
		return common.WrapError(err, "create template")
	}
	return nil
}

func (r *pgTemplateRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ExtractionTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, description, fields, category, is_default, created_at
		FROM extraction_templates WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, common.WrapError(err, "list templates")
	}
	defer rows.Close()

	var out []*entity.ExtractionTemplate
	for rows.Next() {
		var tpl entity.ExtractionTemplate
		var fieldsJSON []byte
		if err := rows.Scan(&tpl.ID, &tpl.UserID, &tpl.Name, &tpl.Description,
			&fieldsJSON, &tpl.Category, &tpl.IsDefault, &tpl.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan template")
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &tpl.Fields); err != nil {
				return nil, common.WrapError(err, "decode template fields")
			}
		}
		out = append(out, &tpl)
	}
	return out, rows.Err()
}
