package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	filename      TEXT NOT NULL,
	file_url      TEXT NOT NULL,
	file_size     INTEGER NOT NULL,
	file_type     TEXT NOT NULL,
	document_type TEXT NOT NULL,
	status        TEXT NOT NULL,
	uploaded_at   TEXT NOT NULL,
	processed_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_documents_user ON documents (user_id, uploaded_at);

CREATE TABLE IF NOT EXISTS document_processing (
	id             TEXT PRIMARY KEY,
	document_id    TEXT NOT NULL,
	extracted_json BLOB,
	confidence     REAL,
	engine_name    TEXT,
	error_message  TEXT,
	started_at     TEXT NOT NULL,
	completed_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processing_document ON document_processing (document_id, completed_at);

CREATE TABLE IF NOT EXISTS user_preferences (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL UNIQUE,
	use_case      TEXT NOT NULL,
	custom_fields BLOB,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_templates (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	fields      BLOB NOT NULL,
	category    TEXT NOT NULL,
	is_default  INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_templates_user ON extraction_templates (user_id, created_at);
`

// OpenSQLite opens (and bootstraps) a sqlite database at path. Used by
// local one-shot runs where Postgres is not available.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("opening sqlite database", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	// modernc sqlite is not safe for concurrent writers over one file.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "bootstrap sqlite schema")
	}
	return db, nil
}

// NewSQLiteStore builds the repository set over one sqlite handle.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		Documents:   &liteDocumentRepo{db: db, logger: logger},
		Processing:  &liteProcessingRepo{db: db, logger: logger},
		Preferences: &litePreferencesRepo{db: db, logger: logger},
		Templates:   &liteTemplateRepo{db: db, logger: logger},
	}
}

// Fixed-width so lexicographic ORDER BY matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func encodeTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, common.WrapError(err, "decode timestamp")
	}
	return t, nil
}

type liteDocumentRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *liteDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, filename, file_url, file_size, file_type, document_type, status, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.UserID.String(), doc.Filename, doc.FileURL, doc.FileSize,
		doc.FileType, string(doc.DocumentType), string(doc.Status), encodeTime(doc.UploadedAt),
	)
	if err != nil {
		r.logger.Error("failed to create document", "document_id", doc.ID, "error", err)
		return common.WrapError(err, "create document")
	}
	return nil
}

func (r *liteDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, file_url, file_size, file_type, document_type, status, uploaded_at, processed_at
		FROM documents WHERE id = ?`, id.String())
	return scanLiteDocument(row)
}

func (r *liteDocumentRepo) List(ctx context.Context, userID uuid.UUID, filter DocumentFilter) ([]*entity.Document, int, error) {
	where := []string{"user_id = ?"}
	args := []any{userID.String()}

	if t := strings.ToUpper(strings.TrimSpace(filter.Type)); t != "" && t != "ALL" {
		where = append(where, "document_type = ?")
		args = append(args, t)
	}
	if s := strings.ToUpper(strings.TrimSpace(filter.Status)); s != "" && s != "ALL" {
		where = append(where, "status = ?")
		args = append(args, s)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		where = append(where, "LOWER(filename) LIKE ?")
		args = append(args, "%"+strings.ToLower(q)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM documents WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, common.WrapError(err, "count documents")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, filename, file_url, file_size, file_type, document_type, status, uploaded_at, processed_at
		FROM documents WHERE %s ORDER BY uploaded_at DESC LIMIT ? OFFSET ?`, cond), args...)
	if err != nil {
		return nil, 0, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanLiteDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, rows.Err()
}

func (r *liteDocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocStatus, documentType constants.DocumentType, processedAt *time.Time) error {
	var processed any
	if processedAt != nil {
		processed = encodeTime(*processedAt)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?,
		    document_type = CASE WHEN ? = '' THEN document_type ELSE ? END,
		    processed_at = COALESCE(?, processed_at)
		WHERE id = ?`,
		string(status), string(documentType), string(documentType), processed, id.String(),
	)
	if err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "status", status, "error", err)
		return common.WrapError(err, "update document status")
	}
	return nil
}

func (r *liteDocumentRepo) Metrics(ctx context.Context, userID uuid.UUID) (*DocumentMetrics, error) {
	m := &DocumentMetrics{
		ByStatus: make(map[constants.DocStatus]int),
		ByType:   make(map[constants.DocumentType]int),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, document_type, count(*) FROM documents
		WHERE user_id = ? GROUP BY status, document_type`, userID.String())
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

	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(avg(p.confidence), 0)
		FROM document_processing p
		JOIN documents d ON d.id = p.document_id
		WHERE d.user_id = ? AND p.confidence IS NOT NULL`, userID.String()).Scan(&m.AvgConfidence)
	if err != nil {
		return nil, common.WrapError(err, "average confidence")
	}
	return m, nil
}

func scanLiteDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var id, userID, dt, status, uploaded string
	var processed sql.NullString
	err := row.Scan(&id, &userID, &doc.Filename, &doc.FileURL, &doc.FileSize,
		&doc.FileType, &dt, &status, &uploaded, &processed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "scan document")
	}
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, common.WrapError(err, "parse document id")
	}
	if doc.UserID, err = uuid.Parse(userID); err != nil {
		return nil, common.WrapError(err, "parse user id")
	}
	doc.DocumentType = constants.DocumentType(dt)
	doc.Status = constants.DocStatus(status)
	if doc.UploadedAt, err = decodeTime(uploaded); err != nil {
		return nil, err
	}
	if processed.Valid {
		t, err := decodeTime(processed.String)
		if err != nil {
			return nil, err
		}
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

type liteProcessingRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *liteProcessingRepo) Create(ctx context.Context, rec *entity.ProcessingRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_processing (id, document_id, extracted_json, confidence, engine_name, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.DocumentID.String(), []byte(rec.ExtractedJSON), rec.Confidence,
		rec.EngineName, rec.ErrorMessage, encodeTime(rec.StartedAt), encodeTime(rec.CompletedAt),
	)
	if err != nil {
		r.logger.Error("failed to create processing record", "document_id", rec.DocumentID, "error", err)
		return common.WrapError(err, "create processing record")
	}
	return nil
}

func (r *liteProcessingRepo) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	var rec entity.ProcessingRecord
	var id, docID, started, completed string
	var extracted []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, document_id, extracted_json, confidence, engine_name, error_message, started_at, completed_at
		FROM document_processing WHERE document_id = ?
		ORDER BY completed_at DESC LIMIT 1`, documentID.String()).
		Scan(&id, &docID, &extracted, &rec.Confidence, &rec.EngineName, &rec.ErrorMessage, &started, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "load processing record")
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, common.WrapError(err, "parse record id")
	}
	if rec.DocumentID, err = uuid.Parse(docID); err != nil {
		return nil, common.WrapError(err, "parse document id")
	}
	rec.ExtractedJSON = extracted
	if rec.StartedAt, err = decodeTime(started); err != nil {
		return nil, err
	}
	if rec.CompletedAt, err = decodeTime(completed); err != nil {
		return nil, err
	}
	return &rec, nil
}

type litePreferencesRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *litePreferencesRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserPreferences, error) {
	var prefs entity.UserPreferences
	var id, useCase, created, updated string
	var fieldsJSON []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, use_case, custom_fields, created_at, updated_at
		FROM user_preferences WHERE user_id = ?`, userID.String()).
		Scan(&id, &useCase, &fieldsJSON, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, common.WrapError(err, "load preferences")
	}
	if prefs.ID, err = uuid.Parse(id); err != nil {
		return nil, common.WrapError(err, "parse preferences id")
	}
	prefs.UserID = userID
	prefs.UseCase = constants.UseCase(useCase)
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &prefs.CustomFields); err != nil {
			return nil, common.WrapError(err, "decode custom fields")
		}
	}
	if prefs.CreatedAt, err = decodeTime(created); err != nil {
		return nil, err
	}
	if prefs.UpdatedAt, err = decodeTime(updated); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *litePreferencesRepo) Upsert(ctx context.Context, prefs *entity.UserPreferences) error {
	fieldsJSON, err := json.Marshal(prefs.CustomFields)
	if err != nil {
		return common.WrapError(err, "encode custom fields")
	}
	now := encodeTime(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (id, user_id, use_case, custom_fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET use_case = excluded.use_case,
		    custom_fields = excluded.custom_fields,
		    updated_at = excluded.updated_at`,
		prefs.ID.String(), prefs.UserID.String(), string(prefs.UseCase), fieldsJSON, now, now,
	)
	if err != nil {
		r.logger.Error("failed to upsert preferences", "user_id", prefs.UserID, "error", err)
		return common.WrapError(err, "upsert preferences")
	}
	return nil
}

type liteTemplateRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *liteTemplateRepo) Create(ctx context.Context, tpl *entity.ExtractionTemplate) error {
	fieldsJSON, err := json.Marshal(tpl.Fields)
	if err != nil {
		return common.WrapError(err, "encode template fields")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO extraction_templates (id, user_id, name, description, fields, category, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID.String(), tpl.UserID.String(), tpl.Name, tpl.Description, fieldsJSON,
		tpl.Category, tpl.IsDefault, encodeTime(tpl.CreatedAt),
	)
	if err != nil {
		r.logger.Error("failed to create template", "user_id", tpl.UserID, "name", tpl.Name, "error", err)
		return common.WrapError(err, "create template")
	}
	return nil
}

func (r *liteTemplateRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.ExtractionTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, fields, category, is_default, created_at
		FROM extraction_templates WHERE user_id = ? ORDER BY created_at DESC`, userID.String())
	if err != nil {
		return nil, common.WrapError(err, "list templates")
	}
	defer rows.Close()

	var out []*entity.ExtractionTemplate
	for rows.Next() {
		var tpl entity.ExtractionTemplate
		var id, uid, created string
		var desc sql.NullString
		var fieldsJSON []byte
		if err := rows.Scan(&id, &uid, &tpl.Name, &desc, &fieldsJSON,
			&tpl.Category, &tpl.IsDefault, &created); err != nil {
			return nil, common.WrapError(err, "scan template")
		}
		if tpl.ID, err = uuid.Parse(id); err != nil {
			return nil, common.WrapError(err, "parse template id")
		}
		if tpl.UserID, err = uuid.Parse(uid); err != nil {
			return nil, common.WrapError(err, "parse user id")
		}
		tpl.Description = desc.String
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &tpl.Fields); err != nil {
				return nil, common.WrapError(err, "decode template fields")
			}
		}
		if tpl.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, &tpl)
	}
	return out, rows.Err()
}
