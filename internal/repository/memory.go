package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/entity"
)

// NewMemoryStore returns a repository set backed by in-process maps.
// Used by tests and nothing else.
func NewMemoryStore() *Store {
	return &Store{
		Documents:   &memDocumentRepo{docs: make(map[uuid.UUID]*entity.Document)},
		Processing:  &memProcessingRepo{},
		Preferences: &memPreferencesRepo{prefs: make(map[uuid.UUID]*entity.UserPreferences)},
		Templates:   &memTemplateRepo{},
	}
}

type memDocumentRepo struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*entity.Document
}

func (r *memDocumentRepo) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *memDocumentRepo) List(_ context.Context, userID uuid.UUID, filter DocumentFilter) ([]*entity.Document, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entity.Document
	for _, doc := range r.docs {
		if doc.UserID != userID {
			continue
		}
		if t := strings.ToUpper(strings.TrimSpace(filter.Type)); t != "" && t != "ALL" && string(doc.DocumentType) != t {
			continue
		}
		if s := strings.ToUpper(strings.TrimSpace(filter.Status)); s != "" && s != "ALL" && string(doc.Status) != s {
			continue
		}
		if q := strings.TrimSpace(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(doc.Filename), strings.ToLower(q)) {
			continue
		}
		cp := *doc
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *memDocumentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status constants.DocStatus, documentType constants.DocumentType, processedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Status = status
	if documentType != "" {
		doc.DocumentType = documentType
	}
	if processedAt != nil {
		t := *processedAt
		doc.ProcessedAt = &t
	}
	return nil
}

func (r *memDocumentRepo) Metrics(_ context.Context, userID uuid.UUID) (*DocumentMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := &DocumentMetrics{
		ByStatus: make(map[constants.DocStatus]int),
		ByType:   make(map[constants.DocumentType]int),
	}
	for _, doc := range r.docs {
		if doc.UserID != userID {
			continue
		}
		m.Total++
		m.ByStatus[doc.Status]++
		m.ByType[doc.DocumentType]++
	}
	return m, nil
}

type memProcessingRepo struct {
	mu   sync.RWMutex
	recs []*entity.ProcessingRecord
}

func (r *memProcessingRepo) Create(_ context.Context, rec *entity.ProcessingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.recs = append(r.recs, &cp)
	return nil
}

func (r *memProcessingRepo) LatestForDocument(_ context.Context, documentID uuid.UUID) (*entity.ProcessingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *entity.ProcessingRecord
	for _, rec := range r.recs {
		if rec.DocumentID != documentID {
			continue
		}
		if latest == nil || rec.CompletedAt.After(latest.CompletedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, common.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

type memPreferencesRepo struct {
	mu    sync.RWMutex
	prefs map[uuid.UUID]*entity.UserPreferences
}

func (r *memPreferencesRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*entity.UserPreferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefs, ok := r.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := *prefs
	return &cp, nil
}

func (r *memPreferencesRepo) Upsert(_ context.Context, prefs *entity.UserPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *prefs
	cp.UpdatedAt = time.Now().UTC()
	r.prefs[prefs.UserID] = &cp
	return nil
}

type memTemplateRepo struct {
	mu   sync.RWMutex
	tpls []*entity.ExtractionTemplate
}

func (r *memTemplateRepo) Create(_ context.Context, tpl *entity.ExtractionTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tpl
	r.tpls = append(r.tpls, &cp)
	return nil
}

func (r *memTemplateRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*entity.ExtractionTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.ExtractionTemplate
	for _, tpl := range r.tpls {
		if tpl.UserID != userID {
			continue
		}
		cp := *tpl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
