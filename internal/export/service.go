package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"certidocs-backend/internal/common"
	"certidocs-backend/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	docsRepo repository.DocumentRepository
	procRepo repository.ProcessingRepository
	logger   *slog.Logger
}

func NewService(docsRepo repository.DocumentRepository, procRepo repository.ProcessingRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docsRepo: docsRepo, procRepo: procRepo, logger: logger}
}

// ExportDocumentsXLSX returns an XLSX workbook (as bytes) with one row per
// document matched by the filter, joined with its latest extraction.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, userID uuid.UUID, filter repository.DocumentFilter) ([]byte, error) {
	start := time.Now()

	if filter.Limit <= 0 {
		filter.Limit = 1000
	}
	docs, _, err := s.docsRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Filename",
		"Document Type",
		"Status",
		"Uploaded At",
		"Processed At",
		"Engine",
		"Confidence",
		"Extracted Data",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range docs {
		engineName := ""
		confidence := ""
		summary := ""
		rec, err := s.procRepo.LatestForDocument(ctx, doc.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("query processing record: %w", err)
		}
		if rec != nil {
			if rec.EngineName != nil {
				engineName = *rec.EngineName
			}
			if rec.Confidence != nil {
				confidence = fmt.Sprintf("%.2f", *rec.Confidence)
			}
			summary = summarizeExtraction(rec.ExtractedJSON)
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, doc.Filename)
		write(2, string(doc.DocumentType))
		write(3, string(doc.Status))
		write(4, doc.UploadedAt.Format("2006-01-02 15:04"))
		if doc.ProcessedAt != nil {
			write(5, doc.ProcessedAt.Format("2006-01-02 15:04"))
		} else {
			write(5, "")
		}
		write(6, engineName)
		write(7, confidence)
		write(8, truncate(summary, 500))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 40) // filename
	_ = f.SetColWidth(sheet, "B", "C", 22) // type, status
	_ = f.SetColWidth(sheet, "D", "E", 18) // timestamps
	_ = f.SetColWidth(sheet, "F", "F", 26) // engine
	_ = f.SetColWidth(sheet, "G", "G", 12) // confidence
	_ = f.SetColWidth(sheet, "H", "H", 80) // extracted data

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID.String(),
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// summarizeExtraction flattens the extracted JSON into "key: value" pairs,
// skipping internal metadata keys.
func summarizeExtraction(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return string(raw)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		if out != "" {
			out += "; "
		}
		out += fmt.Sprintf("%s: %v", k, fields[k])
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
