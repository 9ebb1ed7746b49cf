// Package templates exposes the predefined extraction schemas and persists
// per-user copies of them.
package templates

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/entity"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/schema"
)

type Service struct {
	logger *slog.Logger
	repo   repository.TemplateRepository
}

func NewService(logger *slog.Logger, repo repository.TemplateRepository) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo}
}

// GetPredefinedSchema resolves a use case to its field schema. Unknown use
// cases get the default schema rather than an error, so onboarding never
// dead-ends on a stale identifier.
func (s *Service) GetPredefinedSchema(useCaseID string) schema.Definition {
	return schema.GetSchema(useCaseID)
}

// MaterializeUserTemplate stores a per-user copy of the use case's schema
// and returns it. CUSTOM use cases pass their own fields.
func (s *Service) MaterializeUserTemplate(ctx context.Context, userID uuid.UUID, useCase constants.UseCase, customFields []schema.Field) (*entity.ExtractionTemplate, error) {
	var name, description string
	var fields []schema.Field

	if useCase == constants.UseCaseCustom {
		if len(customFields) == 0 {
			return nil, common.NewAppError("INVALID_INPUT", "custom use case requires at least one field", common.ErrInvalidInput)
		}
		name = "Plantilla Personalizada"
		description = "Campos definidos por el usuario"
		fields = customFields
	} else {
		def := schema.GetSchema(string(useCase))
		name = def.Name
		description = def.Description
		fields = def.Fields
	}

	tpl := &entity.ExtractionTemplate{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Fields:      fields,
		Category:    string(useCase),
		IsDefault:   useCase == constants.DefaultUseCase,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	s.logger.Info("template.materialized", "user_id", userID, "use_case", useCase, "fields", len(fields))
	return tpl, nil
}

// ListUserTemplates returns the templates a user has materialized.
func (s *Service) ListUserTemplates(ctx context.Context, userID uuid.UUID) ([]*entity.ExtractionTemplate, error) {
	return s.repo.ListByUser(ctx, userID)
}
