// Package preferences implements onboarding: users pick a use case (or
// declare custom fields) and the choice becomes the personalization input
// for every later extraction.
package preferences

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"certidocs-backend/constants"
	"certidocs-backend/internal/common"
	"certidocs-backend/internal/entity"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/schema"
	"certidocs-backend/internal/templates"
)

type Service struct {
	logger    *slog.Logger
	repo      repository.PreferencesRepository
	templates *templates.Service
}

func NewService(logger *slog.Logger, repo repository.PreferencesRepository, tpls *templates.Service) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, templates: tpls}
}

// SetPreferences validates and stores a user's onboarding choice, then
// materializes the matching extraction template.
func (s *Service) SetPreferences(ctx context.Context, userID uuid.UUID, useCaseID string, customFields []schema.Field) (*entity.UserPreferences, error) {
	normalized := strings.ToUpper(strings.TrimSpace(useCaseID))
	if !constants.IsUseCase(normalized) {
		return nil, common.NewAppError("INVALID_USE_CASE", "unknown use case: "+useCaseID, common.ErrInvalidInput)
	}
	useCase := constants.UseCase(normalized)

	if useCase == constants.UseCaseCustom {
		if err := validateCustomFields(customFields); err != nil {
			return nil, err
		}
	} else {
		// Predefined use cases ignore any submitted fields.
		customFields = nil
	}

	now := time.Now().UTC()
	prefs := &entity.UserPreferences{
		ID:           uuid.New(),
		UserID:       userID,
		UseCase:      useCase,
		CustomFields: customFields,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}

	if _, err := s.templates.MaterializeUserTemplate(ctx, userID, useCase, customFields); err != nil {
		// Preferences are already saved; the template copy is best-effort.
		s.logger.Warn("preferences.template_materialize_failed", "user_id", userID, "error", err)
	}

	s.logger.Info("preferences.saved", "user_id", userID, "use_case", useCase, "custom_fields", len(customFields))
	return prefs, nil
}

// GetPreferences returns (nil, nil) when the user never onboarded.
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*entity.UserPreferences, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func validateCustomFields(fields []schema.Field) error {
	if len(fields) == 0 {
		return common.NewAppError("INVALID_INPUT", "custom use case requires at least one field", common.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return common.NewAppError("INVALID_INPUT", "custom field without a name", common.ErrInvalidInput)
		}
		if _, dup := seen[name]; dup {
			return common.NewAppError("INVALID_INPUT", "duplicate custom field: "+name, common.ErrInvalidInput)
		}
		seen[name] = struct{}{}
	}
	return nil
}
