package services

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/internal/repository"
	"github.com/formr/engine/internal/validation"
	appErr "github.com/formr/engine/pkg/errors"
	"github.com/formr/engine/pkg/logger"
	"github.com/formr/engine/pkg/metrics"
)

// TemplateService validates template aggregates and delegates persistence.
type TemplateService interface {
	ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]models.FormTemplate, error)
	GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (*models.FormTemplate, error)
	CreateTemplate(ctx context.Context, tenantID uuid.UUID, input *TemplateInput) (*models.FormTemplate, error)
	UpdateTemplate(ctx context.Context, tenantID, id uuid.UUID, input *TemplateInput, expectedRevision string) (*models.FormTemplate, error)
	DeleteTemplate(ctx context.Context, tenantID, id uuid.UUID) error
	DuplicateTemplate(ctx context.Context, tenantID, id uuid.UUID) (*models.FormTemplate, error)
	// ListTemplateVersions is not implemented; templates carry a version
	// number but no history is stored.
	ListTemplateVersions(ctx context.Context, tenantID, id uuid.UUID) ([]models.FormTemplate, error)
}

// TemplateInput carries the client-controlled fields of a template.
// BaseTemplateID is only honoured on create.
type TemplateInput struct {
	Name           string
	Description    *string
	Version        int
	BaseTemplateID *uuid.UUID
	Controls       []models.FormControl
}

const (
	copySuffix      = " (Copy)"
	maxTemplateName = 200
)

type templateService struct {
	repo      repository.TemplateRepository
	validator *validation.Validator
	policy    *bluemonday.Policy
}

func NewTemplateService(repo repository.TemplateRepository) TemplateService {
	return &templateService{
		repo:      repo,
		validator: validation.New(),
		policy:    bluemonday.UGCPolicy(),
	}
}

var _ TemplateService = (*templateService)(nil)

func record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(appErr.CodeOf(err))
	}
	metrics.TemplateOperations.WithLabelValues(op, outcome).Inc()
}

func (s *templateService) ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]models.FormTemplate, error) {
	logger.L().Info("list templates", zap.String("tenant_id", tenantID.String()))
	out, err := s.repo.FetchAllForTenant(ctx, tenantID)
	record("list", err)
	return out, err
}

func (s *templateService) GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (*models.FormTemplate, error) {
	logger.L().Info("get template", zap.String("tenant_id", tenantID.String()), zap.String("template_id", id.String()))
	t, err := s.repo.FetchByID(ctx, tenantID, id)
	record("get", err)
	return t, err
}

// CreateTemplate validates the new aggregate under a draft id so controls can
// be checked as members of it; the repository assigns the stored ids.
func (s *templateService) CreateTemplate(ctx context.Context, tenantID uuid.UUID, input *TemplateInput) (*models.FormTemplate, error) {
	logger.L().Info("create template called", zap.String("tenant_id", tenantID.String()), zap.String("name", input.Name))
	return s.create(ctx, tenantID, input, true)
}

func (s *templateService) create(ctx context.Context, tenantID uuid.UUID, input *TemplateInput, checkBase bool) (*models.FormTemplate, error) {
	version := input.Version
	if version == 0 {
		version = 1
	}
	draftID := uuid.New()
	t := &models.FormTemplate{
		ID:             draftID,
		Name:           input.Name,
		Description:    input.Description,
		Version:        version,
		BaseTemplateID: input.BaseTemplateID,
		TenantID:       tenantID,
		Controls:       s.prepareControls(input.Controls, draftID),
	}

	if err := s.validator.ValidateTemplate(t); err != nil {
		logger.L().Info("create template rejected", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		record("create", err)
		return nil, err
	}
	if checkBase {
		if err := s.checkBaseTemplate(ctx, tenantID, t.BaseTemplateID); err != nil {
			record("create", err)
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, t)
	record("create", err)
	if err != nil {
		return nil, err
	}
	logger.L().Info("template created", zap.String("template_id", created.ID.String()), zap.String("tenant_id", tenantID.String()), zap.Int("controls", len(created.Controls)))
	return created, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, tenantID, id uuid.UUID, input *TemplateInput, expectedRevision string) (*models.FormTemplate, error) {
	logger.L().Info("update template called", zap.String("tenant_id", tenantID.String()), zap.String("template_id", id.String()))

	t := &models.FormTemplate{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Version:     input.Version,
		TenantID:    tenantID,
		Controls:    s.prepareControls(input.Controls, id),
	}
	if err := s.validator.ValidateTemplate(t); err != nil {
		logger.L().Info("update template rejected", zap.String("template_id", id.String()), zap.Error(err))
		record("update", err)
		return nil, err
	}

	updated, err := s.repo.Update(ctx, t, expectedRevision)
	record("update", err)
	if err != nil {
		return nil, err
	}
	logger.L().Info("template updated", zap.String("template_id", id.String()), zap.Int("version", updated.Version), zap.Int("controls", len(updated.Controls)))
	return updated, nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, tenantID, id uuid.UUID) error {
	logger.L().Info("delete template", zap.String("tenant_id", tenantID.String()), zap.String("template_id", id.String()))
	err := s.repo.SoftDelete(ctx, tenantID, id)
	record("delete", err)
	if err != nil {
		return err
	}
	logger.L().Info("template deleted", zap.String("template_id", id.String()))
	return nil
}

// DuplicateTemplate copies a template and its whole control tree into a new
// version-1 template named "<name> (Copy)".
func (s *templateService) DuplicateTemplate(ctx context.Context, tenantID, id uuid.UUID) (*models.FormTemplate, error) {
	logger.L().Info("duplicate template", zap.String("tenant_id", tenantID.String()), zap.String("template_id", id.String()))
	src, err := s.repo.FetchByID(ctx, tenantID, id)
	if err != nil {
		record("duplicate", err)
		return nil, err
	}

	controls := make([]models.FormControl, len(src.Controls))
	copy(controls, src.Controls)

	// the base reference is copied as-is, even if that template was since deleted
	return s.create(ctx, tenantID, &TemplateInput{
		Name:           copyName(src.Name),
		Description:    src.Description,
		Version:        1,
		BaseTemplateID: src.BaseTemplateID,
		Controls:       controls,
	}, false)
}

func (s *templateService) ListTemplateVersions(ctx context.Context, tenantID, id uuid.UUID) ([]models.FormTemplate, error) {
	logger.L().Info("list template versions", zap.String("tenant_id", tenantID.String()), zap.String("template_id", id.String()))
	err := appErr.NotImplemented("list template versions")
	record("versions", err)
	return nil, err
}

// prepareControls stamps every control with templateID and sanitises rich
// text defaults. The input slice is not modified.
func (s *templateService) prepareControls(in []models.FormControl, templateID uuid.UUID) []models.FormControl {
	if in == nil {
		return nil
	}
	out := make([]models.FormControl, len(in))
	for i, c := range in {
		c.TemplateID = templateID
		if c.ParentControlID != nil && *c.ParentControlID == uuid.Nil {
			c.ParentControlID = nil
		}
		if c.Type == models.ControlRichTextEditor && c.DefaultValue != nil {
			clean := s.policy.Sanitize(*c.DefaultValue)
			c.DefaultValue = &clean
		}
		out[i] = c
	}
	return out
}

func (s *templateService) checkBaseTemplate(ctx context.Context, tenantID uuid.UUID, baseID *uuid.UUID) error {
	if baseID == nil {
		return nil
	}
	if _, err := s.repo.FetchByID(ctx, tenantID, *baseID); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return appErr.Validation([]appErr.FieldError{{Field: "base_template_id", Message: "Base template does not exist"}})
		}
		return err
	}
	return nil
}

func copyName(name string) string {
	room := maxTemplateName - utf8.RuneCountInString(copySuffix)
	if utf8.RuneCountInString(name) > room {
		name = string([]rune(name)[:room])
	}
	return name + copySuffix
}
