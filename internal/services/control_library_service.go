package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formr/engine/internal/library"
	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/internal/repository"
	appErr "github.com/formr/engine/pkg/errors"
	"github.com/formr/engine/pkg/logger"
)

type ControlLibraryService interface {
	// ListLibrary returns the palette ordered by category, then type.
	ListLibrary(ctx context.Context) ([]models.ControlLibraryEntry, error)
	// Instantiate returns an unsaved control of type ct placed at (x, y) with a
	// fresh client id.
	Instantiate(ctx context.Context, ct models.ControlType, x, y float64) (*models.FormControl, error)
}

type controlLibraryService struct {
	repo repository.ControlLibraryRepository
}

func NewControlLibraryService(repo repository.ControlLibraryRepository) ControlLibraryService {
	return &controlLibraryService{repo: repo}
}

var _ ControlLibraryService = (*controlLibraryService)(nil)

func (s *controlLibraryService) ListLibrary(ctx context.Context) ([]models.ControlLibraryEntry, error) {
	logger.L().Debug("list control library")
	return s.repo.ListLibrary(ctx)
}

func (s *controlLibraryService) Instantiate(ctx context.Context, ct models.ControlType, x, y float64) (*models.FormControl, error) {
	logger.L().Debug("instantiate control", zap.String("type", string(ct)))
	if !ct.IsValid() {
		return nil, appErr.Validation([]appErr.FieldError{{Field: "type", Message: "Invalid control type"}})
	}
	entry, err := s.repo.GetByType(ctx, ct)
	if err != nil {
		return nil, err
	}
	c, err := library.Instantiate(*entry, x, y)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "instantiate control failed")
	}
	// a client id lets the designer parent other controls to this one before saving
	c.ID = uuid.New()
	return &c, nil
}
