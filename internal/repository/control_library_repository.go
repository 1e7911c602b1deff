package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/formr/engine/internal/models"
)

type ControlLibraryRepository interface {
	BaseRepository[models.ControlLibraryEntry]
	// ListLibrary returns every entry ordered by category, then type.
	ListLibrary(ctx context.Context) ([]models.ControlLibraryEntry, error)
	GetByType(ctx context.Context, ct models.ControlType) (*models.ControlLibraryEntry, error)
}

type controlLibraryRepository struct {
	BaseRepository[models.ControlLibraryEntry]
}

func NewControlLibraryRepository(db *gorm.DB) ControlLibraryRepository {
	return &controlLibraryRepository{
		BaseRepository: NewBaseRepository[models.ControlLibraryEntry](db, "type", "control library entry"),
	}
}

func (r *controlLibraryRepository) ListLibrary(ctx context.Context) ([]models.ControlLibraryEntry, error) {
	return r.List(ctx, "category ASC, type ASC")
}

func (r *controlLibraryRepository) GetByType(ctx context.Context, ct models.ControlType) (*models.ControlLibraryEntry, error) {
	var e models.ControlLibraryEntry
	if err := r.Get(ctx, ct, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
