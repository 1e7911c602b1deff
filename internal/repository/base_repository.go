package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	appErr "github.com/formr/engine/pkg/errors"
)

// BaseRepository defines the lookups shared by simple reference-data tables.
type BaseRepository[T any] interface {
	Get(ctx context.Context, key any, dest *T) error
	List(ctx context.Context, order string) ([]T, error)
}

type baseRepository[T any] struct {
	db     *gorm.DB
	key    string
	entity string
}

// NewBaseRepository returns a BaseRepository for T keyed by the given primary key column.
func NewBaseRepository[T any](db *gorm.DB, key, entity string) BaseRepository[T] {
	return &baseRepository[T]{db: db, key: key, entity: entity}
}

func (r *baseRepository[T]) Get(ctx context.Context, key any, dest *T) error {
	if err := r.db.WithContext(ctx).First(dest, r.key+" = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, fmt.Sprintf("%s %v not found", r.entity, key))
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get "+r.entity+" failed")
	}
	return nil
}

func (r *baseRepository[T]) List(ctx context.Context, order string) ([]T, error) {
	var out []T
	q := r.db.WithContext(ctx)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list "+r.entity+" failed")
	}
	return out, nil
}
