package repository

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"gorm.io/gorm"
)

// baseRepository holds the lookups every table shares. entity names the row
// kind in not-found and conflict messages.
type baseRepository[T any] struct {
	db     *gorm.DB
	entity string
}

func newBaseRepository[T any](db *gorm.DB, entity string) baseRepository[T] {
	return baseRepository[T]{db: db, entity: entity}
}

func (r *baseRepository[T]) create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(err, apperr.CodeConflict, r.entity+" already exists")
		}
		return apperr.Internal(err, "create "+r.entity+" failed")
	}
	return nil
}

// first loads the first row matching q into a new T.
func (r *baseRepository[T]) first(q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(r.entity + " not found")
		}
		return nil, apperr.Internal(err, "get "+r.entity+" failed")
	}
	return &out, nil
}

func (r *baseRepository[T]) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, apperr.Internal(err, "lookup "+r.entity+" failed")
	}
	return n > 0, nil
}

// deleteWhere removes matching rows and reports NotFound when none matched.
func (r *baseRepository[T]) deleteWhere(ctx context.Context, query string, args ...any) error {
	res := r.db.WithContext(ctx).Where(query, args...).Delete(new(T))
	if res.Error != nil {
		return apperr.Internal(res.Error, "delete "+r.entity+" failed")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(r.entity + " not found")
	}
	return nil
}
