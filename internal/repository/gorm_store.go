package repository

import (
	"context"
	"errors"
	"strings"

	"techatlas/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the primary relational store for one content kind.
type GormStore[T any, PT RecordPtr[T]] struct {
	db   *gorm.DB
	info models.KindInfo
}

// NewGormStore returns a primary store backed by db.
func NewGormStore[T any, PT RecordPtr[T]](db *gorm.DB, info models.KindInfo) *GormStore[T, PT] {
	return &GormStore[T, PT]{db: db, info: info}
}

func (s *GormStore[T, PT]) Name() string { return "primary" }

func (s *GormStore[T, PT]) Tier() Tier { return TierPrimary }

func (s *GormStore[T, PT]) List(ctx context.Context, filters models.Filters) ([]*T, error) {
	q := readDB(s.db).WithContext(ctx).Model(new(T))

	if filters.Status != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: "status"}, Value: string(filters.Status)})
	}
	for column, value := range filters.Fields {
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}
	if filters.Since != nil {
		q = q.Where(clause.Gte{Column: clause.Column{Name: filters.Since.Column}, Value: filters.Since.From})
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		q = q.Where("LOWER("+s.info.TitleColumn+") LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var rows []*T
	if err := q.Order("created_at DESC").Limit(clampLimit(filters.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore[T, PT]) GetBySlug(ctx context.Context, slug string) (*T, error) {
	return s.first(ctx, "slug = ?", slug)
}

func (s *GormStore[T, PT]) GetByID(ctx context.Context, id uint) (*T, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore[T, PT]) first(ctx context.Context, query string, arg any) (*T, error) {
	rec := new(T)
	if err := readDB(s.db).WithContext(ctx).Where(query, arg).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (s *GormStore[T, PT]) Create(ctx context.Context, rec *T) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *GormStore[T, PT]) Update(ctx context.Context, rec *T) error {
	res := s.db.WithContext(ctx).Model(rec).Select("*").Omit("id", "created_at").Updates(rec)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return ErrConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore[T, PT]) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
