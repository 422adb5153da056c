package repository

import (
	"context"

	"confectionery/internal/domain/model"
	repo "confectionery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NewsGormRepository struct {
	db *gorm.DB
}

func NewNewsGormRepository(db *gorm.DB) *NewsGormRepository {
	return &NewsGormRepository{db: db}
}

func (r *NewsGormRepository) List(ctx context.Context, page int, limit int) ([]model.News, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.News{}).Count(&total).Error; err != nil {
		return []model.News{}, 0, translateError(err)
	}

	var items []model.News
	err := r.db.WithContext(ctx).
		Order("published_at desc").Order("id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		return []model.News{}, 0, translateError(err)
	}
	return items, total, nil
}

func (r *NewsGormRepository) FindByID(ctx context.Context, id uuid.UUID) (model.News, error) {
	var n model.News
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return model.News{}, translateError(err)
	}
	return n, nil
}

func (r *NewsGormRepository) Create(ctx context.Context, n model.News) error {
	if err := r.db.WithContext(ctx).Create(&n).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *NewsGormRepository) Update(ctx context.Context, n model.News) error {
	res := r.db.WithContext(ctx).Model(&model.News{}).Where("id = ?", n.ID).Updates(map[string]interface{}{
		"title":        n.Title,
		"summary":      n.Summary,
		"content":      n.Content,
		"image":        n.Image,
		"image_key":    n.ImageKey,
		"published_at": n.PublishedAt,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *NewsGormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.News{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
