package db

import (
	"context"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
)

type CatalogRepo struct {
	db *DbDao
}

func NewCatalogRepo(db *DbDao) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// GetProductsByIDs 一次查詢, 已軟刪除的商品不會回傳
func (s *CatalogRepo) GetProductsByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := s.db.WithContext(ctx).
		Preload("Colors").
		Preload("Sizes").
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (s *CatalogRepo) GetExistingColorIDs(ctx context.Context, ids []uint) ([]uint, error) {
	var found []uint
	if len(ids) == 0 {
		return found, nil
	}
	err := s.db.WithContext(ctx).Model(&model.Color{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

func (s *CatalogRepo) GetExistingSizeIDs(ctx context.Context, ids []uint) ([]uint, error) {
	var found []uint
	if len(ids) == 0 {
		return found, nil
	}
	err := s.db.WithContext(ctx).Model(&model.Size{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}
