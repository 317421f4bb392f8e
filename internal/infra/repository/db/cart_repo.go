package db

import (
	"context"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
)

type CartRepo struct {
	db *DbDao
}

func NewCartRepo(db *DbDao) *CartRepo {
	return &CartRepo{db: db}
}

// GetCartItemsByUserID 依id排序, 即建立順序
func (s *CartRepo) GetCartItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error
	return items, err
}

func (s *CartRepo) DeleteCartItems(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.CartItem{}).Error
}

func (s *CartRepo) UpdateCartItemQuantity(ctx context.Context, id uint, quantity int) error {
	return s.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}
