package db

import (
	"context"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
)

type PointRepo struct {
	db *DbDao
}

func NewPointRepo(db *DbDao) *PointRepo {
	return &PointRepo{db: db}
}

// LockUser 交易層級的advisory lock, 同一使用者的餘額讀寫在此序列化
// 只在交易內有意義, commit/rollback 時自動釋放
func (s *PointRepo) LockUser(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", userID).Error
}

func (s *PointRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.WithContext(ctx).
		Model(&model.PointLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance).Error
	return balance, err
}

func (s *PointRepo) AppendEntry(ctx context.Context, entry *model.PointLedgerEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
