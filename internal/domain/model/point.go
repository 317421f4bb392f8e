package model

import "time"

type PointEntryType string

const (
	PointEntryEarn PointEntryType = "EARN"
	PointEntryUse  PointEntryType = "USE"
	// 取消訂單時退回已使用點數
	PointEntryRestore PointEntryType = "RESTORE"
	// 取消訂單時收回已發放點數
	PointEntryRevoke PointEntryType = "REVOKE"
)

// PointLedgerEntry 點數異動紀錄, Amount 有正負號, 餘額只由加總推導
type PointLedgerEntry struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       int64          `gorm:"not null;index" json:"user_id"`
	Type         PointEntryType `gorm:"type:varchar(10);not null" json:"type"`
	Amount       int64          `gorm:"not null" json:"amount"`
	BalanceAfter int64          `gorm:"not null" json:"balance_after"`
	Description  string         `gorm:"type:varchar(255)" json:"description"`
	OrderID      *string        `gorm:"type:varchar(50);index" json:"order_id,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
}
