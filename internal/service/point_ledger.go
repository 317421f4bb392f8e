package service

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/shopspring/decimal"
)

/*
PointLedger 點數帳本
餘額 = 該使用者所有紀錄加總, 不另外存放
寫入前先取得使用者層級的鎖, 讀餘額到寫入之間不會被其他交易插入
所有方法都應在 TxManager.Do 內呼叫
*/
type PointLedger struct {
	earnRate decimal.Decimal
}

func NewPointLedger(earnRate decimal.Decimal) *PointLedger {
	return &PointLedger{earnRate: earnRate}
}

// EarnAmount floor(total × rate)
func (l *PointLedger) EarnAmount(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).Mul(l.earnRate).Floor().IntPart()
}

func (l *PointLedger) Balance(ctx context.Context, repos db.Repositories, userID int64) (int64, error) {
	return repos.Points().GetBalance(ctx, userID)
}

// Use 餘額不足時回傳 ErrInsufficientBalance, 不寫入任何紀錄
func (l *PointLedger) Use(ctx context.Context, repos db.Repositories, userID int64, amount int64, orderID string) (*model.PointLedgerEntry, error) {
	if amount <= 0 {
		return nil, nil
	}
	balance, err := l.lockedBalance(ctx, repos, userID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, fmt.Errorf("%w: balance %d, required %d", errs.ErrInsufficientBalance, balance, amount)
	}
	return l.append(ctx, repos, userID, model.PointEntryUse, -amount, balance, "order payment", orderID)
}

// Earn 依訂單金額發放點數, 金額為0時不寫入
func (l *PointLedger) Earn(ctx context.Context, repos db.Repositories, userID int64, total int64, orderID string) (int64, error) {
	earned := l.EarnAmount(total)
	if earned <= 0 {
		return 0, nil
	}
	balance, err := l.lockedBalance(ctx, repos, userID)
	if err != nil {
		return 0, err
	}
	if _, err := l.append(ctx, repos, userID, model.PointEntryEarn, earned, balance, "purchase reward", orderID); err != nil {
		return 0, err
	}
	return earned, nil
}

// Restore 取消訂單時退回已使用點數
func (l *PointLedger) Restore(ctx context.Context, repos db.Repositories, userID int64, amount int64, orderID string) error {
	if amount <= 0 {
		return nil
	}
	balance, err := l.lockedBalance(ctx, repos, userID)
	if err != nil {
		return err
	}
	_, err = l.append(ctx, repos, userID, model.PointEntryRestore, amount, balance, "order cancelled, points restored", orderID)
	return err
}

// Revoke 收回已發放點數, 最多收回到餘額為0, 回傳實際收回數量
func (l *PointLedger) Revoke(ctx context.Context, repos db.Repositories, userID int64, amount int64, orderID string) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}
	balance, err := l.lockedBalance(ctx, repos, userID)
	if err != nil {
		return 0, err
	}
	revoked := min(amount, max(balance, 0))
	if revoked == 0 {
		return 0, nil
	}
	if _, err := l.append(ctx, repos, userID, model.PointEntryRevoke, -revoked, balance, "order cancelled, reward revoked", orderID); err != nil {
		return 0, err
	}
	return revoked, nil
}

func (l *PointLedger) lockedBalance(ctx context.Context, repos db.Repositories, userID int64) (int64, error) {
	points := repos.Points()
	if err := points.LockUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("lock point ledger: %w", err)
	}
	balance, err := points.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read point balance: %w", err)
	}
	return balance, nil
}

func (l *PointLedger) append(ctx context.Context, repos db.Repositories, userID int64, typ model.PointEntryType, amount, balance int64, desc, orderID string) (*model.PointLedgerEntry, error) {
	entry := &model.PointLedgerEntry{
		UserID:       userID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: balance + amount,
		Description:  desc,
	}
	if orderID != "" {
		entry.OrderID = &orderID
	}
	if err := repos.Points().AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append %s entry: %w", typ, err)
	}
	return entry, nil
}
