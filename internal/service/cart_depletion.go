package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
)

// CartUpdate 部分扣除後的新數量
type CartUpdate struct {
	ID       uint
	Quantity int
}

// DepletionPlan 刪除完全扣除的列, 縮減部分扣除的列
type DepletionPlan struct {
	DeleteIDs []uint
	Updates   []CartUpdate
}

func (p DepletionPlan) Empty() bool {
	return len(p.DeleteIDs) == 0 && len(p.Updates) == 0
}

/*
ResolveCartDepletion 將訂單品項對應回購物車列
同一個 (商品, 顏色, 尺寸) 可能分散在多列, 依id由舊到新依序扣除
購物車數量不足或找不到對應列都不是錯誤, 盡力扣除即可
同一筆訂單出現重複的組合時, 從剩餘數量繼續扣
*/
func ResolveCartDepletion(rows []model.CartItem, items []model.OrderLine) DepletionPlan {
	sorted := make([]model.CartItem, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	groups := make(map[model.OptionKey][]int)
	remaining := make([]int, len(sorted))
	for i := range sorted {
		key := sorted[i].Key()
		groups[key] = append(groups[key], i)
		remaining[i] = sorted[i].Quantity
	}

	for _, item := range items {
		need := item.Quantity
		for _, idx := range groups[item.Key()] {
			if need <= 0 {
				break
			}
			if remaining[idx] <= 0 {
				continue
			}
			take := min(need, remaining[idx])
			remaining[idx] -= take
			need -= take
		}
	}

	var plan DepletionPlan
	for i, row := range sorted {
		switch {
		case remaining[i] == row.Quantity:
			continue
		case remaining[i] <= 0:
			plan.DeleteIDs = append(plan.DeleteIDs, row.ID)
		default:
			plan.Updates = append(plan.Updates, CartUpdate{ID: row.ID, Quantity: remaining[i]})
		}
	}
	return plan
}

// CartDepleter 在呼叫端的交易內扣除購物車
type CartDepleter struct{}

func NewCartDepleter() *CartDepleter {
	return &CartDepleter{}
}

func (d *CartDepleter) Deplete(ctx context.Context, repos db.Repositories, userID int64, items []model.OrderLine) (DepletionPlan, error) {
	carts := repos.Carts()
	rows, err := carts.GetCartItemsByUserID(ctx, userID)
	if err != nil {
		return DepletionPlan{}, fmt.Errorf("load cart items: %w", err)
	}
	plan := ResolveCartDepletion(rows, items)
	if plan.Empty() {
		return plan, nil
	}
	if err := carts.DeleteCartItems(ctx, plan.DeleteIDs); err != nil {
		return plan, fmt.Errorf("delete cart items: %w", err)
	}
	for _, u := range plan.Updates {
		if err := carts.UpdateCartItemQuantity(ctx, u.ID, u.Quantity); err != nil {
			return plan, fmt.Errorf("shrink cart item %d: %w", u.ID, err)
		}
	}
	return plan, nil
}
