package service

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"golang.org/x/sync/errgroup"
)

// ItemRequest 使用者送來的品項, 刻意不含價格欄位
type ItemRequest struct {
	ProductID uint  `json:"product_id"`
	Quantity  int   `json:"quantity"`
	ColorID   *uint `json:"color_id,omitempty"`
	SizeID    *uint `json:"size_id,omitempty"`
}

type ValidatedOrder struct {
	Items  []model.OrderLine
	Amount int64
}

// ItemValidator 依目錄重新計算價格與選項, 不寫入任何資料
type ItemValidator struct {
	catalog db.ICatalogRepository
}

func NewItemValidator(catalog db.ICatalogRepository) *ItemValidator {
	if catalog == nil {
		panic("item validator dependency catalog is nil")
	}
	return &ItemValidator{catalog: catalog}
}

func (v *ItemValidator) Validate(ctx context.Context, reqs []ItemRequest) (ValidatedOrder, error) {
	if len(reqs) == 0 {
		return ValidatedOrder{}, errs.ErrEmptyOrder
	}

	productIDs := make([]uint, 0, len(reqs))
	var colorIDs, sizeIDs []uint
	for i, r := range reqs {
		if r.ProductID == 0 || r.Quantity < 1 {
			return ValidatedOrder{}, fmt.Errorf("%w: item %d requires product_id and quantity >= 1", errs.ErrValidation, i)
		}
		productIDs = append(productIDs, r.ProductID)
		if r.ColorID != nil {
			colorIDs = append(colorIDs, *r.ColorID)
		}
		if r.SizeID != nil {
			sizeIDs = append(sizeIDs, *r.SizeID)
		}
	}
	productIDs = uniqueIDs(productIDs)

	var (
		products    []model.Product
		foundColors []uint
		foundSizes  []uint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = v.catalog.GetProductsByIDs(gctx, productIDs)
		return err
	})
	g.Go(func() (err error) {
		foundColors, err = v.catalog.GetExistingColorIDs(gctx, uniqueIDs(colorIDs))
		return err
	})
	g.Go(func() (err error) {
		foundSizes, err = v.catalog.GetExistingSizeIDs(gctx, uniqueIDs(sizeIDs))
		return err
	})
	if err := g.Wait(); err != nil {
		return ValidatedOrder{}, fmt.Errorf("load catalog: %w", err)
	}

	if len(products) != len(productIDs) {
		return ValidatedOrder{}, errs.ErrProductNotFound
	}
	byID := make(map[uint]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	colorSet := toSet(foundColors)
	sizeSet := toSet(foundSizes)

	out := ValidatedOrder{Items: make([]model.OrderLine, 0, len(reqs))}
	for _, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return ValidatedOrder{}, errs.ErrProductNotFound
		}
		if r.ColorID != nil && (!colorSet[*r.ColorID] || !p.HasColor(*r.ColorID)) {
			return ValidatedOrder{}, fmt.Errorf("%w: color %d for product %d", errs.ErrInvalidOption, *r.ColorID, p.ID)
		}
		if r.SizeID != nil && (!sizeSet[*r.SizeID] || !p.HasSize(*r.SizeID)) {
			return ValidatedOrder{}, fmt.Errorf("%w: size %d for product %d", errs.ErrInvalidOption, *r.SizeID, p.ID)
		}

		unit := p.UnitPrice()
		line := model.OrderLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    r.Quantity,
			UnitPrice:   unit,
			Subtotal:    unit * int64(r.Quantity),
			ColorID:     r.ColorID,
			SizeID:      r.SizeID,
		}
		out.Items = append(out.Items, line)
		out.Amount += line.Subtotal
	}
	return out, nil
}

// Revalidate 純點數付款前確認快照內的商品與選項仍然有效, 價格沿用快照
func (v *ItemValidator) Revalidate(ctx context.Context, lines []model.OrderLine) error {
	reqs := make([]ItemRequest, 0, len(lines))
	for _, l := range lines {
		reqs = append(reqs, ItemRequest{ProductID: l.ProductID, Quantity: l.Quantity, ColorID: l.ColorID, SizeID: l.SizeID})
	}
	_, err := v.Validate(ctx, reqs)
	return err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
