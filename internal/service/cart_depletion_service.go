package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/rs/zerolog"
)

// CartDepletionService 補做付款交易內失敗的購物車扣除, 同一訂單只會扣一次
type CartDepletionService struct {
	tx       db.TxManager
	depleter *CartDepleter
	logger   *zerolog.Logger
}

func NewCartDepletionService(tx db.TxManager, depleter *CartDepleter, logger *zerolog.Logger) *CartDepletionService {
	if tx == nil {
		panic("cart depletion service dependency tx manager is nil")
	}
	if depleter == nil {
		depleter = NewCartDepleter()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CartDepletionService{tx: tx, depleter: depleter, logger: logger}
}

// HandleDepletionRequested 訂單不存在或已扣除時直接略過
func (s *CartDepletionService) HandleDepletionRequested(ctx context.Context, evt model.CartDepletionRequestedEvent) error {
	var plan DepletionPlan
	skipped := false
	err := s.tx.Do(ctx, func(uow db.UnitOfWork) error {
		skipped = false
		order, err := uow.Orders().GetOrderForUpdate(ctx, evt.OrderID)
		if errors.Is(err, db.ErrOrderNotFound) {
			skipped = true
			return nil
		}
		if err != nil {
			return err
		}
		if order.CartDepleted || order.UserID != evt.UserID {
			skipped = true
			return nil
		}

		plan, err = s.depleter.Deplete(ctx, uow, order.UserID, evt.Items)
		if err != nil {
			return err
		}
		order.CartDepleted = true
		return uow.Orders().UpdateOrder(ctx, order)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", evt.OrderID).
		Bool("skipped", skipped).
		Int("deleted", len(plan.DeleteIDs)).
		Int("shrunk", len(plan.Updates)).
		Msg("cart depletion reconciled")
	return nil
}
