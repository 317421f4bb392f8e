package handler

import (
	"net/http"
	"strconv"

	"github.com/RoyceAzure/lab/checkout/internal/api/dto"
	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/service"
	"github.com/rs/zerolog"
)

type CheckoutHandler struct {
	checkoutService service.ICheckoutService
	logger          *zerolog.Logger
}

func NewCheckoutHandler(checkoutService service.ICheckoutService, logger *zerolog.Logger) *CheckoutHandler {
	if checkoutService == nil {
		panic("checkoutService cannot be nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// PreOrder POST /orders/preorder
func (h *CheckoutHandler) PreOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.PreOrderDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.checkoutService.CreatePreOrder(r.Context(), userID, req.Items)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	SuccessJSON(w, dto.PreOrderResponse{
		Success:     true,
		RedirectURL: res.RedirectURL,
		PreOrderKey: res.PreOrderKey,
		Amount:      res.Amount,
	})
}

// RequestPayment POST /payments/request
func (h *CheckoutHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.UsePointsDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.checkoutService.PreparePayment(r.Context(), userID, req.PreOrderKey, req.UsedPoint)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.PaymentRequestResponse{Success: true, PaymentRequest: res})
}

// AttachPoints POST /payments/points
func (h *CheckoutHandler) AttachPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.UsePointsDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	snapshot, err := h.checkoutService.AttachPoints(r.Context(), userID, req.PreOrderKey, req.UsedPoint)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.AttachPointsResponse{
		Success:     true,
		PreOrderKey: req.PreOrderKey,
		Amount:      snapshot.Amount,
		UsedPoint:   snapshot.Points(),
	})
}

/*
Confirm GET|POST /payments/toss/confirm
閘道導回時參數在query, 伺服器主動確認時在body
*/
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.ConfirmDTO
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	q := r.URL.Query()
	if req.PaymentKey == "" {
		req.PaymentKey = q.Get("paymentKey")
	}
	if req.OrderID == "" {
		req.OrderID = q.Get("orderId")
	}
	if req.PreOrderKey == "" {
		req.PreOrderKey = q.Get("preOrderKey")
	}
	if req.Amount == 0 && q.Get("amount") != "" {
		amount, err := strconv.ParseInt(q.Get("amount"), 10, 64)
		if err != nil {
			ErrorJSON(w, http.StatusBadRequest, string(errs.CodeValidation), "invalid amount")
			return
		}
		req.Amount = amount
	}

	res, err := h.checkoutService.ConfirmPayment(r.Context(), userID, service.ConfirmRequest{
		PaymentKey:  req.PaymentKey,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		PreOrderKey: req.PreOrderKey,
	})
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.ConfirmResponse{
		Success:          true,
		OrderID:          res.OrderID,
		AlreadyProcessed: res.AlreadyProcessed,
	})
}

// Fail GET /payments/toss/fail?preOrderKey=
func (h *CheckoutHandler) Fail(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	key := r.URL.Query().Get("preOrderKey")
	if err := h.checkoutService.FailPayment(r.Context(), userID, key); err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info().
		Int64("user_id", userID).
		Str("code", r.URL.Query().Get("code")).
		Str("message", r.URL.Query().Get("message")).
		Msg("payment failed or cancelled at gateway")
	SuccessJSON(w, dto.SuccessResponse{Success: true, Message: "payment cancelled"})
}

// PointOnly POST /payments/point-only
func (h *CheckoutHandler) PointOnly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.PointOnlyDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.checkoutService.PayWithPointsOnly(r.Context(), userID, req.PreOrderKey, req.UsedPoints)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.PointOnlyResponse{
		Success:     true,
		OrderID:     res.OrderID,
		RedirectURL: res.RedirectURL,
	})
}

// VirtualAccount POST /orders/virtual-account
func (h *CheckoutHandler) VirtualAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.PreOrderKeyDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.checkoutService.CreateVirtualAccountOrder(r.Context(), userID, req.PreOrderKey)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.OrderResponse{Success: true, Order: dto.ConvertOrderModelToDTO(order)})
}

// PointBalance GET /points/balance
func (h *CheckoutHandler) PointBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	balance, err := h.checkoutService.GetPointBalance(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.PointBalanceResponse{Success: true, Balance: balance})
}
