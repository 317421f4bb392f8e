package handler

import (
	"net/http"

	"github.com/RoyceAzure/lab/checkout/internal/api/dto"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler 使用者查詢訂單與提出取消/換貨申請, 以及管理者審核
type OrderHandler struct {
	checkoutService service.ICheckoutService
	requestService  service.IOrderRequestService
	logger          *zerolog.Logger
}

func NewOrderHandler(checkoutService service.ICheckoutService, requestService service.IOrderRequestService, logger *zerolog.Logger) *OrderHandler {
	if checkoutService == nil {
		panic("checkoutService cannot be nil")
	}
	if requestService == nil {
		panic("requestService cannot be nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OrderHandler{
		checkoutService: checkoutService,
		requestService:  requestService,
		logger:          logger,
	}
}

func (h *OrderHandler) respondOrder(w http.ResponseWriter, r *http.Request, order *model.Order, err error) {
	if err != nil {
		HandleServiceError(w, r, h.logger, err)
		return
	}
	SuccessJSON(w, dto.OrderResponse{Success: true, Order: dto.ConvertOrderModelToDTO(order)})
}

// Get GET /orders/{orderID}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	order, err := h.checkoutService.GetOrder(r.Context(), userID, chi.URLParam(r, "orderID"))
	h.respondOrder(w, r, order, err)
}

// RequestCancellation POST /orders/{orderID}/cancellation
func (h *OrderHandler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.CancellationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.requestService.RequestCancellation(r.Context(), userID, chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, order, err)
}

// RequestExchangeRefund POST /orders/{orderID}/exchange-refund
func (h *OrderHandler) RequestExchangeRefund(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.ExchangeRefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.requestService.RequestExchangeRefund(r.Context(), userID, chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, order, err)
}

func (h *OrderHandler) adminNote(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req dto.AdminNoteDTO
	if r.ContentLength == 0 {
		return "", true
	}
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	return req.Note, true
}

// ApproveCancellation POST /admin/orders/{orderID}/cancellation/approve
func (h *OrderHandler) ApproveCancellation(w http.ResponseWriter, r *http.Request) {
	note, ok := h.adminNote(w, r)
	if !ok {
		return
	}
	order, err := h.requestService.ApproveCancellation(r.Context(), chi.URLParam(r, "orderID"), note)
	h.respondOrder(w, r, order, err)
}

// RejectCancellation POST /admin/orders/{orderID}/cancellation/reject
func (h *OrderHandler) RejectCancellation(w http.ResponseWriter, r *http.Request) {
	note, ok := h.adminNote(w, r)
	if !ok {
		return
	}
	order, err := h.requestService.RejectCancellation(r.Context(), chi.URLParam(r, "orderID"), note)
	h.respondOrder(w, r, order, err)
}

// ApproveExchangeRefund POST /admin/orders/{orderID}/exchange-refund/approve
func (h *OrderHandler) ApproveExchangeRefund(w http.ResponseWriter, r *http.Request) {
	note, ok := h.adminNote(w, r)
	if !ok {
		return
	}
	order, err := h.requestService.ApproveExchangeRefund(r.Context(), chi.URLParam(r, "orderID"), note)
	h.respondOrder(w, r, order, err)
}

// RejectExchangeRefund POST /admin/orders/{orderID}/exchange-refund/reject
func (h *OrderHandler) RejectExchangeRefund(w http.ResponseWriter, r *http.Request) {
	note, ok := h.adminNote(w, r)
	if !ok {
		return
	}
	order, err := h.requestService.RejectExchangeRefund(r.Context(), chi.URLParam(r, "orderID"), note)
	h.respondOrder(w, r, order, err)
}

// UpdateShipping POST /admin/orders/{orderID}/shipping
func (h *OrderHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	var req service.ShippingUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.requestService.UpdateShippingStatus(r.Context(), chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, order, err)
}
