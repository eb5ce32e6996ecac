package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/middleware"
	"github.com/Tooba-Farooq/4eyes/internal/order"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (order.Order, error)
	CreateCheckoutSession(ctx context.Context, orderID string) (order.CheckoutSession, error)
	ListForUser(ctx context.Context, userID string) ([]order.Order, error)
	GetForUser(ctx context.Context, userID, orderID string) (order.Order, error)
}

type OrderHandler struct {
	svc     OrderService
	log     *zap.Logger
	timeout time.Duration
}

func NewOrderHandler(svc OrderService, log *zap.Logger, timeout time.Duration) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OrderHandler{svc: svc, log: log, timeout: timeout}
}

// PlaceOrder accepts guest and authenticated checkouts. An authenticated
// caller becomes the owner of the order.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var userID string
	if u, ok := middleware.GetUser(r.Context()); ok {
		userID = u.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.svc.PlaceOrder(ctx, req.input(userID))
	if err != nil {
		var (
			ve *order.ValidationError
			se *order.StockShortageError
		)
		switch {
		case errors.As(err, &ve):
			writeFieldErrors(w, ve.Fields)
		case errors.As(err, &se):
			writeError(w, http.StatusBadRequest, se.Error())
		default:
			h.log.Error("place order failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		Message:       "Order placed successfully!",
		OrderID:       o.ID,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		Total:         money(o.TotalAmount),
	})
}

func (h *OrderHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.svc.CreateCheckoutSession(ctx, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrNotCardOrder), errors.Is(err, order.ErrNotAwaitingPayment):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, order.ErrProvider):
			h.log.Error("checkout session failed", zap.String("order_id", req.OrderID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
		default:
			h.log.Error("checkout session failed", zap.String("order_id", req.OrderID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, checkoutSessionResponse{CheckoutURL: sess.URL, SessionID: sess.ID})
}

func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.GetUser(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.ListForUser(ctx, u.ID)
	if err != nil {
		h.log.Error("list orders failed", zap.String("user_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}
	u, _ := middleware.GetUser(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.svc.GetForUser(ctx, u.ID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.log.Error("get order failed", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
