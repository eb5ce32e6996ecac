package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/payment"
)

// maxWebhookBytes bounds provider payloads; Stripe events are far smaller.
const maxWebhookBytes = 64 << 10

type WebhookVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

type PaymentConfirmer interface {
	Confirm(ctx context.Context, orderID, eventID string) (payment.Outcome, error)
}

type WebhookHandler struct {
	verifier  WebhookVerifier
	confirmer PaymentConfirmer
	log       *zap.Logger
	timeout   time.Duration
}

func NewWebhookHandler(v WebhookVerifier, c PaymentConfirmer, log *zap.Logger, timeout time.Duration) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookHandler{verifier: v, confirmer: c, log: log, timeout: timeout}
}

// Stripe handles provider callbacks. The router caps the body at
// maxWebhookBytes. Anything other than a verified, paid
// checkout.session.completed event is acknowledged without side effects.
// Database failures answer 500 so the provider redelivers.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ev, err := h.verifier.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.Warn("webhook signature rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	log := h.log.With(zap.String("event_id", ev.ID), zap.String("event_type", string(ev.Type)))
	if string(ev.Type) != payment.EventCheckoutCompleted {
		log.Debug("webhook event ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	sess, err := payment.SessionFromEvent(ev)
	if err != nil {
		log.Warn("webhook session unreadable", zap.Error(err))
		if errors.Is(err, payment.ErrMissingOrderID) {
			writeError(w, http.StatusBadRequest, "missing order id")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid checkout session")
		return
	}
	if !sess.Paid {
		log.Info("checkout completed without payment", zap.String("order_id", sess.OrderID))
		writeJSON(w, http.StatusOK, map[string]string{"status": "unpaid"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	outcome, err := h.confirmer.Confirm(ctx, sess.OrderID, ev.ID)
	if err != nil {
		if payment.IsNotFound(err) {
			log.Warn("webhook for unknown order", zap.String("order_id", sess.OrderID))
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error("payment confirmation failed", zap.String("order_id", sess.OrderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
