package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tooba-Farooq/4eyes/internal/order"
	"github.com/Tooba-Farooq/4eyes/internal/payment"
)

const testWebhookSecret = "whsec_test_secret"

func stripeEvent(t *testing.T, id, typ string, session map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        typ,
		"api_version": "2020-08-27",
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": session},
	})
	require.NoError(t, err)
	return raw
}

func paidSession(orderID string) map[string]any {
	return map[string]any{
		"id":             "cs_test_1",
		"object":         "checkout.session",
		"payment_status": "paid",
		"metadata":       map[string]string{"order_id": orderID},
	}
}

func postWebhook(t *testing.T, h http.Handler, payload []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", bytes.NewReader(payload))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func signed(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret}).Header
}

func TestStripeWebhook_Confirms(t *testing.T) {
	conf := &fakeConfirmer{confirmFunc: func(ctx context.Context, oid, eventID string) (payment.Outcome, error) {
		assert.Equal(t, orderID, oid)
		assert.Equal(t, "evt_1", eventID)
		return payment.OutcomeConfirmed, nil
	}}
	h := newTestRouter(Deps{Confirmer: conf})

	payload := stripeEvent(t, "evt_1", "checkout.session.completed", paidSession(orderID))
	rr := postWebhook(t, h, payload, signed(payload, testWebhookSecret))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "confirmed", decodeBody(t, rr)["status"])
	assert.Equal(t, 1, conf.calls)
}

func TestStripeWebhook_StockFailureIsStillOK(t *testing.T) {
	conf := &fakeConfirmer{confirmFunc: func(ctx context.Context, oid, eventID string) (payment.Outcome, error) {
		return payment.OutcomeStockFailed, nil
	}}
	h := newTestRouter(Deps{Confirmer: conf})

	payload := stripeEvent(t, "evt_2", "checkout.session.completed", paidSession(orderID))
	rr := postWebhook(t, h, payload, signed(payload, testWebhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "stock_failed", decodeBody(t, rr)["status"])
}

func TestStripeWebhook_Rejections(t *testing.T) {
	valid := stripeEvent(t, "evt_3", "checkout.session.completed", paidSession(orderID))
	validSig := signed(valid, testWebhookSecret)
	noOrder := stripeEvent(t, "evt_5", "checkout.session.completed", map[string]any{
		"id": "cs_test_2", "object": "checkout.session", "payment_status": "paid",
	})

	tests := []struct {
		name    string
		payload []byte
		sig     string
		confErr error
		status  int
		calls   int
	}{
		{name: "missing signature", payload: valid, status: http.StatusBadRequest},
		{name: "wrong secret", payload: valid, sig: signed(valid, "whsec_other"), status: http.StatusBadRequest},
		{
			name:    "tampered body",
			payload: bytes.Replace(valid, []byte("evt_3"), []byte("evt_4"), 1),
			sig:     validSig,
			status:  http.StatusBadRequest,
		},
		{name: "missing order id", payload: noOrder, sig: signed(noOrder, testWebhookSecret), status: http.StatusBadRequest},
		{name: "unknown order", payload: valid, sig: validSig, confErr: order.ErrNotFound, status: http.StatusNotFound, calls: 1},
		{name: "database failure", payload: valid, sig: validSig, confErr: errors.New("deadlock detected"), status: http.StatusInternalServerError, calls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &fakeConfirmer{confirmFunc: func(ctx context.Context, oid, eventID string) (payment.Outcome, error) {
				return "", tt.confErr
			}}
			h := newTestRouter(Deps{Confirmer: conf})

			rr := postWebhook(t, h, tt.payload, tt.sig)

			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.calls, conf.calls)
		})
	}
}

func TestStripeWebhook_AcknowledgedWithoutAction(t *testing.T) {
	tests := []struct {
		name    string
		payload func(t *testing.T) []byte
		status  string
	}{
		{
			name: "other event type",
			payload: func(t *testing.T) []byte {
				return stripeEvent(t, "evt_6", "payment_intent.created", map[string]any{"id": "pi_1", "object": "payment_intent"})
			},
			status: "ignored",
		},
		{
			name: "unpaid session",
			payload: func(t *testing.T) []byte {
				s := paidSession(orderID)
				s["payment_status"] = "unpaid"
				return stripeEvent(t, "evt_7", "checkout.session.completed", s)
			},
			status: "unpaid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &fakeConfirmer{}
			h := newTestRouter(Deps{Confirmer: conf})

			payload := tt.payload(t)
			rr := postWebhook(t, h, payload, signed(payload, testWebhookSecret))

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.status, decodeBody(t, rr)["status"])
			assert.Zero(t, conf.calls)
		})
	}
}

func TestStripeWebhook_PayloadTooLarge(t *testing.T) {
	conf := &fakeConfirmer{}
	h := newTestRouter(Deps{Confirmer: conf})

	payload := bytes.Repeat([]byte("a"), maxWebhookBytes+1)
	rr := postWebhook(t, h, payload, signed(payload, testWebhookSecret))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Zero(t, conf.calls)
}
