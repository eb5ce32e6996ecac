package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/Tooba-Farooq/4eyes/internal/order"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingOrderID   = errors.New("order id missing from checkout session")
)

// EventCheckoutCompleted is the only provider event type that changes state.
const EventCheckoutCompleted = "checkout.session.completed"

// StripeCheckout opens hosted Checkout sessions for card orders.
type StripeCheckout struct{}

func NewStripeCheckout(secretKey string) *StripeCheckout {
	stripe.Key = secretKey
	return &StripeCheckout{}
}

func (c *StripeCheckout) CreateCheckoutSession(ctx context.Context, req order.CheckoutRequest) (order.CheckoutSession, error) {
	params := checkoutParams(req)
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return order.CheckoutSession{}, err
	}
	return order.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func checkoutParams(req order.CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
				UnitAmount: stripe.Int64(l.UnitAmount),
			},
			Quantity: stripe.Int64(int64(l.Quantity)),
		})
	}
	params.AddMetadata("order_id", req.OrderID)
	return params
}

// WebhookVerifier authenticates provider callbacks against the endpoint secret.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the Stripe-Signature header over the raw body and decodes
// the event.
func (v *WebhookVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ev, nil
}

// CompletedSession is what a checkout.session.completed event tells us.
type CompletedSession struct {
	SessionID string
	OrderID   string
	Paid      bool
}

// SessionFromEvent extracts the order reference from a completed checkout
// session, preferring metadata over the client reference id.
func SessionFromEvent(ev stripe.Event) (CompletedSession, error) {
	if ev.Data == nil {
		return CompletedSession{}, fmt.Errorf("event %s has no data", ev.ID)
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return CompletedSession{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out := CompletedSession{
		SessionID: sess.ID,
		OrderID:   sess.Metadata["order_id"],
		Paid:      sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid,
	}
	if out.OrderID == "" {
		out.OrderID = sess.ClientReferenceID
	}
	if out.OrderID == "" {
		return out, ErrMissingOrderID
	}
	return out, nil
}
