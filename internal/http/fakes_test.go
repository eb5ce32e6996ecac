package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Tooba-Farooq/4eyes/internal/account"
	"github.com/Tooba-Farooq/4eyes/internal/inventory"
	"github.com/Tooba-Farooq/4eyes/internal/order"
	"github.com/Tooba-Farooq/4eyes/internal/payment"
)

var testSecret = []byte("test-secret")

type fakeOrders struct {
	placeFunc    func(ctx context.Context, in order.PlaceOrderInput) (order.Order, error)
	checkoutFunc func(ctx context.Context, orderID string) (order.CheckoutSession, error)
	listFunc     func(ctx context.Context, userID string) ([]order.Order, error)
	getFunc      func(ctx context.Context, userID, orderID string) (order.Order, error)
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (order.Order, error) {
	if f.placeFunc != nil {
		return f.placeFunc(ctx, in)
	}
	return order.Order{}, nil
}

func (f *fakeOrders) CreateCheckoutSession(ctx context.Context, orderID string) (order.CheckoutSession, error) {
	if f.checkoutFunc != nil {
		return f.checkoutFunc(ctx, orderID)
	}
	return order.CheckoutSession{}, nil
}

func (f *fakeOrders) ListForUser(ctx context.Context, userID string) ([]order.Order, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeOrders) GetForUser(ctx context.Context, userID, orderID string) (order.Order, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, userID, orderID)
	}
	return order.Order{}, order.ErrNotFound
}

type fakeConfirmer struct {
	confirmFunc func(ctx context.Context, orderID, eventID string) (payment.Outcome, error)
	calls       int
}

func (f *fakeConfirmer) Confirm(ctx context.Context, orderID, eventID string) (payment.Outcome, error) {
	f.calls++
	if f.confirmFunc != nil {
		return f.confirmFunc(ctx, orderID, eventID)
	}
	return payment.OutcomeConfirmed, nil
}

type fakeAddresses struct {
	listFunc   func(ctx context.Context, userID string) ([]account.Address, error)
	createFunc func(ctx context.Context, a *account.Address) error
	updateFunc func(ctx context.Context, a *account.Address) error
	deleteFunc func(ctx context.Context, userID, id string) error
}

func (f *fakeAddresses) ListByUser(ctx context.Context, userID string) ([]account.Address, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, userID)
	}
	return []account.Address{}, nil
}

func (f *fakeAddresses) Create(ctx context.Context, a *account.Address) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, a)
	}
	return nil
}

func (f *fakeAddresses) Update(ctx context.Context, a *account.Address) error {
	if f.updateFunc != nil {
		return f.updateFunc(ctx, a)
	}
	return nil
}

func (f *fakeAddresses) Delete(ctx context.Context, userID, id string) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, userID, id)
	}
	return nil
}

type fakeFavourites struct {
	listFunc   func(ctx context.Context, userID string) ([]account.Favourite, error)
	addFunc    func(ctx context.Context, userID, productID string) (account.Favourite, error)
	removeFunc func(ctx context.Context, userID, productID string) error
}

func (f *fakeFavourites) ListByUser(ctx context.Context, userID string) ([]account.Favourite, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeFavourites) Add(ctx context.Context, userID, productID string) (account.Favourite, error) {
	if f.addFunc != nil {
		return f.addFunc(ctx, userID, productID)
	}
	return account.Favourite{}, nil
}

func (f *fakeFavourites) Remove(ctx context.Context, userID, productID string) error {
	if f.removeFunc != nil {
		return f.removeFunc(ctx, userID, productID)
	}
	return nil
}

type fakeCoupons struct {
	listFunc  func(ctx context.Context, userID string) ([]account.Coupon, error)
	applyFunc func(ctx context.Context, userID, code string, total decimal.Decimal) (account.Applied, error)
}

func (f *fakeCoupons) ListValidForUser(ctx context.Context, userID string) ([]account.Coupon, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeCoupons) Apply(ctx context.Context, userID, code string, total decimal.Decimal) (account.Applied, error) {
	if f.applyFunc != nil {
		return f.applyFunc(ctx, userID, code, total)
	}
	return account.Applied{}, account.ErrCouponInvalid
}

type fakeStock struct {
	getFunc func(ctx context.Context, productID string) (inventory.StockItem, error)
	setFunc func(ctx context.Context, productID string, available int) error
}

func (f *fakeStock) Get(ctx context.Context, productID string) (inventory.StockItem, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, productID)
	}
	return inventory.StockItem{}, inventory.ErrNotFound
}

func (f *fakeStock) SetAvailable(ctx context.Context, productID string, available int) error {
	if f.setFunc != nil {
		return f.setFunc(ctx, productID, available)
	}
	return nil
}

// newTestRouter fills every dependency the caller left empty with a fake.
func newTestRouter(d Deps) http.Handler {
	d.JWTSecret = testSecret
	if d.Orders == nil {
		d.Orders = &fakeOrders{}
	}
	if d.Confirmer == nil {
		d.Confirmer = &fakeConfirmer{}
	}
	if d.Verifier == nil {
		d.Verifier = payment.NewWebhookVerifier(testWebhookSecret)
	}
	if d.Addresses == nil {
		d.Addresses = &fakeAddresses{}
	}
	if d.Favourites == nil {
		d.Favourites = &fakeFavourites{}
	}
	if d.Coupons == nil {
		d.Coupons = &fakeCoupons{}
	}
	if d.Stock == nil {
		d.Stock = &fakeStock{}
	}
	return NewRouter(d)
}

func bearer(t *testing.T, userID string, staff bool) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"is_staff":   staff,
		"token_type": "access",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, h http.Handler, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func jsonDecode(rr *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rr.Body).Decode(v)
}
