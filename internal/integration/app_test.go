//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/stretchr/testify/require"

	"github.com/Tooba-Farooq/4eyes/internal/account"
	"github.com/Tooba-Farooq/4eyes/internal/catalog"
	"github.com/Tooba-Farooq/4eyes/internal/dedup"
	"github.com/Tooba-Farooq/4eyes/internal/events"
	httpapi "github.com/Tooba-Farooq/4eyes/internal/http"
	"github.com/Tooba-Farooq/4eyes/internal/inventory"
	"github.com/Tooba-Farooq/4eyes/internal/metrics"
	"github.com/Tooba-Farooq/4eyes/internal/order"
	"github.com/Tooba-Farooq/4eyes/internal/payment"
)

const (
	webhookSecret = "whsec_integration"
	jwtSecret     = "integration-secret"
)

type stubCheckout struct{}

func (stubCheckout) CreateCheckoutSession(ctx context.Context, req order.CheckoutRequest) (order.CheckoutSession, error) {
	return order.CheckoutSession{ID: "cs_test_" + req.OrderID, URL: "https://checkout.stripe.test/" + req.OrderID}, nil
}

type publisher interface {
	order.EventPublisher
	payment.EventPublisher
}

type app struct {
	pool    *pgxpool.Pool
	handler http.Handler
	catalog *catalog.Repository
	metrics *metrics.Recorder
}

func newApp(t *testing.T, pool *pgxpool.Pool, pub publisher) *app {
	t.Helper()
	if pub == nil {
		pub = events.Noop{}
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = sqlDB.Close() })

	rec := metrics.New()
	orders := order.NewRepository(pool)
	stock := inventory.NewPostgresRepository(pool)
	cat := catalog.NewRepository(pool)

	svc := order.NewService(order.Deps{
		DB:             pool,
		Orders:         orders,
		Catalog:        cat,
		Stock:          stock,
		Checkout:       stubCheckout{},
		Events:         pub,
		Metrics:        rec,
		CheckoutConfig: order.CheckoutConfig{Currency: "usd"},
	})
	confirmer := payment.NewConfirmer(payment.ConfirmerDeps{
		DB:      pool,
		Orders:  orders,
		Stock:   stock,
		Events:  payment.NewEventLog(dedup.NewRepository(pool)),
		Publish: pub,
		Metrics: rec,
	})

	h := httpapi.NewRouter(httpapi.Deps{
		Metrics:        rec,
		DB:             pool,
		JWTSecret:      []byte(jwtSecret),
		RequestTimeout: 10 * time.Second,
		Orders:         svc,
		Verifier:       payment.NewWebhookVerifier(webhookSecret),
		Confirmer:      confirmer,
		Addresses:      account.NewAddressRepository(sqlDB),
		Favourites:     account.NewFavouriteRepository(sqlDB),
		Coupons:        account.NewCouponRepository(sqlDB),
		Stock:          stock,
	})
	return &app{pool: pool, handler: h, catalog: cat, metrics: rec}
}

func (a *app) seedProduct(t *testing.T, name, price string, stock int) string {
	t.Helper()
	ctx := context.Background()
	c := &catalog.Category{Name: "cat-" + name}
	require.NoError(t, a.catalog.CreateCategory(ctx, c))
	p := &catalog.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, CategoryID: c.ID}
	require.NoError(t, a.catalog.CreateProduct(ctx, p))
	return p.ID
}

func (a *app) stock(t *testing.T, productID string) int {
	t.Helper()
	var n int
	require.NoError(t, a.pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, productID).Scan(&n))
	return n
}

func (a *app) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, a.pool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n))
	return n
}

func (a *app) orderState(t *testing.T, orderID string) (status string, paid bool) {
	t.Helper()
	require.NoError(t, a.pool.QueryRow(context.Background(),
		`SELECT status, is_paid FROM orders WHERE id = $1`, orderID).Scan(&status, &paid))
	return status, paid
}

func (a *app) do(t *testing.T, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *app) placeOrder(t *testing.T, method string, items ...map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, "/place-order/", map[string]any{
		"customer_name":  "Ada Lovelace",
		"email":          "ada@example.com",
		"phone":          "555-0100",
		"address":        "1 Analytical St",
		"city":           "London",
		"postal_code":    "N1",
		"payment_method": method,
		"items":          items,
	}, "")
}

func item(productID string, qty int) map[string]any {
	return map[string]any{"product_id": productID, "quantity": qty}
}

func (a *app) webhook(t *testing.T, eventID, orderID string, secret string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        "checkout.session.completed",
		"api_version": "2020-08-27",
		"created":     time.Now().Unix(),
		"data": map[string]any{"object": map[string]any{
			"id":                  "cs_test_" + orderID,
			"object":              "checkout.session",
			"payment_status":      "paid",
			"client_reference_id": orderID,
			"metadata":            map[string]string{"order_id": orderID},
		}},
	})
	require.NoError(t, err)

	sig := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret}).Header
	req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sig)
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"token_type": "access",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}
