package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Tooba-Farooq/4eyes/internal/catalog"
	"github.com/Tooba-Farooq/4eyes/internal/inventory"
)

type memProduct struct {
	name  string
	price decimal.Decimal
	stock int
}

// memDB is an in-memory stand-in for Postgres. Every transaction works on a
// copy of the stock levels and pending orders that only Commit publishes.
type memDB struct {
	products map[string]*memProduct
	orders   map[string]Order
	sessions map[string]string

	createErr error
}

func newMemDB() *memDB {
	return &memDB{
		products: map[string]*memProduct{},
		orders:   map[string]Order{},
		sessions: map[string]string{},
	}
}

func (m *memDB) addProduct(id, name, price string, stock int) {
	m.products[id] = &memProduct{name: name, price: decimal.RequireFromString(price), stock: stock}
}

func (m *memDB) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	stock := make(map[string]int, len(m.products))
	for id, p := range m.products {
		stock[id] = p.stock
	}
	return &memTx{db: m, stock: stock}, nil
}

type memTx struct {
	pgx.Tx

	db      *memDB
	stock   map[string]int
	pending []Order
	closed  bool
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	for id, n := range tx.stock {
		tx.db.products[id].stock = n
	}
	for _, o := range tx.pending {
		tx.db.orders[o.ID] = o
	}
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	return nil
}

type memCatalog struct{}

func (memCatalog) QuotePricesWithTx(ctx context.Context, tx pgx.Tx, ids []string) (map[string]catalog.PriceQuote, error) {
	mt := tx.(*memTx)
	out := map[string]catalog.PriceQuote{}
	for _, id := range ids {
		if p, ok := mt.db.products[id]; ok {
			out[id] = catalog.PriceQuote{ProductID: id, Name: p.name, Price: p.price}
		}
	}
	return out, nil
}

type memStock struct {
	calls int
}

func (s *memStock) ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []inventory.Line) (inventory.ReserveResult, error) {
	s.calls++
	mt := tx.(*memTx)
	want := map[string]int{}
	var order []string
	for _, l := range lines {
		if _, ok := want[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		want[l.ProductID] += l.Quantity
	}
	var res inventory.ReserveResult
	for _, id := range order {
		if mt.stock[id] < want[id] {
			name := ""
			if p, ok := mt.db.products[id]; ok {
				name = p.name
			}
			res.Depleted = append(res.Depleted, inventory.DepletedLine{ProductID: id, Name: name, Requested: want[id], Available: mt.stock[id]})
		}
	}
	if res.Short() {
		return res, nil
	}
	for _, l := range lines {
		mt.stock[l.ProductID] -= l.Quantity
		res.Reserved = append(res.Reserved, l)
	}
	return res, nil
}

type memStore struct {
	db *memDB
}

func (s memStore) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if s.db.createErr != nil {
		return s.db.createErr
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	for i := range o.Items {
		o.Items[i].Position = i
	}
	mt := tx.(*memTx)
	mt.pending = append(mt.pending, *o)
	return nil
}

func (s memStore) GetByID(ctx context.Context, orderID string) (Order, error) {
	o, ok := s.db.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s memStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range s.db.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s memStore) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	o, ok := s.db.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.CheckoutSessionID = sessionID
	s.db.orders[orderID] = o
	return nil
}

type fakeCheckout struct {
	reqs []CheckoutRequest
	err  error
}

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return CheckoutSession{}, f.err
	}
	return CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}, nil
}

type fakeEvents struct {
	placed []Order
	err    error
}

func (f *fakeEvents) OrderPlaced(ctx context.Context, o Order) error {
	f.placed = append(f.placed, o)
	return f.err
}

var errBoom = errors.New("boom")
