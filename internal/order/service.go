package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/catalog"
	"github.com/Tooba-Farooq/4eyes/internal/db"
	"github.com/Tooba-Farooq/4eyes/internal/inventory"
	"github.com/Tooba-Farooq/4eyes/internal/metrics"
)

// Store is the persistence the workflow needs; *Repository implements it.
type Store interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error
	GetByID(ctx context.Context, orderID string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	SetCheckoutSession(ctx context.Context, orderID, sessionID string) error
}

type PriceQuoter interface {
	QuotePricesWithTx(ctx context.Context, tx pgx.Tx, ids []string) (map[string]catalog.PriceQuote, error)
}

type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

type EventPublisher interface {
	OrderPlaced(ctx context.Context, o Order) error
}

type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Deps struct {
	DB       db.TxBeginner
	Orders   Store
	Catalog  PriceQuoter
	Stock    inventory.Reserver
	Checkout CheckoutCreator
	Events   EventPublisher
	Metrics  *metrics.Recorder
	Logger   *zap.Logger

	CheckoutConfig CheckoutConfig
}

type Service struct {
	db       db.TxBeginner
	orders   Store
	catalog  PriceQuoter
	stock    inventory.Reserver
	checkout CheckoutCreator
	events   EventPublisher
	metrics  *metrics.Recorder
	log      *zap.Logger
	cfg      CheckoutConfig
}

func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       d.DB,
		orders:   d.Orders,
		catalog:  d.Catalog,
		stock:    d.Stock,
		checkout: d.Checkout,
		events:   d.Events,
		metrics:  d.Metrics,
		log:      log,
		cfg:      d.CheckoutConfig,
	}
}

// PlaceOrder validates the cart, snapshots prices and persists the order with
// its items in one transaction. Pay-on-delivery orders reserve stock in the
// same transaction and are confirmed immediately; card orders wait for
// payment and leave stock untouched. Nothing is written when it fails.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Order, error) {
	if err := validateInput(in); err != nil {
		s.metrics.OrderRejected("validation")
		return Order{}, err
	}

	ids := make([]string, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	var placed Order
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		quotes, err := s.catalog.QuotePricesWithTx(ctx, tx, ids)
		if err != nil {
			return err
		}

		o := Order{
			UserID:        in.UserID,
			CustomerName:  in.CustomerName,
			Email:         in.Email,
			Phone:         in.Phone,
			Address:       in.Address,
			City:          in.City,
			PostalCode:    in.PostalCode,
			PaymentMethod: in.PaymentMethod,
			TotalAmount:   decimal.Zero,
		}
		missing := Fields{}
		lines := make([]inventory.Line, 0, len(in.Items))
		for i, req := range in.Items {
			q, ok := quotes[req.ProductID]
			if !ok {
				missing[fmt.Sprintf("items[%d].product_id", i)] = "product not found"
				continue
			}
			it := Item{ProductID: req.ProductID, ProductName: q.Name, Quantity: req.Quantity, Price: q.Price}
			o.Items = append(o.Items, it)
			o.TotalAmount = o.TotalAmount.Add(it.Subtotal())
			lines = append(lines, inventory.Line{ProductID: req.ProductID, Quantity: req.Quantity})
		}
		if len(missing) > 0 {
			return &ValidationError{Fields: missing}
		}

		switch o.PaymentMethod {
		case PaymentCOD:
			res, err := s.stock.ReserveWithTx(ctx, tx, lines)
			if err != nil {
				return err
			}
			if res.Short() {
				d := res.Depleted[0]
				return &StockShortageError{ProductID: d.ProductID, Name: d.Name, Requested: d.Requested, Available: d.Available}
			}
			o.Status = StatusConfirmed
		case PaymentCard:
			o.Status = StatusAwaitingPayment
		}

		if err := s.orders.CreateWithTx(ctx, tx, &o); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		s.rejected(err)
		return Order{}, err
	}

	s.log.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("payment_method", string(placed.PaymentMethod)),
		zap.String("status", string(placed.Status)),
		zap.String("total", placed.TotalAmount.StringFixed(2)),
	)
	s.metrics.OrderPlaced(string(placed.PaymentMethod))
	if s.events != nil {
		if err := s.events.OrderPlaced(ctx, placed); err != nil {
			s.log.Warn("publish order placed failed", zap.String("order_id", placed.ID), zap.Error(err))
		}
	}
	return placed, nil
}

func (s *Service) rejected(err error) {
	var (
		ve *ValidationError
		se *StockShortageError
	)
	switch {
	case errors.As(err, &ve):
		s.metrics.OrderRejected("validation")
	case errors.As(err, &se):
		s.log.Info("order rejected", zap.String("reason", se.Error()))
		s.metrics.OrderRejected("insufficient_stock")
	default:
		s.metrics.OrderRejected("error")
	}
}

func validateInput(in PlaceOrderInput) error {
	fields := Fields{}
	if !in.PaymentMethod.Valid() {
		fields["payment_method"] = "must be one of cod, card"
	}
	if len(in.Items) == 0 {
		fields["items"] = "must contain at least one item"
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			fields[fmt.Sprintf("items[%d].product_id", i)] = "is required"
		}
		if it.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be greater than 0"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CreateCheckoutSession opens a provider checkout session for a card order
// that is still awaiting payment and records the session id on the order.
func (s *Service) CreateCheckoutSession(ctx context.Context, orderID string) (CheckoutSession, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if o.PaymentMethod != PaymentCard {
		return CheckoutSession{}, ErrNotCardOrder
	}
	if o.IsPaid || o.Status != StatusAwaitingPayment {
		return CheckoutSession{}, ErrNotAwaitingPayment
	}

	req := CheckoutRequest{
		OrderID:       o.ID,
		CustomerEmail: o.Email,
		Currency:      s.cfg.Currency,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	}
	for _, it := range o.Items {
		req.Lines = append(req.Lines, CheckoutLine{
			Name:       it.ProductName,
			Quantity:   it.Quantity,
			UnitAmount: MinorUnits(it.Price),
		})
	}

	sess, err := s.checkout.CreateCheckoutSession(ctx, req)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if err := s.orders.SetCheckoutSession(ctx, o.ID, sess.ID); err != nil {
		return CheckoutSession{}, err
	}

	s.log.Info("checkout session created", zap.String("order_id", o.ID), zap.String("session_id", sess.ID))
	return sess, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// GetForUser returns one of the user's orders. Orders owned by someone else
// are reported as not found.
func (s *Service) GetForUser(ctx context.Context, userID, orderID string) (Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID == "" || o.UserID != userID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// MinorUnits converts a price to the currency's smallest unit, e.g. cents.
func MinorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}
