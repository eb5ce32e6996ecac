package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/db"
	"github.com/Tooba-Farooq/4eyes/internal/dedup"
	"github.com/Tooba-Farooq/4eyes/internal/inventory"
	"github.com/Tooba-Farooq/4eyes/internal/metrics"
	"github.com/Tooba-Farooq/4eyes/internal/order"
)

type Outcome string

const (
	OutcomeConfirmed          Outcome = "confirmed"
	OutcomeStockFailed        Outcome = "stock_failed"
	OutcomeAlreadyPaid        Outcome = "already_paid"
	OutcomeAlreadyFailed      Outcome = "already_failed"
	OutcomeDuplicateEvent     Outcome = "duplicate_event"
	OutcomeNotAwaitingPayment Outcome = "not_awaiting_payment"
)

type Orders interface {
	GetByID(ctx context.Context, orderID string) (order.Order, error)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID string) (order.Order, error)
	ItemsWithTx(ctx context.Context, q order.Querier, orderID string) ([]order.Item, error)
	MarkPaidWithTx(ctx context.Context, tx pgx.Tx, orderID string) error
	MarkStockFailedWithTx(ctx context.Context, tx pgx.Tx, orderID string) error
}

// EventLog remembers which provider events were already applied.
type EventLog interface {
	Claim(ctx context.Context, tx pgx.Tx, eventID, orderID string) (bool, error)
	SetOutcome(ctx context.Context, tx pgx.Tx, eventID, outcome string) error
	Outcome(ctx context.Context, tx pgx.Tx, eventID string) (string, bool, error)
}

type EventPublisher interface {
	OrderPaid(ctx context.Context, o order.Order, providerEventID string) error
	OrderStockFailed(ctx context.Context, o order.Order, providerEventID string, depleted []inventory.DepletedLine) error
}

// NewEventLog binds the dedup repository to the confirmation transaction.
func NewEventLog(repo *dedup.Repository) EventLog {
	return dedupLog{repo: repo}
}

type dedupLog struct {
	repo *dedup.Repository
}

func (d dedupLog) Claim(ctx context.Context, tx pgx.Tx, eventID, orderID string) (bool, error) {
	return d.repo.WithExecutor(tx).Claim(ctx, eventID, orderID)
}

func (d dedupLog) SetOutcome(ctx context.Context, tx pgx.Tx, eventID, outcome string) error {
	return d.repo.WithExecutor(tx).SetOutcome(ctx, eventID, outcome)
}

func (d dedupLog) Outcome(ctx context.Context, tx pgx.Tx, eventID string) (string, bool, error) {
	return d.repo.WithExecutor(tx).Outcome(ctx, eventID)
}

type ConfirmerDeps struct {
	DB      db.TxBeginner
	Orders  Orders
	Stock   inventory.Reserver
	Events  EventLog
	Publish EventPublisher
	Metrics *metrics.Recorder
	Logger  *zap.Logger
}

// Confirmer finalizes card orders when the provider reports a completed
// checkout. Applying the same confirmation twice has the same effect as
// applying it once.
type Confirmer struct {
	db      db.TxBeginner
	orders  Orders
	stock   inventory.Reserver
	events  EventLog
	publish EventPublisher
	metrics *metrics.Recorder
	log     *zap.Logger
}

func NewConfirmer(d ConfirmerDeps) *Confirmer {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Confirmer{
		db:      d.DB,
		orders:  d.Orders,
		stock:   d.Stock,
		events:  d.Events,
		publish: d.Publish,
		metrics: d.Metrics,
		log:     log,
	}
}

// Confirm applies a completed payment to orderID. eventID is the provider
// event id. order.ErrNotFound is returned for unknown orders; a stock
// shortage is a normal outcome, not an error.
func (c *Confirmer) Confirm(ctx context.Context, orderID, eventID string) (Outcome, error) {
	log := c.log.With(zap.String("order_id", orderID), zap.String("event_id", eventID))

	o, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if outcome, done := settled(o); done {
		log.Info("payment confirmation skipped", zap.String("outcome", string(outcome)))
		c.metrics.PaymentConfirmation(string(outcome))
		return outcome, nil
	}

	var (
		outcome  Outcome
		depleted []inventory.DepletedLine
		recorded string
	)
	err = db.InTx(ctx, c.db, func(tx pgx.Tx) error {
		locked, err := c.orders.GetForUpdateWithTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if out, done := settled(locked); done {
			outcome = out
			return nil
		}

		claimed, err := c.events.Claim(ctx, tx, eventID, orderID)
		if err != nil {
			return err
		}
		if !claimed {
			outcome = OutcomeDuplicateEvent
			recorded, _, err = c.events.Outcome(ctx, tx, eventID)
			return err
		}

		items, err := c.orders.ItemsWithTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		lines := make([]inventory.Line, 0, len(items))
		for _, it := range items {
			lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		res, err := c.stock.ReserveWithTx(ctx, tx, lines)
		if err != nil {
			return err
		}
		if res.Short() {
			if err := c.orders.MarkStockFailedWithTx(ctx, tx, orderID); err != nil {
				return err
			}
			outcome, depleted = OutcomeStockFailed, res.Depleted
		} else {
			if err := c.orders.MarkPaidWithTx(ctx, tx, orderID); err != nil {
				return err
			}
			outcome = OutcomeConfirmed
		}
		return c.events.SetOutcome(ctx, tx, eventID, string(outcome))
	})
	if err != nil {
		c.metrics.PaymentConfirmation("error")
		return "", fmt.Errorf("confirm order %s: %w", orderID, err)
	}
	c.metrics.PaymentConfirmation(string(outcome))

	switch outcome {
	case OutcomeConfirmed:
		log.Info("payment confirmed")
		o.IsPaid, o.Status = true, order.StatusConfirmed
		if c.publish != nil {
			if err := c.publish.OrderPaid(ctx, o, eventID); err != nil {
				log.Warn("publish order paid failed", zap.Error(err))
			}
		}
	case OutcomeStockFailed:
		log.Warn("payment received but stock is insufficient; order needs manual handling",
			zap.Any("depleted", depleted))
		o.Status = order.StatusFailedInsufficient
		if c.publish != nil {
			if err := c.publish.OrderStockFailed(ctx, o, eventID, depleted); err != nil {
				log.Warn("publish stock failure event failed", zap.Error(err))
			}
		}
	case OutcomeDuplicateEvent:
		log.Info("payment confirmation skipped",
			zap.String("outcome", string(outcome)),
			zap.String("recorded_outcome", recorded))
	default:
		log.Info("payment confirmation skipped", zap.String("outcome", string(outcome)))
	}
	return outcome, nil
}

// settled reports whether the order no longer accepts a payment confirmation.
func settled(o order.Order) (Outcome, bool) {
	switch {
	case o.IsPaid:
		return OutcomeAlreadyPaid, true
	case o.Status == order.StatusFailedInsufficient:
		return OutcomeAlreadyFailed, true
	case o.PaymentMethod != order.PaymentCard || !order.CanTransition(o.Status, order.StatusConfirmed):
		return OutcomeNotAwaitingPayment, true
	}
	return "", false
}

// IsNotFound reports whether err means the referenced order does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, order.ErrNotFound)
}
