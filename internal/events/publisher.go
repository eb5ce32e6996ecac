package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Tooba-Farooq/4eyes/internal/inventory"
	"github.com/Tooba-Farooq/4eyes/internal/middleware"
	"github.com/Tooba-Farooq/4eyes/internal/order"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Sequencer interface {
	Next(ctx context.Context, partitionKey string) (int64, error)
}

type Publisher struct {
	ch                 Channel
	seq                Sequencer
	publishEnveloped   bool
	producerIdentifier string
	now                func() time.Time
}

type PublisherOptions struct {
	PublishEnveloped bool
	Producer         string
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch Channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	return &Publisher{
		ch:                 ch,
		seq:                seq,
		publishEnveloped:   opts.PublishEnveloped,
		producerIdentifier: producer,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) OrderPlaced(ctx context.Context, o order.Order) error {
	payload := OrderPlacedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Timestamp:     p.now(),
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		})
	}
	return p.publish(ctx, eventSpec{
		name:       EventTypeOrderPlaced,
		routingKey: OrderPlacedRoutingKey,
		schema:     orderPlacedSchema,
	}, o.ID, "", payload)
}

// OrderPaid announces a confirmed card payment. providerEventID is the
// webhook event that caused it.
func (p *Publisher) OrderPaid(ctx context.Context, o order.Order, providerEventID string) error {
	payload := OrderPaidPayload{
		OrderID:         o.ID,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		ProviderEventID: providerEventID,
		Timestamp:       p.now(),
	}
	return p.publish(ctx, eventSpec{
		name:       EventTypeOrderPaid,
		routingKey: OrderPaidRoutingKey,
		schema:     orderPaidSchema,
	}, o.ID, providerEventID, payload)
}

func (p *Publisher) OrderStockFailed(ctx context.Context, o order.Order, providerEventID string, depleted []inventory.DepletedLine) error {
	payload := OrderStockFailedPayload{
		OrderID:         o.ID,
		UserID:          o.UserID,
		ProviderEventID: providerEventID,
		Timestamp:       p.now(),
	}
	for _, d := range depleted {
		payload.Depleted = append(payload.Depleted, DepletedLine{
			ProductID: d.ProductID,
			Requested: d.Requested,
			Available: d.Available,
		})
	}
	return p.publish(ctx, eventSpec{
		name:       EventTypeOrderStockFailed,
		routingKey: OrderStockFailedRoutingKey,
		schema:     orderStockFailedSchema,
	}, o.ID, providerEventID, payload)
}

type eventSpec struct {
	name       string
	routingKey string
	schema     string
}

func (p *Publisher) publish(ctx context.Context, def eventSpec, partitionKey, causationID string, payload any) error {
	if !p.publishEnveloped {
		body, err := json.Marshal(legacyEvent{EventType: def.name, Payload: payload})
		if err != nil {
			return fmt.Errorf("marshal %s: %w", def.name, err)
		}
		return p.publishJSON(ctx, def.routingKey, body)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", def.name, err)
	}
	env := EventEnvelope{
		EventName:     def.name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		CausationID:   causationID,
		Producer:      p.producerIdentifier,
		PartitionKey:  partitionKey,
		OccurredAt:    p.now(),
		Schema:        def.schema,
		Payload:       raw,
	}
	if err := env.Validate(def.name, 1); err != nil {
		return fmt.Errorf("invalid %s envelope: %w", def.name, err)
	}
	if env.Sequence, err = p.seq.Next(ctx, partitionKey); err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", def.name, err)
	}
	return p.publishJSON(ctx, def.routingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Noop satisfies the publisher interfaces when no broker is configured.
type Noop struct{}

func (Noop) OrderPlaced(context.Context, order.Order) error { return nil }

func (Noop) OrderPaid(context.Context, order.Order, string) error { return nil }

func (Noop) OrderStockFailed(context.Context, order.Order, string, []inventory.DepletedLine) error {
	return nil
}

func (Noop) Close() error { return nil }
