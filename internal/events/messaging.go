package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "ecommerce.events"

	OrderPlacedRoutingKey      = "order.placed.v1"
	OrderPaidRoutingKey        = "order.paid.v1"
	OrderStockFailedRoutingKey = "order.stock_failed.v1"

	EventTypeOrderPlaced      = "OrderPlaced"
	EventTypeOrderPaid        = "OrderPaid"
	EventTypeOrderStockFailed = "OrderStockFailed"

	orderPlacedSchema      = "contracts/events/order/OrderPlaced.v1.payload.schema.json"
	orderPaidSchema        = "contracts/events/order/OrderPaid.v1.payload.schema.json"
	orderStockFailedSchema = "contracts/events/order/OrderStockFailed.v1.payload.schema.json"

	defaultProducer = "storefront"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func DialRabbit(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}
