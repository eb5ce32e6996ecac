package events

import "time"

type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID       string     `json:"orderId"`
	UserID        string     `json:"userId,omitempty"`
	PaymentMethod string     `json:"paymentMethod"`
	Status        string     `json:"status"`
	TotalAmount   string     `json:"totalAmount"`
	Items         []LineItem `json:"items"`
	Timestamp     time.Time  `json:"timestamp"`
}

type OrderPaidPayload struct {
	OrderID         string    `json:"orderId"`
	UserID          string    `json:"userId,omitempty"`
	TotalAmount     string    `json:"totalAmount"`
	ProviderEventID string    `json:"providerEventId"`
	Timestamp       time.Time `json:"timestamp"`
}

type DepletedLine struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type OrderStockFailedPayload struct {
	OrderID         string         `json:"orderId"`
	UserID          string         `json:"userId,omitempty"`
	ProviderEventID string         `json:"providerEventId"`
	Depleted        []DepletedLine `json:"depleted"`
	Timestamp       time.Time      `json:"timestamp"`
}

// legacyEvent is the flat shape published when envelopes are disabled.
type legacyEvent struct {
	EventType string `json:"eventType"`
	Payload   any    `json:"payload"`
}
