package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentCard
}

// Item is an immutable order line. Price is the unit price snapshot taken
// when the order was placed.
type Item struct {
	ID          string          `json:"id"`
	Position    int             `json:"position"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal is Price × Quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId,omitempty"`
	CustomerName      string          `json:"customerName"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	Address           string          `json:"address"`
	City              string          `json:"city"`
	PostalCode        string          `json:"postalCode"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	IsPaid            bool            `json:"isPaid"`
	Status            Status          `json:"status"`
	CheckoutSessionID string          `json:"checkoutSessionId,omitempty"`
	Items             []Item          `json:"items"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ItemRequest is one requested cart line, in the order the client sent it.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	// UserID is empty for guest checkout.
	UserID        string
	CustomerName  string
	Email         string
	Phone         string
	Address       string
	City          string
	PostalCode    string
	PaymentMethod PaymentMethod
	Items         []ItemRequest
}

type CheckoutSession struct {
	ID  string
	URL string
}

type CheckoutLine struct {
	Name     string
	Quantity int
	// UnitAmount is in the currency's minor unit.
	UnitAmount int64
}

type CheckoutRequest struct {
	OrderID       string
	CustomerEmail string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Lines         []CheckoutLine
}
