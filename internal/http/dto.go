package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tooba-Farooq/4eyes/internal/account"
	"github.com/Tooba-Farooq/4eyes/internal/order"
)

type placeOrderItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// placeOrderRequest is the checkout form. Any total sent by the client is
// ignored; the server prices the order.
type placeOrderRequest struct {
	CustomerName  string           `json:"customer_name" validate:"required,max=200"`
	Email         string           `json:"email" validate:"required,email"`
	Phone         string           `json:"phone" validate:"required,max=20"`
	Address       string           `json:"address" validate:"required"`
	City          string           `json:"city" validate:"required,max=100"`
	PostalCode    string           `json:"postal_code" validate:"required,max=20"`
	PaymentMethod string           `json:"payment_method" validate:"required,oneof=cod card"`
	Items         []placeOrderItem `json:"items" validate:"min=1,dive"`
}

func (r placeOrderRequest) input(userID string) order.PlaceOrderInput {
	in := order.PlaceOrderInput{
		UserID:        userID,
		CustomerName:  r.CustomerName,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		City:          r.City,
		PostalCode:    r.PostalCode,
		PaymentMethod: order.PaymentMethod(r.PaymentMethod),
		Items:         make([]order.ItemRequest, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, order.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return in
}

type placeOrderResponse struct {
	Message       string `json:"message"`
	OrderID       string `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	Total         string `json:"total"`
}

type checkoutSessionRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type checkoutSessionResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

type orderItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerName  string              `json:"customer_name"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	City          string              `json:"city"`
	PostalCode    string              `json:"postal_code"`
	PaymentMethod string              `json:"payment_method"`
	TotalAmount   string              `json:"total_amount"`
	IsPaid        bool                `json:"is_paid"`
	Status        string              `json:"status"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toOrderResponse(o order.Order) orderResponse {
	out := orderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		Email:         o.Email,
		Phone:         o.Phone,
		Address:       o.Address,
		City:          o.City,
		PostalCode:    o.PostalCode,
		PaymentMethod: string(o.PaymentMethod),
		TotalAmount:   money(o.TotalAmount),
		IsPaid:        o.IsPaid,
		Status:        string(o.Status),
		Items:         make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       money(it.Price),
			Subtotal:    money(it.Subtotal()),
		})
	}
	return out
}

type addressRequest struct {
	Type      string `json:"type" validate:"omitempty,oneof=Home Work Other"`
	Street    string `json:"street" validate:"required"`
	City      string `json:"city" validate:"required,max=100"`
	ZipCode   string `json:"zip_code" validate:"required,max=20"`
	Phone     string `json:"phone" validate:"max=20"`
	IsDefault bool   `json:"is_default"`
}

func (r addressRequest) address(userID, id string) account.Address {
	return account.Address{
		ID:        id,
		UserID:    userID,
		Type:      account.AddressType(r.Type),
		Street:    r.Street,
		City:      r.City,
		ZipCode:   r.ZipCode,
		Phone:     r.Phone,
		IsDefault: r.IsDefault,
	}
}

type favouriteResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       string    `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

func toFavouriteResponse(f account.Favourite) favouriteResponse {
	return favouriteResponse{
		ID:          f.ID,
		ProductID:   f.ProductID,
		ProductName: f.ProductName,
		Price:       money(f.Price),
		CreatedAt:   f.CreatedAt,
	}
}

type couponResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue string    `json:"discount_value"`
	Description   string    `json:"description"`
	MinOrder      string    `json:"min_order"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func toCouponResponse(c account.Coupon) couponResponse {
	return couponResponse{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: money(c.DiscountValue),
		Description:   c.Description,
		MinOrder:      money(c.MinOrder),
		ExpiresAt:     c.ExpiresAt,
	}
}

type applyCouponRequest struct {
	Code      string           `json:"code" validate:"required,max=50"`
	CartTotal *decimal.Decimal `json:"cart_total"`
}

type applyCouponResponse struct {
	Coupon   couponResponse `json:"coupon"`
	Discount string         `json:"discount"`
}

type adjustStockRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Available *int   `json:"available" validate:"required,gte=0"`
}

// money renders amounts with two decimals so clients never see float noise.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
