package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

type Coupon struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Description   string          `json:"description"`
	MinOrder      decimal.Decimal `json:"min_order"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Active        bool            `json:"active"`
}

// Valid reports whether the coupon can be used at now.
func (c Coupon) Valid(now time.Time) bool {
	return c.Active && now.Before(c.ExpiresAt)
}

// Discount returns the amount taken off total, never more than total.
func (c Coupon) Discount(total decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = total.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	default:
		d = c.DiscountValue
	}
	if d.GreaterThan(total) {
		return total
	}
	return d
}

type CouponRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db, now: time.Now}
}

const couponColumns = `id, code, discount_type, discount_value, description, min_order, expires_at, active`

func scanCoupon(scan func(dest ...any) error) (Coupon, error) {
	var c Coupon
	err := scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.Description, &c.MinOrder, &c.ExpiresAt, &c.Active)
	return c, err
}

// ListValidForUser returns active, unexpired coupons assigned to userID or
// to everyone.
func (r *CouponRepository) ListValidForUser(ctx context.Context, userID string) ([]Coupon, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+couponColumns+`
         FROM coupons
         WHERE (user_id IS NULL OR user_id = $1) AND active AND expires_at > $2
         ORDER BY expires_at`,
		userID, r.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("select coupons: %w", err)
	}
	defer rows.Close()

	coupons := []Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return coupons, nil
}

// Applied is a coupon checked against a cart total.
type Applied struct {
	Coupon   Coupon
	Discount decimal.Decimal
}

// Apply validates code for userID against cartTotal. A zero cartTotal skips
// the minimum order check. Applying does not consume the coupon.
func (r *CouponRepository) Apply(ctx context.Context, userID, code string, cartTotal decimal.Decimal) (Applied, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Applied{}, ErrCouponInvalid
	}

	c, err := scanCoupon(r.db.QueryRowContext(ctx,
		`SELECT `+couponColumns+`
         FROM coupons
         WHERE UPPER(code) = UPPER($1) AND (user_id IS NULL OR user_id = $2)`,
		code, userID,
	).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Applied{}, ErrCouponInvalid
		}
		return Applied{}, fmt.Errorf("select coupon: %w", err)
	}
	if !c.Valid(r.now()) {
		return Applied{}, ErrCouponInvalid
	}
	if cartTotal.IsPositive() && cartTotal.LessThan(c.MinOrder) {
		return Applied{}, &MinimumOrderError{Minimum: c.MinOrder}
	}
	return Applied{Coupon: c, Discount: c.Discount(cartTotal)}, nil
}
