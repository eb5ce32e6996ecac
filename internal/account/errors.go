package account

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrProductNotFound = errors.New("product not found")
	ErrCouponInvalid   = errors.New("Invalid or expired coupon")
)

type MinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("Minimum order of %s required", e.Minimum.StringFixed(2))
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
