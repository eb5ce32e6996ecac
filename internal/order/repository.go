package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

const orderColumns = `id, user_id, customer_name, email, phone, address, city, postal_code,
	payment_method, total_amount, is_paid, status, checkout_session_id, created_at, updated_at`

// CreateWithTx inserts the order and its items inside tx. Item positions
// follow the slice order.
func (r *Repository) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, customer_name, email, phone, address, city, postal_code,
			payment_method, total_amount, is_paid, status)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.CustomerName, o.Email, o.Phone, o.Address, o.City, o.PostalCode,
		string(o.PaymentMethod), o.TotalAmount, o.IsPaid, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Position = i
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, o.ID, it.Position, it.ProductID, it.Quantity, it.Price)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}
	return nil
}

// GetByID loads an order with its items.
func (r *Repository) GetByID(ctx context.Context, orderID string) (Order, error) {
	if uuid.Validate(orderID) != nil {
		return Order{}, ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return Order{}, err
	}
	if o.Items, err = r.ItemsWithTx(ctx, r.db, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetForUpdateWithTx loads the order row under a row lock. Items are not loaded.
func (r *Repository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID string) (Order, error) {
	if uuid.Validate(orderID) != nil {
		return Order{}, ErrNotFound
	}
	return scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
}

// ItemsWithTx returns the items of an order in position order. q may be the
// pool or an open transaction.
func (r *Repository) ItemsWithTx(ctx context.Context, q Querier, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.position, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Position, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

// ListByUser returns the user's orders newest first, items included.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		if orders[i].Items, err = r.ItemsWithTx(ctx, r.db, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) MarkPaidWithTx(ctx context.Context, tx pgx.Tx, orderID string) error {
	return r.updateWithTx(ctx, tx, `
		UPDATE orders
		SET is_paid = TRUE, status = $2, updated_at = now()
		WHERE id = $1
	`, orderID, string(StatusConfirmed))
}

// MarkStockFailedWithTx flags the order for manual handling. is_paid is left
// untouched.
func (r *Repository) MarkStockFailedWithTx(ctx context.Context, tx pgx.Tx, orderID string) error {
	return r.updateWithTx(ctx, tx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, orderID, string(StatusFailedInsufficient))
}

func (r *Repository) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET checkout_session_id = $2, updated_at = now()
		WHERE id = $1
	`, orderID, sessionID)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) updateWithTx(ctx context.Context, tx pgx.Tx, sql string, args ...any) error {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o               Order
		userID, session *string
		method, status  string
	)
	err := row.Scan(&o.ID, &userID, &o.CustomerName, &o.Email, &o.Phone, &o.Address, &o.City, &o.PostalCode,
		&method, &o.TotalAmount, &o.IsPaid, &status, &session, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("select order: %w", err)
	}
	if userID != nil {
		o.UserID = *userID
	}
	if session != nil {
		o.CheckoutSessionID = *session
	}
	o.PaymentMethod = PaymentMethod(method)
	o.Status = Status(status)
	return o, nil
}
