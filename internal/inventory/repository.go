package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("product not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Reserver is the stock primitive shared by order placement and payment
// confirmation. It always runs inside the caller's transaction.
type Reserver interface {
	ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []Line) (ReserveResult, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get returns the stock level of a product. Ids that are not UUIDs cannot
// exist and report ErrNotFound without a query.
func (r *PostgresRepository) Get(ctx context.Context, productID string) (StockItem, error) {
	if uuid.Validate(productID) != nil {
		return StockItem{}, ErrNotFound
	}
	var item StockItem
	row := r.pool.QueryRow(ctx, `SELECT id, name, stock FROM products WHERE id=$1`, productID)
	if err := row.Scan(&item.ProductID, &item.Name, &item.Available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrNotFound
		}
		return StockItem{}, fmt.Errorf("select stock: %w", err)
	}
	return item, nil
}

// SetAvailable overwrites the stock level of an existing product.
func (r *PostgresRepository) SetAvailable(ctx context.Context, productID string, available int) error {
	if available < 0 {
		return fmt.Errorf("available must be >= 0, got %d", available)
	}
	if uuid.Validate(productID) != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock=$2, updated_at=now()
		WHERE id=$1
	`, productID, available)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveWithTx locks every product row referenced by lines, in line order,
// and decrements stock only when every product can cover the cumulative
// quantity requested for it. When anything is short no row is updated and
// the shortages are returned; the caller decides whether to roll back.
func (r *PostgresRepository) ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []Line) (ReserveResult, error) {
	res := ReserveResult{}

	type locked struct {
		name      string
		available int
		requested int
	}
	rows := make(map[string]*locked, len(lines))
	order := make([]string, 0, len(lines))

	for _, line := range lines {
		row, seen := rows[line.ProductID]
		if !seen {
			row = &locked{}
			err := tx.QueryRow(ctx, `
				SELECT name, stock
				FROM products
				WHERE id=$1
				FOR UPDATE
			`, line.ProductID).Scan(&row.name, &row.available)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return res, fmt.Errorf("lock product %s: %w", line.ProductID, err)
			}
			rows[line.ProductID] = row
			order = append(order, line.ProductID)
		}
		row.requested += line.Quantity
	}

	for _, id := range order {
		row := rows[id]
		if row.available < row.requested {
			res.Depleted = append(res.Depleted, DepletedLine{
				ProductID: id,
				Name:      row.name,
				Requested: row.requested,
				Available: row.available,
			})
		}
	}
	if res.Short() {
		return res, nil
	}

	for _, line := range lines {
		_, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at=now()
			WHERE id=$1
		`, line.ProductID, line.Quantity)
		if err != nil {
			return res, fmt.Errorf("decrement product %s: %w", line.ProductID, err)
		}
		res.Reserved = append(res.Reserved, line)
	}

	return res, nil
}
