package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("product not found")

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

func (r *Repository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (id, name, description)
		VALUES ($1, $2, NULLIF($3, ''))
	`, c.ID, c.Name, c.Description)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Gender == "" {
		p.Gender = GenderUnisex
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (id, name, description, price, stock, category_id, brand, gender, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID, p.Brand, string(p.Gender), p.IsFeatured,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (Product, error) {
	var (
		p      Product
		brand  *string
		gender string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, price, stock, category_id, brand, gender, is_featured, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &brand, &gender, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	if brand != nil {
		p.Brand = *brand
	}
	p.Gender = Gender(gender)
	return p, nil
}

// QuotePricesWithTx returns the current price of every product in ids, keyed
// by product id, read inside tx. Missing products are absent from the map.
func (r *Repository) QuotePricesWithTx(ctx context.Context, tx pgx.Tx, ids []string) (map[string]PriceQuote, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, price
		FROM products
		WHERE id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select prices: %w", err)
	}
	defer rows.Close()

	quotes := make(map[string]PriceQuote, len(ids))
	for rows.Next() {
		var pq PriceQuote
		if err := rows.Scan(&pq.ProductID, &pq.Name, &pq.Price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		quotes[pq.ProductID] = pq
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return quotes, nil
}
