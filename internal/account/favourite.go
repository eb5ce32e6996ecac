package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Favourite struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

type FavouriteRepository struct {
	db *sql.DB
}

func NewFavouriteRepository(db *sql.DB) *FavouriteRepository {
	return &FavouriteRepository{db: db}
}

func (r *FavouriteRepository) ListByUser(ctx context.Context, userID string) ([]Favourite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.id, f.product_id, p.name, p.price, f.created_at
         FROM favourites f
         JOIN products p ON p.id = f.product_id
         WHERE f.user_id = $1
         ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select favourites: %w", err)
	}
	defer rows.Close()

	favs := []Favourite{}
	for rows.Next() {
		var f Favourite
		if err := rows.Scan(&f.ID, &f.ProductID, &f.ProductName, &f.Price, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favourite: %w", err)
		}
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return favs, nil
}

// Add marks productID as a favourite of userID. It fails with
// ErrProductNotFound for unknown products and ErrDuplicate when the product
// is already a favourite.
func (r *FavouriteRepository) Add(ctx context.Context, userID, productID string) (Favourite, error) {
	if uuid.Validate(productID) != nil {
		return Favourite{}, ErrProductNotFound
	}

	f := Favourite{ID: uuid.NewString(), ProductID: productID}
	err := r.db.QueryRowContext(ctx,
		`SELECT name, price FROM products WHERE id = $1`,
		productID,
	).Scan(&f.ProductName, &f.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Favourite{}, ErrProductNotFound
		}
		return Favourite{}, fmt.Errorf("select product: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO favourites (id, user_id, product_id)
         VALUES ($1, $2, $3)
         RETURNING created_at`,
		f.ID, userID, productID,
	).Scan(&f.CreatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return Favourite{}, ErrDuplicate
		case pgForeignKeyViolation:
			return Favourite{}, ErrProductNotFound
		}
		return Favourite{}, fmt.Errorf("insert favourite: %w", err)
	}
	return f, nil
}

func (r *FavouriteRepository) Remove(ctx context.Context, userID, productID string) error {
	if uuid.Validate(productID) != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM favourites WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete favourite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
