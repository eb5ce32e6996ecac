package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AddressType string

const (
	AddressHome  AddressType = "Home"
	AddressWork  AddressType = "Work"
	AddressOther AddressType = "Other"
)

type Address struct {
	ID        string      `json:"id"`
	UserID    string      `json:"-"`
	Type      AddressType `json:"type"`
	Street    string      `json:"street"`
	City      string      `json:"city"`
	ZipCode   string      `json:"zip_code"`
	Phone     string      `json:"phone,omitempty"`
	IsDefault bool        `json:"is_default"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AddressRepository stores shipping addresses. Every query is scoped to the
// owning user; another user's address behaves as if it did not exist.
type AddressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]Address, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, street, city, zip_code, COALESCE(phone, ''), is_default, created_at, updated_at
         FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	defer rows.Close()

	addrs := []Address{}
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Street, &a.City, &a.ZipCode, &a.Phone, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addrs = append(addrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return addrs, nil
}

// Create inserts a. When a is the default, the user's other addresses lose
// the flag in the same transaction.
func (r *AddressRepository) Create(ctx context.Context, a *Address) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = AddressHome
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if a.IsDefault {
		if err := clearDefault(ctx, tx, a.UserID, a.ID); err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO addresses (id, user_id, type, street, city, zip_code, phone, is_default)
         VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
         RETURNING created_at, updated_at`,
		a.ID, a.UserID, string(a.Type), a.Street, a.City, a.ZipCode, a.Phone, a.IsDefault,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Update replaces the editable fields of one of the user's addresses.
func (r *AddressRepository) Update(ctx context.Context, a *Address) error {
	if uuid.Validate(a.ID) != nil {
		return ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if a.IsDefault {
		if err := clearDefault(ctx, tx, a.UserID, a.ID); err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE addresses
         SET type = $3, street = $4, city = $5, zip_code = $6, phone = NULLIF($7, ''), is_default = $8, updated_at = now()
         WHERE id = $1 AND user_id = $2
         RETURNING created_at, updated_at`,
		a.ID, a.UserID, string(a.Type), a.Street, a.City, a.ZipCode, a.Phone, a.IsDefault,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID, id string) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID, keepID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = now()
         WHERE user_id = $1 AND id <> $2 AND is_default`,
		userID, keepID,
	)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}
