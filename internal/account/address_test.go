package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addrID = "0b8f3c1e-7a2d-4e9b-9c61-3f5a2b7d8e10"

func TestAddressRepository_CreateDefaultClearsOthers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE addresses SET is_default = FALSE`).
		WithArgs("user-1", addrID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO addresses`).
		WithArgs(addrID, "user-1", "Work", "1 Main St", "Lahore", "54000", "", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	a := &Address{ID: addrID, UserID: "user-1", Type: AddressWork, Street: "1 Main St", City: "Lahore", ZipCode: "54000", IsDefault: true}
	require.NoError(t, NewAddressRepository(db).Create(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_CreateNonDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO addresses`).
		WithArgs(sqlmock.AnyArg(), "user-1", "Home", "s", "c", "z", "0300", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	a := &Address{UserID: "user-1", Street: "s", City: "c", ZipCode: "z", Phone: "0300"}
	require.NoError(t, NewAddressRepository(db).Create(context.Background(), a))
	assert.Equal(t, AddressHome, a.Type)
	assert.NotEmpty(t, a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_CreateRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE addresses SET is_default = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO addresses`).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	a := &Address{UserID: "user-1", Street: "s", City: "c", ZipCode: "z", IsDefault: true}
	require.Error(t, NewAddressRepository(db).Create(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_UpdateOtherUsersAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE addresses`).
		WithArgs(addrID, "intruder", "Home", "s", "c", "z", "", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
	mock.ExpectRollback()

	a := &Address{ID: addrID, UserID: "intruder", Type: AddressHome, Street: "s", City: "c", ZipCode: "z"}
	assert.ErrorIs(t, NewAddressRepository(db).Update(context.Background(), a), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_ListAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, user_id, type`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "street", "city", "zip_code", "phone", "is_default", "created_at", "updated_at"}).
			AddRow(addrID, "user-1", "Home", "s", "c", "z", "", true, now, now))
	mock.ExpectExec(`DELETE FROM addresses`).
		WithArgs(addrID, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM addresses`).
		WithArgs(addrID, "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAddressRepository(db)
	addrs, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, AddressHome, addrs[0].Type)
	assert.True(t, addrs[0].IsDefault)

	require.NoError(t, repo.Delete(context.Background(), "user-1", addrID))
	assert.ErrorIs(t, repo.Delete(context.Background(), "user-2", addrID), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "user-1", "not-a-uuid"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
