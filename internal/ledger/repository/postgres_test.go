package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farehub/card-service/internal/pkg/apperr"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestDecrementWithoutCounterRowConflicts(t *testing.T) {
	db, mock := newMockDB(t)

	// A decrement must never reach the insert arm: only the guarded UPDATE
	// may run, and zero affected rows surfaces as a Conflict.
	mock.ExpectExec(`UPDATE stock_counters`).
		WithArgs("cat-1", "type-1", "station-1", -2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := AddUnsoldTx(context.Background(), db, "cat-1", "type-1", "station-1", -2)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementAgainstStockedRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE stock_counters`).
		WithArgs("cat-1", "type-1", "station-1", -1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := AddActiveTx(context.Background(), db, "cat-1", "type-1", "station-1", -1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUpsertsCounterRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO stock_counters`).
		WithArgs(sqlmock.AnyArg(), "cat-1", "type-1", nil, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := AddOfficeStockTx(context.Background(), db, "cat-1", "type-1", 5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
