package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/staff"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, DriverPostgres)), mock
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"sqlite not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"postgres fk", &pq.Error{Code: "23503"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isUniqueViolation(tc.err))
		})
	}
}

func TestCreateLedger_PostgresUniqueViolation(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("INSERT INTO annual_leave").WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateLedger(context.Background(), leave.AnnualLeave{
		ID: "l1", StaffID: "alice", Year: 2017, Category: leave.Regular,
		AllowedDays: decimal.NewFromInt(21), CarriedOverDays: decimal.Zero,
	})
	require.ErrorIs(t, err, leave.ErrDuplicateLedger)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLedger_NoRowsIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("UPDATE annual_leave").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateLedger(context.Background(), leave.AnnualLeave{StaffID: "alice", Year: 2017, Category: leave.Regular})
	require.ErrorIs(t, err, leave.ErrLedgerNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStaff_EmptyResultIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM staff WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetStaff(context.Background(), "ghost")
	require.ErrorIs(t, err, staff.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRole_PostgresUniqueViolation(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("INSERT INTO roles").WillReturnError(&pq.Error{Code: "23505"})

	err := store.SaveRole(context.Background(), staff.Role{ID: "r2", Name: "Engineer"})
	require.ErrorIs(t, err, staff.ErrDuplicateRole)
}
