package postgres

import (
	"context"
	"database/sql"

	"rideshare/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// TxManager implements repository.TxManager on a PostgreSQL database.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a TxManager backed by db.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx begins a transaction, hands fn transaction-scoped repositories and
// commits if fn returns nil. Any error rolls the transaction back.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := repository.Tx{
		Drivers: NewDriverRepositoryWithTx(sqlTx),
		Rides:   NewRideRepositoryWithTx(sqlTx),
	}

	if err := fn(repos); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	return sqlTx.Commit()
}

var _ repository.TxManager = (*TxManager)(nil)
