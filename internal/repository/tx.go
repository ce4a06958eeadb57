package repository

import "context"

// Tx bundles the transaction-scoped repositories an atomic unit of work may
// touch. The assignment coordinator and the lifecycle controller are the only
// callers that mutate both stores in one transaction.
type Tx struct {
	Drivers DriverRepository
	Rides   RideRepository
}

// TxManager runs a function inside a single atomic unit of work against the
// backing store. The function's repositories share one transaction; returning
// an error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
