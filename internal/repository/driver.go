package repository

import (
	"context"

	"rideshare/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Upsert creates the driver if absent, otherwise updates the profile
	// fields (name, vehicle type, location) in place. Availability, rating
	// and ride count are untouched on update.
	Upsert(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id int64) (*domain.Driver, error)

	// GetByIDForUpdate retrieves a driver by ID holding an exclusive row
	// lock for the duration of the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// GetAvailable retrieves all drivers currently marked available, in
	// stable (ID) order.
	GetAvailable(ctx context.Context) ([]*domain.Driver, error)

	// SetAvailability sets the availability flag unconditionally.
	// Returns ErrNotFound if the driver does not exist.
	SetAvailability(ctx context.Context, id int64, available bool) error

	// RecordRating folds a 1..5 rating into the driver's running average
	// ((avg*n + rating)/(n+1), rounded to 2 decimals) and increments the
	// ride count. No-op if the driver does not exist.
	RecordRating(ctx context.Context, id int64, rating int) error
}
