package repository

import (
	"context"
	"time"

	"rideshare/internal/domain"
)

// RideRepository defines the persistence operations for rides and their
// append-only status history.
type RideRepository interface {
	// Create persists a new ride and writes the initial REQUESTED history
	// entry atomically. The generated ID is written back to ride.ID.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride by ID holding an exclusive row
	// lock for the duration of the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ride, error)

	// GetActiveByUserID retrieves the non-terminal ride in which the user
	// participates as rider or driver. Returns (nil, nil) if none exists.
	GetActiveByUserID(ctx context.Context, userID int64) (*domain.Ride, error)

	// GetAll retrieves recent rides, newest first.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// AppendHistory appends one status transition record for the ride.
	AppendHistory(ctx context.Context, rideID int64, status domain.RideStatus, at time.Time) error

	// ListHistory returns the ride's history entries in the order the
	// transitions were committed.
	ListHistory(ctx context.Context, rideID int64) ([]*domain.RideHistory, error)
}
