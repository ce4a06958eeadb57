package repository

import (
	"context"

	"rideshare/internal/domain"
)

// RiderRepository defines the persistence operations for riders.
type RiderRepository interface {
	// Upsert creates the rider if absent, otherwise updates the name.
	Upsert(ctx context.Context, rider *domain.Rider) error

	// GetByID retrieves a rider by ID.
	GetByID(ctx context.Context, id int64) (*domain.Rider, error)
}
