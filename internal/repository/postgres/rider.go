package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// RiderRepository is a PostgreSQL implementation of repository.RiderRepository.
type RiderRepository struct {
	q Querier
}

// NewRiderRepository creates a new PostgreSQL rider repository.
func NewRiderRepository(db *sql.DB) *RiderRepository {
	return &RiderRepository{q: db}
}

// Upsert creates the rider if absent, otherwise updates the profile fields.
func (r *RiderRepository) Upsert(ctx context.Context, rider *domain.Rider) error {
	query := `
		INSERT INTO riders (id, name, language_code, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, language_code = EXCLUDED.language_code
		RETURNING id, name, language_code, created_at
	`
	return r.q.QueryRowContext(ctx, query, rider.ID, rider.Name, rider.LanguageCode, rider.CreatedAt).
		Scan(&rider.ID, &rider.Name, &rider.LanguageCode, &rider.CreatedAt)
}

// GetByID retrieves a rider by ID.
func (r *RiderRepository) GetByID(ctx context.Context, id int64) (*domain.Rider, error) {
	query := `SELECT id, name, language_code, created_at FROM riders WHERE id = $1`

	var rider domain.Rider
	err := r.q.QueryRowContext(ctx, query, id).Scan(&rider.ID, &rider.Name, &rider.LanguageCode, &rider.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rider, nil
}
