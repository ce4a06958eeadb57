package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
// It also owns the append-only ride_history table.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, driver_id, status, pickup_lat, pickup_lng, distance, rating, created_at, completed_at`

// Create persists a new ride and its initial REQUESTED history entry as one
// statement, so the history invariant holds without an explicit transaction.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		WITH new_ride AS (
			INSERT INTO rides (rider_id, status, pickup_lat, pickup_lng, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		), history AS (
			INSERT INTO ride_history (ride_id, status, ts)
			SELECT id, $2, created_at FROM new_ride
		)
		SELECT id FROM new_ride
	`
	return r.q.QueryRowContext(ctx, query,
		ride.RiderID,
		ride.Status,
		ride.PickupLat,
		ride.PickupLng,
		ride.CreatedAt,
	).Scan(&ride.ID)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return r.getRide(ctx, query, id)
}

// GetByIDForUpdate retrieves a ride holding an exclusive row lock. Only
// meaningful inside a transaction.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return r.getRide(ctx, query, id)
}

// GetActiveByUserID retrieves the non-terminal ride the user participates in
// as rider or driver. Returns (nil, nil) when no such ride exists.
func (r *RideRepository) GetActiveByUserID(ctx context.Context, userID int64) (*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE (rider_id = $1 OR driver_id = $1)
		  AND status IN ($2, $3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`
	ride, err := r.getRide(ctx, query, userID,
		domain.RideStatusRequested, domain.RideStatusAssigned, domain.RideStatusOngoing)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return ride, err
}

// GetAll retrieves recent rides, newest first.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC, id DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows.Scan)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET driver_id = $1, status = $2, distance = $3, rating = $4, completed_at = $5
		WHERE id = $6
	`

	var driverID sql.NullInt64
	if ride.DriverID != 0 {
		driverID = sql.NullInt64{Int64: ride.DriverID, Valid: true}
	}

	var rating sql.NullInt64
	if ride.Rating != 0 {
		rating = sql.NullInt64{Int64: int64(ride.Rating), Valid: true}
	}

	var completedAt sql.NullTime
	if !ride.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: ride.CompletedAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		driverID,
		ride.Status,
		ride.Distance,
		rating,
		completedAt,
		ride.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AppendHistory appends one status transition record for the ride.
func (r *RideRepository) AppendHistory(ctx context.Context, rideID int64, status domain.RideStatus, at time.Time) error {
	query := `INSERT INTO ride_history (ride_id, status, ts) VALUES ($1, $2, $3)`
	_, err := r.q.ExecContext(ctx, query, rideID, status, at)
	return err
}

// ListHistory returns history entries in commit order.
func (r *RideRepository) ListHistory(ctx context.Context, rideID int64) ([]*domain.RideHistory, error) {
	query := `SELECT id, ride_id, status, ts FROM ride_history WHERE ride_id = $1 ORDER BY ts, id`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.RideHistory
	for rows.Next() {
		var entry domain.RideHistory
		if err := rows.Scan(&entry.ID, &entry.RideID, &entry.Status, &entry.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *RideRepository) getRide(ctx context.Context, query string, args ...any) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// scanRide reads one ride row from either *sql.Row or *sql.Rows.
func scanRide(scan func(dest ...any) error) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID sql.NullInt64
	var distance sql.NullFloat64
	var rating sql.NullInt64
	var completedAt sql.NullTime

	err := scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Status,
		&ride.PickupLat,
		&ride.PickupLng,
		&distance,
		&rating,
		&ride.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.Int64
	}
	if distance.Valid {
		ride.Distance = distance.Float64
	}
	if rating.Valid {
		ride.Rating = int(rating.Int64)
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	return &ride, nil
}
