package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, name, vehicle_type, available, lat, lng, rating, total_rides, language_code, created_at`

// Upsert creates the driver if absent, otherwise updates profile fields only.
// Availability, rating and ride count keep their stored values on conflict.
func (r *DriverRepository) Upsert(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, vehicle_type, available, lat, lng, rating, total_rides, language_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, vehicle_type = EXCLUDED.vehicle_type, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
		    language_code = EXCLUDED.language_code
		RETURNING ` + driverColumns

	return r.scanDriver(r.q.QueryRowContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.VehicleType,
		driver.Available,
		driver.Lat,
		driver.Lng,
		driver.Rating,
		driver.TotalRides,
		driver.LanguageCode,
		driver.CreatedAt,
	), driver)
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	var driver domain.Driver
	if err := r.scanDriver(r.q.QueryRowContext(ctx, query, id), &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// GetByIDForUpdate retrieves a driver holding an exclusive row lock. Only
// meaningful inside a transaction.
func (r *DriverRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1 FOR UPDATE`

	var driver domain.Driver
	if err := r.scanDriver(r.q.QueryRowContext(ctx, query, id), &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY id`
	return r.queryDrivers(ctx, query)
}

// GetAvailable retrieves all drivers with available = true in stable ID order.
func (r *DriverRepository) GetAvailable(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE available = TRUE ORDER BY id`
	return r.queryDrivers(ctx, query)
}

// SetAvailability sets the availability flag unconditionally.
func (r *DriverRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	query := `UPDATE drivers SET available = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, available, id)
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

// RecordRating folds a rating into the driver's running average. A missing
// driver is a no-op.
func (r *DriverRepository) RecordRating(ctx context.Context, id int64, rating int) error {
	query := `
		UPDATE drivers
		SET rating = ROUND(((rating * total_rides + $1) / (total_rides + 1))::numeric, 2),
		    total_rides = total_rides + 1
		WHERE id = $2
	`
	_, err := r.q.ExecContext(ctx, query, rating, id)
	return err
}

func (r *DriverRepository) scanDriver(row *sql.Row, driver *domain.Driver) error {
	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.VehicleType,
		&driver.Available,
		&driver.Lat,
		&driver.Lng,
		&driver.Rating,
		&driver.TotalRides,
		&driver.LanguageCode,
		&driver.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func (r *DriverRepository) queryDrivers(ctx context.Context, query string, args ...any) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var driver domain.Driver
		if err := rows.Scan(
			&driver.ID,
			&driver.Name,
			&driver.VehicleType,
			&driver.Available,
			&driver.Lat,
			&driver.Lng,
			&driver.Rating,
			&driver.TotalRides,
			&driver.LanguageCode,
			&driver.CreatedAt,
		); err != nil {
			return nil, err
		}
		drivers = append(drivers, &driver)
	}
	return drivers, rows.Err()
}
