package service

import (
	"context"
	"log"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/geo"
	"rideshare/internal/repository"
)

// DriverService handles driver registration and availability.
type DriverService struct {
	driverRepo    repository.DriverRepository
	rideRepo      repository.RideRepository
	defaultRating float64
	cityBounds    geo.Bounds
}

// NewDriverService creates a new DriverService. defaultRating seeds new
// drivers (neutral 5.0); cityBounds is used to place simulated drivers that
// register without coordinates.
func NewDriverService(
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	defaultRating float64,
	cityBounds geo.Bounds,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		rideRepo:      rideRepo,
		defaultRating: defaultRating,
		cityBounds:    cityBounds,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
// Lat/Lng of (0, 0) means "place me somewhere in the city" for simulation.
type RegisterDriverRequest struct {
	DriverID     int64
	Name         string
	VehicleType  domain.VehicleType
	Lat          float64
	Lng          float64
	LanguageCode string
}

// RegisterDriver creates the driver on first registration or updates the
// profile in place. Availability and rating are untouched by re-registration.
func (s *DriverService) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.DriverID <= 0 {
		return nil, ErrInvalidDriverID
	}
	if !domain.ValidVehicleType(req.VehicleType) {
		return nil, ErrInvalidVehicleType
	}

	lat, lng := req.Lat, req.Lng
	if lat == 0 && lng == 0 {
		lat, lng = geo.RandomPoint(s.cityBounds)
	} else if !validLatitude(lat) || !validLongitude(lng) {
		return nil, ErrInvalidLocation
	}

	driver := &domain.Driver{
		ID:           req.DriverID,
		Name:         req.Name,
		VehicleType:  req.VehicleType,
		Available:    false,
		Lat:          lat,
		Lng:          lng,
		Rating:       s.defaultRating,
		TotalRides:   0,
		LanguageCode: req.LanguageCode,
		CreatedAt:    time.Now(),
	}
	if err := s.driverRepo.Upsert(ctx, driver); err != nil {
		return nil, err
	}

	log.Printf("driver %d registered at %s", driver.ID, geo.FormatCoordinates(driver.Lat, driver.Lng))
	return driver, nil
}

// SetAvailability toggles the driver's availability flag. The toggle is
// refused while the driver holds a non-terminal ride; terminal transitions
// are the only path that frees a busy driver.
func (s *DriverService) SetAvailability(ctx context.Context, driverID int64, available bool) (*domain.Driver, error) {
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}

	active, err := s.rideRepo.GetActiveByUserID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil && active.DriverID == driverID {
		log.Printf("[PRECONDITION] availability toggle refused: driver=%d ride=%d", driverID, active.ID)
		return nil, ErrDriverOnActiveRide
	}

	if err := s.driverRepo.SetAvailability(ctx, driverID, available); err != nil {
		return nil, err
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID int64) (*domain.Driver, error) {
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// GetAllDrivers retrieves all registered drivers for reporting.
func (s *DriverService) GetAllDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}
