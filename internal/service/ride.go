package service

import (
	"context"
	"errors"
	"log"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// MatchingServiceInterface defines the matching contract the ride lifecycle
// depends on. This interface allows for testing with mock implementations.
type MatchingServiceInterface interface {
	Match(ctx context.Context, rideID int64, pickupLat, pickupLng float64) (*Candidate, error)
}

// Ensure MatchingService implements MatchingServiceInterface.
var _ MatchingServiceInterface = (*MatchingService)(nil)

// RideService is the ride lifecycle controller: it creates rides, applies
// legal status transitions, frees drivers on terminal transitions and records
// rating feedback.
type RideService struct {
	txm       repository.TxManager
	rideRepo  repository.RideRepository
	riderRepo repository.RiderRepository
	matching  MatchingServiceInterface
	notifier  *NotificationService
}

// NewRideService creates a new RideService.
func NewRideService(
	txm repository.TxManager,
	rideRepo repository.RideRepository,
	riderRepo repository.RiderRepository,
	matching MatchingServiceInterface,
	notifier *NotificationService,
) *RideService {
	return &RideService{
		txm:       txm,
		rideRepo:  rideRepo,
		riderRepo: riderRepo,
		matching:  matching,
		notifier:  notifier,
	}
}

// RequestRideRequest contains the parameters for requesting a ride. Name and
// language are used for auto-registration on first interaction.
type RequestRideRequest struct {
	RiderID       int64
	RiderName     string
	RiderLanguage string
	PickupLat     float64
	PickupLng     float64
}

// RequestRideResponse contains the result of requesting a ride.
type RequestRideResponse struct {
	Ride           *domain.Ride
	DriverAssigned bool
	Driver         *domain.Driver
	DistanceKm     float64
}

// RequestRide registers the rider if needed, creates a REQUESTED ride with
// its initial history entry, then runs matching. A ride with no qualifying
// driver is cancelled immediately by policy; the response distinguishes that
// outcome from a successful assignment.
func (s *RideService) RequestRide(ctx context.Context, req RequestRideRequest) (*RequestRideResponse, error) {
	if req.RiderID <= 0 {
		return nil, ErrInvalidRiderID
	}
	if !validLatitude(req.PickupLat) || !validLongitude(req.PickupLng) {
		return nil, ErrInvalidLocation
	}

	// Best-effort guard: the read is not serialized with Create, so two
	// simultaneous requests from one rider can slip past it. Ride state
	// stays consistent either way; this only limits rider concurrency.
	active, err := s.rideRepo.GetActiveByUserID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrRiderOnActiveRide
	}

	// Auto-registration on first interaction.
	rider := &domain.Rider{
		ID:           req.RiderID,
		Name:         req.RiderName,
		LanguageCode: req.RiderLanguage,
		CreatedAt:    time.Now(),
	}
	if err := s.riderRepo.Upsert(ctx, rider); err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		RiderID:   req.RiderID,
		Status:    domain.RideStatusRequested,
		PickupLat: req.PickupLat,
		PickupLng: req.PickupLng,
		CreatedAt: time.Now(),
	}
	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	cand, err := s.matching.Match(ctx, ride.ID, req.PickupLat, req.PickupLng)
	if err != nil {
		if errors.Is(err, ErrNoDriverAvailable) {
			// No queueing: cancel immediately so the rider can retry.
			cancelled, cancelErr := s.transition(ctx, ride.ID, domain.RideStatusCancelled)
			if cancelErr != nil {
				return nil, cancelErr
			}
			return &RequestRideResponse{Ride: cancelled, DriverAssigned: false}, nil
		}
		return nil, err
	}

	assigned, err := s.rideRepo.GetByID(ctx, ride.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyDriverAssigned(ctx, assigned, cand.Driver, cand.DistanceKm)

	return &RequestRideResponse{
		Ride:           assigned,
		DriverAssigned: true,
		Driver:         cand.Driver,
		DistanceKm:     cand.DistanceKm,
	}, nil
}

// StartRide moves an ASSIGNED ride to ONGOING. Only the assigned driver may
// start the ride.
func (s *RideService) StartRide(ctx context.Context, rideID, driverID int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusAssigned {
		return nil, ErrRideNotAssigned
	}
	if ride.DriverID != driverID {
		return nil, ErrDriverNotAssignedToRide
	}

	updated, err := s.transition(ctx, rideID, domain.RideStatusOngoing)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRideStarted(ctx, updated)
	return updated, nil
}

// CompleteRide moves an ONGOING ride to COMPLETED, freeing the driver. Only
// the assigned driver may complete the ride.
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusOngoing {
		return nil, ErrRideNotOngoing
	}
	if ride.DriverID != driverID {
		return nil, ErrDriverNotAssignedToRide
	}

	updated, err := s.transition(ctx, rideID, domain.RideStatusCompleted)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRideCompleted(ctx, updated)
	return updated, nil
}

// CancelRide cancels a REQUESTED or ASSIGNED ride. Cancellation of an
// ONGOING ride is disallowed by policy; a previously assigned driver is
// freed.
func (s *RideService) CancelRide(ctx context.Context, rideID, cancelledBy int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !domain.ValidTransition(ride.Status, domain.RideStatusCancelled) {
		return nil, ErrRideCannotBeCancelled
	}

	updated, err := s.transition(ctx, rideID, domain.RideStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRideCancelled(ctx, updated, cancelledBy)
	return updated, nil
}

// RateRide records the rider's 1..5 rating for a COMPLETED ride and folds it
// into the driver's running average. The state check, the ride update and the
// fold run in one transaction under a row lock, so a ride is rated at most
// once even under concurrent submissions.
func (s *RideService) RateRide(ctx context.Context, rideID int64, rating int) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var updated *domain.Ride
	err := s.txm.WithinTx(ctx, func(tx repository.Tx) error {
		ride, err := tx.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.Status != domain.RideStatusCompleted {
			return ErrRideNotCompleted
		}
		if ride.Rating != 0 {
			return ErrRideAlreadyRated
		}

		ride.Rating = rating
		if err := tx.Rides.Update(ctx, ride); err != nil {
			return err
		}

		if ride.DriverID != 0 {
			if err := tx.Drivers.RecordRating(ctx, ride.DriverID, rating); err != nil {
				return err
			}
		}

		updated = ride
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetRide retrieves a ride by ID.
func (s *RideService) GetRide(ctx context.Context, rideID int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// GetActiveRideForUser retrieves the user's non-terminal ride, as rider or
// driver. Returns (nil, nil) when there is none.
func (s *RideService) GetActiveRideForUser(ctx context.Context, userID int64) (*domain.Ride, error) {
	return s.rideRepo.GetActiveByUserID(ctx, userID)
}

// GetRideHistory returns a ride's status transitions in commit order.
func (s *RideService) GetRideHistory(ctx context.Context, rideID int64) ([]*domain.RideHistory, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return nil, err
	}
	return s.rideRepo.ListHistory(ctx, rideID)
}

// GetAllRides retrieves recent rides for reporting.
func (s *RideService) GetAllRides(ctx context.Context) ([]*domain.Ride, error) {
	return s.rideRepo.GetAll(ctx)
}

// transition applies a status change inside one transaction: legality check
// against the state machine, terminal stamping, driver release, history
// append. The driver is freed exactly once because terminal states accept no
// further transitions.
func (s *RideService) transition(ctx context.Context, rideID int64, next domain.RideStatus) (*domain.Ride, error) {
	var updated *domain.Ride

	err := s.txm.WithinTx(ctx, func(tx repository.Tx) error {
		ride, err := tx.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if !domain.ValidTransition(ride.Status, next) {
			log.Printf("[PRECONDITION] illegal transition: ride=%d %s -> %s", rideID, ride.Status, next)
			return ErrIllegalTransition
		}

		now := time.Now()
		ride.Status = next
		if next.Terminal() {
			ride.CompletedAt = now
			if ride.DriverID != 0 {
				if err := tx.Drivers.SetAvailability(ctx, ride.DriverID, true); err != nil {
					return err
				}
			}
		}

		if err := tx.Rides.Update(ctx, ride); err != nil {
			return err
		}
		if err := tx.Rides.AppendHistory(ctx, rideID, next, now); err != nil {
			return err
		}

		updated = ride
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func validLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
