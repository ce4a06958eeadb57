package service

import (
	"context"
	"errors"
	"log"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/geo"
	"rideshare/internal/repository"
)

const (
	driverLockTTL = 10 * time.Second
	rideLockTTL   = 30 * time.Second
)

// errAssignPrecondition aborts the assignment transaction without surfacing a
// hard error: the driver was claimed concurrently or the ride left REQUESTED.
var errAssignPrecondition = errors.New("assignment precondition failed")

// Candidate is a driver proposed by the matching engine together with the
// geodesic distance from the pickup point.
type Candidate struct {
	Driver     *domain.Driver
	DistanceKm float64
}

// MatchingService locates suitable drivers for pending rides and performs the
// atomic reservation that binds one driver to one ride.
type MatchingService struct {
	txm        repository.TxManager
	lockStore  LockStore
	driverRepo repository.DriverRepository
	rideRepo   repository.RideRepository
	radiusKm   float64
}

// LockStore is the distributed-lock contract the matcher uses to shed
// contention before opening the assignment transaction.
type LockStore interface {
	AcquireDriverLock(ctx context.Context, driverID int64, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID int64) error
	AcquireRideLock(ctx context.Context, rideID int64, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID int64) error
}

// NewMatchingService creates a new MatchingService. radiusKm is the maximum
// pickup-to-driver distance considered by FindNearestDriver. lockStore may be
// nil, in which case the database transaction alone serializes assignment.
func NewMatchingService(
	txm repository.TxManager,
	lockStore LockStore,
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	radiusKm float64,
) *MatchingService {
	return &MatchingService{
		txm:        txm,
		lockStore:  lockStore,
		driverRepo: driverRepo,
		rideRepo:   rideRepo,
		radiusKm:   radiusKm,
	}
}

// FindNearestDriver returns the closest available driver within radiusKm of
// the pickup point, or nil if none qualifies. The read is a snapshot: the
// returned driver may be claimed before assignment completes, which is why
// Assign re-validates under a lock. Ties are broken by input order, first
// encountered wins.
func (s *MatchingService) FindNearestDriver(ctx context.Context, pickupLat, pickupLng, radiusKm float64) (*Candidate, error) {
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}

	drivers, err := s.driverRepo.GetAvailable(ctx)
	if err != nil {
		return nil, err
	}

	var best *Candidate
	for _, driver := range drivers {
		dist := geo.Distance(pickupLat, pickupLng, driver.Lat, driver.Lng)
		if dist > radiusKm {
			continue
		}
		if best == nil || dist < best.DistanceKm {
			best = &Candidate{Driver: driver, DistanceKm: dist}
		}
	}
	return best, nil
}

// rankCandidates returns every available driver within radiusKm ordered by
// distance, preserving input order among equals.
func (s *MatchingService) rankCandidates(ctx context.Context, pickupLat, pickupLng, radiusKm float64) ([]Candidate, error) {
	drivers, err := s.driverRepo.GetAvailable(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(drivers))
	for _, driver := range drivers {
		dist := geo.Distance(pickupLat, pickupLng, driver.Lat, driver.Lng)
		if dist > radiusKm {
			continue
		}
		candidates = append(candidates, Candidate{Driver: driver, DistanceKm: dist})
	}

	// Insertion sort keeps the sort stable so equal distances retain the
	// registry's order.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].DistanceKm < candidates[j-1].DistanceKm; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	return candidates, nil
}

// Assign atomically reserves the driver and the ride. Inside one transaction
// it re-reads the driver under an exclusive lock and aborts unless the driver
// is still available, re-reads the ride and aborts unless it is still
// REQUESTED, then binds the two, marks the driver busy and appends the
// ASSIGNED history entry.
//
// Returns (false, nil) on a precondition failure: the caller must re-fetch
// state before retrying. A non-nil error is an infrastructure failure.
func (s *MatchingService) Assign(ctx context.Context, rideID, driverID int64, distanceKm float64) (bool, error) {
	if rideID <= 0 {
		return false, ErrInvalidRideID
	}
	if driverID <= 0 {
		return false, ErrInvalidDriverID
	}

	err := s.txm.WithinTx(ctx, func(tx repository.Tx) error {
		driver, err := tx.Drivers.GetByIDForUpdate(ctx, driverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errAssignPrecondition
			}
			return err
		}
		if !driver.Available {
			return errAssignPrecondition
		}

		ride, err := tx.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errAssignPrecondition
			}
			return err
		}
		if ride.Status != domain.RideStatusRequested {
			return errAssignPrecondition
		}

		ride.DriverID = driverID
		ride.Distance = distanceKm
		ride.Status = domain.RideStatusAssigned
		if err := tx.Rides.Update(ctx, ride); err != nil {
			return err
		}

		if err := tx.Drivers.SetAvailability(ctx, driverID, false); err != nil {
			return err
		}

		return tx.Rides.AppendHistory(ctx, rideID, domain.RideStatusAssigned, time.Now())
	})
	if err != nil {
		if errors.Is(err, errAssignPrecondition) {
			log.Printf("[PRECONDITION] assignment aborted: ride=%d driver=%d", rideID, driverID)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Match runs the full find-and-reserve flow for a REQUESTED ride: rank the
// available drivers by distance, then walk the list attempting an atomic
// assignment until one sticks. Returns the winning candidate, or
// ErrNoDriverAvailable when the list is exhausted.
func (s *MatchingService) Match(ctx context.Context, rideID int64, pickupLat, pickupLng float64) (*Candidate, error) {
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireRideLock(ctx, rideID, rideLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			// Another matching pass owns this ride.
			return nil, ErrNoDriverAvailable
		}
		defer func() {
			_ = s.lockStore.ReleaseRideLock(ctx, rideID)
		}()
	}

	candidates, err := s.rankCandidates(ctx, pickupLat, pickupLng, s.radiusKm)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		cand := candidates[i]
		driverID := cand.Driver.ID

		if s.lockStore != nil {
			locked, err := s.lockStore.AcquireDriverLock(ctx, driverID, driverLockTTL)
			if err != nil {
				return nil, err
			}
			if !locked {
				// Driver is being assigned to another ride.
				continue
			}
		}

		assigned, err := s.Assign(ctx, rideID, driverID, cand.DistanceKm)
		if err != nil {
			if s.lockStore != nil {
				_ = s.lockStore.ReleaseDriverLock(ctx, driverID)
			}
			return nil, err
		}
		if !assigned {
			if s.lockStore != nil {
				_ = s.lockStore.ReleaseDriverLock(ctx, driverID)
			}
			continue
		}

		// Success. The driver lock expires via TTL.
		return &cand, nil
	}

	return nil, ErrNoDriverAvailable
}
