package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rideshare/internal/domain"
	"rideshare/internal/service"
)

func newRideFixture() (*MockDriverRepository, *MockRiderRepository, *MockRideRepository, *service.RideService) {
	driverRepo := NewMockDriverRepository()
	riderRepo := NewMockRiderRepository()
	rideRepo := NewMockRideRepository()
	txm := NewMockTxManager(driverRepo, rideRepo)
	matching := service.NewMatchingService(txm, NewMockLockStore(), driverRepo, rideRepo, 10.0)
	notifier := service.NewNotificationService(nil)
	rideService := service.NewRideService(txm, rideRepo, riderRepo, matching, notifier)
	return driverRepo, riderRepo, rideRepo, rideService
}

// assignedRide drives a ride through request and assignment, returning it in
// ASSIGNED state bound to the given driver.
func assignedRide(t *testing.T, rideService *service.RideService, riderID int64) *domain.Ride {
	t.Helper()
	resp, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:   riderID,
		RiderName: "Rider",
		PickupLat: 9.03,
		PickupLng: 38.75,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !resp.DriverAssigned {
		t.Fatal("expected a driver to be assigned")
	}
	return resp.Ride
}

func TestRequestRide_AssignsDriver(t *testing.T) {
	driverRepo, riderRepo, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))

	resp, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:   100,
		RiderName: "Abebe",
		PickupLat: 9.03,
		PickupLng: 38.75,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.DriverAssigned {
		t.Fatal("expected a driver to be assigned")
	}
	if resp.Driver.ID != 1 {
		t.Errorf("expected driver 1, got %d", resp.Driver.ID)
	}
	if resp.Ride.Status != domain.RideStatusAssigned {
		t.Errorf("expected ASSIGNED, got %s", resp.Ride.Status)
	}
	if resp.Ride.DriverID != 1 {
		t.Errorf("expected ride bound to driver 1, got %d", resp.Ride.DriverID)
	}
	if driverRepo.GetDriver(1).Available {
		t.Error("expected driver to be marked busy")
	}

	// Rider was auto-registered.
	if _, err := riderRepo.GetByID(context.Background(), 100); err != nil {
		t.Errorf("expected rider to be registered: %v", err)
	}

	statuses := rideRepo.HistoryStatuses(resp.Ride.ID)
	if len(statuses) != 2 || statuses[0] != domain.RideStatusRequested || statuses[1] != domain.RideStatusAssigned {
		t.Errorf("unexpected history %v", statuses)
	}
}

func TestRequestRide_NoDriverCancelsImmediately(t *testing.T) {
	_, _, rideRepo, rideService := newRideFixture()

	resp, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:   100,
		RiderName: "Abebe",
		PickupLat: 9.03,
		PickupLng: 38.75,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DriverAssigned {
		t.Error("expected no driver assigned")
	}
	if resp.Ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", resp.Ride.Status)
	}
	if resp.Ride.DriverID != 0 {
		t.Errorf("expected no driver attached, got %d", resp.Ride.DriverID)
	}
	if resp.Ride.CompletedAt.IsZero() {
		t.Error("expected terminal timestamp to be set")
	}

	statuses := rideRepo.HistoryStatuses(resp.Ride.ID)
	if len(statuses) != 2 || statuses[0] != domain.RideStatusRequested || statuses[1] != domain.RideStatusCancelled {
		t.Errorf("unexpected history %v", statuses)
	}
}

func TestRequestRide_RejectsRiderWithActiveRide(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))

	assignedRide(t, rideService, 100)

	_, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:   100,
		RiderName: "Abebe",
		PickupLat: 9.03,
		PickupLng: 38.75,
	})
	if !errors.Is(err, service.ErrRiderOnActiveRide) {
		t.Errorf("expected ErrRiderOnActiveRide, got %v", err)
	}
}

func TestRequestRide_RejectsInvalidInput(t *testing.T) {
	_, _, _, rideService := newRideFixture()
	ctx := context.Background()

	_, err := rideService.RequestRide(ctx, service.RequestRideRequest{RiderID: 0, PickupLat: 9.03, PickupLng: 38.75})
	if !errors.Is(err, service.ErrInvalidRiderID) {
		t.Errorf("expected ErrInvalidRiderID, got %v", err)
	}

	_, err = rideService.RequestRide(ctx, service.RequestRideRequest{RiderID: 100, PickupLat: 91.0, PickupLng: 38.75})
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestStartRide_MovesToOngoing(t *testing.T) {
	driverRepo, _, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	updated, err := rideService.StartRide(context.Background(), ride.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.RideStatusOngoing {
		t.Errorf("expected ONGOING, got %s", updated.Status)
	}

	statuses := rideRepo.HistoryStatuses(ride.ID)
	if len(statuses) != 3 || statuses[2] != domain.RideStatusOngoing {
		t.Errorf("unexpected history %v", statuses)
	}
}

func TestStartRide_RejectsWrongDriver(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	_, err := rideService.StartRide(context.Background(), ride.ID, 99)
	if !errors.Is(err, service.ErrDriverNotAssignedToRide) {
		t.Errorf("expected ErrDriverNotAssignedToRide, got %v", err)
	}
}

func TestStartRide_RejectsUnassignedRide(t *testing.T) {
	driverRepo, _, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	if _, err := rideService.StartRide(context.Background(), ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Already ONGOING, a second start must be rejected.
	_, err := rideService.StartRide(context.Background(), ride.ID, 1)
	if !errors.Is(err, service.ErrRideNotAssigned) {
		t.Errorf("expected ErrRideNotAssigned, got %v", err)
	}
	if rideRepo.GetRide(ride.ID).Status != domain.RideStatusOngoing {
		t.Error("expected ride to stay ONGOING")
	}
}

func TestCompleteRide_FreesDriver(t *testing.T) {
	driverRepo, _, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	if _, err := rideService.StartRide(context.Background(), ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	updated, err := rideService.CompleteRide(context.Background(), ride.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.RideStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", updated.Status)
	}
	if updated.CompletedAt.IsZero() {
		t.Error("expected terminal timestamp to be set")
	}
	if !driverRepo.GetDriver(1).Available {
		t.Error("expected driver to be freed")
	}

	statuses := rideRepo.HistoryStatuses(ride.ID)
	want := []domain.RideStatus{
		domain.RideStatusRequested,
		domain.RideStatusAssigned,
		domain.RideStatusOngoing,
		domain.RideStatusCompleted,
	}
	if len(statuses) != len(want) {
		t.Fatalf("unexpected history %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, statuses[i], want[i])
		}
	}
}

func TestCompleteRide_RejectsNonOngoing(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	// Still ASSIGNED, completion requires ONGOING.
	_, err := rideService.CompleteRide(context.Background(), ride.ID, 1)
	if !errors.Is(err, service.ErrRideNotOngoing) {
		t.Errorf("expected ErrRideNotOngoing, got %v", err)
	}
}

func TestCancelRide_InAssignedFreesDriver(t *testing.T) {
	driverRepo, _, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	updated, err := rideService.CancelRide(context.Background(), ride.ID, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", updated.Status)
	}
	if !driverRepo.GetDriver(1).Available {
		t.Error("expected driver to be freed")
	}

	statuses := rideRepo.HistoryStatuses(ride.ID)
	if len(statuses) != 3 || statuses[2] != domain.RideStatusCancelled {
		t.Errorf("unexpected history %v", statuses)
	}
}

func TestCancelRide_RejectsOngoing(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	if _, err := rideService.StartRide(context.Background(), ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := rideService.CancelRide(context.Background(), ride.ID, 100)
	if !errors.Is(err, service.ErrRideCannotBeCancelled) {
		t.Errorf("expected ErrRideCannotBeCancelled, got %v", err)
	}
	if driverRepo.GetDriver(1).Available {
		t.Error("expected driver to stay busy")
	}
}

func TestCancelRide_ConcurrentDoubleCancel(t *testing.T) {
	driverRepo, _, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ride := assignedRide(t, rideService, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rideService.CancelRide(context.Background(), ride.ID, 100); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The legality check inside the transaction lets exactly one through.
	if successCount != 1 {
		t.Errorf("expected exactly 1 successful cancellation, got %d", successCount)
	}

	cancelledEntries := 0
	for _, s := range rideRepo.HistoryStatuses(ride.ID) {
		if s == domain.RideStatusCancelled {
			cancelledEntries++
		}
	}
	if cancelledEntries != 1 {
		t.Errorf("expected 1 CANCELLED history entry, got %d", cancelledEntries)
	}
	if !driverRepo.GetDriver(1).Available {
		t.Error("expected driver to be freed")
	}
}

func TestRateRide_FoldsIntoDriverAverage(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ctx := context.Background()

	// First completed ride rated 4: (5.0*0 + 4) / 1 = 4.0.
	ride := assignedRide(t, rideService, 100)
	if _, err := rideService.StartRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := rideService.CompleteRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	rated, err := rideService.RateRide(ctx, ride.ID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rated.Rating != 4 {
		t.Errorf("expected ride rating 4, got %d", rated.Rating)
	}
	driver := driverRepo.GetDriver(1)
	if driver.Rating != 4.0 || driver.TotalRides != 1 {
		t.Errorf("expected rating 4.0 over 1 ride, got %.2f over %d", driver.Rating, driver.TotalRides)
	}

	// Second completed ride rated 2: (4.0*1 + 2) / 2 = 3.0.
	ride2 := assignedRide(t, rideService, 101)
	if _, err := rideService.StartRide(ctx, ride2.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := rideService.CompleteRide(ctx, ride2.ID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := rideService.RateRide(ctx, ride2.ID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	driver = driverRepo.GetDriver(1)
	if driver.Rating != 3.0 || driver.TotalRides != 2 {
		t.Errorf("expected rating 3.0 over 2 rides, got %.2f over %d", driver.Rating, driver.TotalRides)
	}
}

func TestRateRide_ConcurrentDoubleRate(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ctx := context.Background()

	ride := assignedRide(t, rideService, 100)
	if _, err := rideService.StartRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := rideService.CompleteRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	numRaters := 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	wg.Add(numRaters)
	for i := 0; i < numRaters; i++ {
		go func() {
			defer wg.Done()
			if _, err := rideService.RateRide(ctx, ride.ID, 4); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The row lock lets exactly one rating through; the rest see the ride
	// already rated.
	if successCount != 1 {
		t.Errorf("expected exactly 1 successful rating, got %d", successCount)
	}

	driver := driverRepo.GetDriver(1)
	if driver.TotalRides != 1 {
		t.Errorf("expected rating folded once, got %d folds", driver.TotalRides)
	}
	if driver.Rating != 4.0 {
		t.Errorf("expected rating 4.0, got %.2f", driver.Rating)
	}
}

func TestCompleteRide_RejectsWrongDriver(t *testing.T) {
	driverRepo, _, rideRepo, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ctx := context.Background()

	ride := assignedRide(t, rideService, 100)
	if _, err := rideService.StartRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// An omitted driver ID must not complete someone's ride.
	if _, err := rideService.CompleteRide(ctx, ride.ID, 0); !errors.Is(err, service.ErrDriverNotAssignedToRide) {
		t.Errorf("expected ErrDriverNotAssignedToRide for driver 0, got %v", err)
	}
	if _, err := rideService.CompleteRide(ctx, ride.ID, 99); !errors.Is(err, service.ErrDriverNotAssignedToRide) {
		t.Errorf("expected ErrDriverNotAssignedToRide for driver 99, got %v", err)
	}
	if rideRepo.GetRide(ride.ID).Status != domain.RideStatusOngoing {
		t.Error("expected ride to stay ONGOING")
	}
}

func TestRequestRide_RegistersRiderWithLanguage(t *testing.T) {
	driverRepo, riderRepo, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))

	_, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:       100,
		RiderName:     "Abebe",
		RiderLanguage: "am",
		PickupLat:     9.03,
		PickupLng:     38.75,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rider, err := riderRepo.GetByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("expected rider to be registered: %v", err)
	}
	if rider.LanguageCode != "am" {
		t.Errorf("expected language %q carried through, got %q", "am", rider.LanguageCode)
	}
}

func TestRateRide_Validation(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ctx := context.Background()

	ride := assignedRide(t, rideService, 100)

	if _, err := rideService.RateRide(ctx, ride.ID, 6); !errors.Is(err, service.ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}

	// Not yet completed.
	if _, err := rideService.RateRide(ctx, ride.ID, 4); !errors.Is(err, service.ErrRideNotCompleted) {
		t.Errorf("expected ErrRideNotCompleted, got %v", err)
	}

	if _, err := rideService.StartRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := rideService.CompleteRide(ctx, ride.ID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := rideService.RateRide(ctx, ride.ID, 4); err != nil {
		t.Fatalf("first rating failed: %v", err)
	}

	// Second rating must be rejected.
	if _, err := rideService.RateRide(ctx, ride.ID, 5); !errors.Is(err, service.ErrRideAlreadyRated) {
		t.Errorf("expected ErrRideAlreadyRated, got %v", err)
	}
}

func TestGetActiveRideForUser_CoversBothParties(t *testing.T) {
	driverRepo, _, _, rideService := newRideFixture()
	driverRepo.AddDriver(availableDriver(1, 9.031, 38.751))
	ctx := context.Background()

	ride := assignedRide(t, rideService, 100)

	// Both the rider and the driver see the active ride.
	forRider, err := rideService.GetActiveRideForUser(ctx, 100)
	if err != nil || forRider == nil || forRider.ID != ride.ID {
		t.Errorf("expected active ride for rider, got %v (%v)", forRider, err)
	}
	forDriver, err := rideService.GetActiveRideForUser(ctx, 1)
	if err != nil || forDriver == nil || forDriver.ID != ride.ID {
		t.Errorf("expected active ride for driver, got %v (%v)", forDriver, err)
	}

	// Nobody else does.
	forOther, err := rideService.GetActiveRideForUser(ctx, 999)
	if err != nil || forOther != nil {
		t.Errorf("expected no active ride, got %v (%v)", forOther, err)
	}
}

func TestRequestRide_MatchingFailureCancelsViaMock(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	riderRepo := NewMockRiderRepository()
	rideRepo := NewMockRideRepository()
	txm := NewMockTxManager(driverRepo, rideRepo)
	matching := &MockMatchingService{}
	rideService := service.NewRideService(txm, rideRepo, riderRepo, matching, service.NewNotificationService(nil))

	resp, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:   100,
		RiderName: "Abebe",
		PickupLat: 9.03,
		PickupLng: 38.75,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DriverAssigned {
		t.Error("expected no driver assigned")
	}
	if resp.Ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", resp.Ride.Status)
	}
	if matching.MatchCallCount != 1 {
		t.Errorf("expected 1 match attempt, got %d", matching.MatchCallCount)
	}
}

func TestRequestRide_InfrastructureErrorPropagates(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	riderRepo := NewMockRiderRepository()
	rideRepo := NewMockRideRepository()
	txm := NewMockTxManager(driverRepo, rideRepo)
	boom := errors.New("redis down")
	matching := &MockMatchingService{
		MatchFunc: func(ctx context.Context, rideID int64, lat, lng float64) (*service.Candidate, error) {
			return nil, boom
		},
	}
	rideService := service.NewRideService(txm, rideRepo, riderRepo, matching, service.NewNotificationService(nil))

	_, err := rideService.RequestRide(context.Background(), service.RequestRideRequest{
		RiderID:   100,
		RiderName: "Abebe",
		PickupLat: 9.03,
		PickupLng: 38.75,
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected infrastructure error to propagate, got %v", err)
	}
}
