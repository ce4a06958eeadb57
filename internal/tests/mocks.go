package tests

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/service"
)

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[int64]*domain.Driver

	// Counters for verification
	UpsertCallCount          int32
	SetAvailabilityCallCount int32
	RecordRatingCallCount    int32

	// Error injection
	UpsertError          error
	SetAvailabilityError error
	RecordRatingError    error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[int64]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Upsert(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.drivers[driver.ID]; ok {
		existing.Name = driver.Name
		existing.VehicleType = driver.VehicleType
		existing.Lat = driver.Lat
		existing.Lng = driver.Lng
		existing.LanguageCode = driver.LanguageCode
		*driver = *existing
		return nil
	}
	stored := *driver
	m.drivers[driver.ID] = &stored
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Driver, error) {
	return m.GetByID(ctx, id)
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDriverRepository) GetAvailable(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		if !d.Available {
			continue
		}
		copy := *d
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDriverRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	atomic.AddInt32(&m.SetAvailabilityCallCount, 1)
	if m.SetAvailabilityError != nil {
		return m.SetAvailabilityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Available = available
	return nil
}

func (m *MockDriverRepository) RecordRating(ctx context.Context, id int64, rating int) error {
	atomic.AddInt32(&m.RecordRatingCallCount, 1)
	if m.RecordRatingError != nil {
		return m.RecordRatingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil
	}
	n := float64(driver.TotalRides)
	avg := (driver.Rating*n + float64(rating)) / (n + 1)
	driver.Rating = math.Round(avg*100) / 100
	driver.TotalRides++
	return nil
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id int64) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK RIDER REPOSITORY
// ──────────────────────────────────────────────

// MockRiderRepository is a mock implementation of RiderRepository.
type MockRiderRepository struct {
	mu     sync.RWMutex
	riders map[int64]*domain.Rider

	UpsertCallCount int32
	UpsertError     error
}

// NewMockRiderRepository creates a new mock rider repository.
func NewMockRiderRepository() *MockRiderRepository {
	return &MockRiderRepository{
		riders: make(map[int64]*domain.Rider),
	}
}

func (m *MockRiderRepository) Upsert(ctx context.Context, rider *domain.Rider) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.riders[rider.ID]; ok {
		existing.Name = rider.Name
		existing.LanguageCode = rider.LanguageCode
		*rider = *existing
		return nil
	}
	stored := *rider
	m.riders[rider.ID] = &stored
	return nil
}

func (m *MockRiderRepository) GetByID(ctx context.Context, id int64) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rider, ok := m.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rider
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Create
// writes the initial REQUESTED history entry the way the real store does.
type MockRideRepository struct {
	mu      sync.RWMutex
	rides   map[int64]*domain.Ride
	history []*domain.RideHistory
	nextID  int64
	histID  int64

	// Counters for verification
	CreateCallCount        int32
	UpdateCallCount        int32
	AppendHistoryCallCount int32

	// Error injection
	CreateError        error
	UpdateError        error
	AppendHistoryError error
	GetActiveError     error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[int64]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository without history side effects.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ride.ID > m.nextID {
		m.nextID = ride.ID
	}
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ride.ID = m.nextID
	stored := *ride
	m.rides[ride.ID] = &stored
	m.histID++
	m.history = append(m.history, &domain.RideHistory{
		ID:        m.histID,
		RideID:    ride.ID,
		Status:    ride.Status,
		Timestamp: ride.CreatedAt,
	})
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ride, error) {
	return m.GetByID(ctx, id)
}

func (m *MockRideRepository) GetActiveByUserID(ctx context.Context, userID int64) (*domain.Ride, error) {
	if m.GetActiveError != nil {
		return nil, m.GetActiveError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.Status.Terminal() {
			continue
		}
		if r.RiderID == userID || r.DriverID == userID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		copy := *r
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *ride
	m.rides[ride.ID] = &stored
	return nil
}

func (m *MockRideRepository) AppendHistory(ctx context.Context, rideID int64, status domain.RideStatus, at time.Time) error {
	atomic.AddInt32(&m.AppendHistoryCallCount, 1)
	if m.AppendHistoryError != nil {
		return m.AppendHistoryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histID++
	m.history = append(m.history, &domain.RideHistory{
		ID:        m.histID,
		RideID:    rideID,
		Status:    status,
		Timestamp: at,
	})
	return nil
}

func (m *MockRideRepository) ListHistory(ctx context.Context, rideID int64) ([]*domain.RideHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.RideHistory, 0)
	for _, h := range m.history {
		if h.RideID == rideID {
			copy := *h
			result = append(result, &copy)
		}
	}
	return result, nil
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id int64) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// HistoryStatuses returns the recorded statuses for a ride, in append order.
func (m *MockRideRepository) HistoryStatuses(rideID int64) []domain.RideStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var statuses []domain.RideStatus
	for _, h := range m.history {
		if h.RideID == rideID {
			statuses = append(statuses, h.Status)
		}
	}
	return statuses
}

// ──────────────────────────────────────────────
// MOCK TX MANAGER
// ──────────────────────────────────────────────

// MockTxManager serializes units of work over the in-memory mocks with a
// single mutex, giving the same one-writer-at-a-time guarantee the database
// provides via row locks. Rollback is not emulated; the services check every
// precondition before mutating.
type MockTxManager struct {
	mu      sync.Mutex
	Drivers *MockDriverRepository
	Rides   *MockRideRepository

	WithinTxCallCount int32
	WithinTxError     error
}

// NewMockTxManager creates a transaction manager over the given mocks.
func NewMockTxManager(drivers *MockDriverRepository, rides *MockRideRepository) *MockTxManager {
	return &MockTxManager{Drivers: drivers, Rides: rides}
}

func (m *MockTxManager) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	atomic.AddInt32(&m.WithinTxCallCount, 1)
	if m.WithinTxError != nil {
		return m.WithinTxError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(repository.Tx{Drivers: m.Drivers, Rides: m.Rides})
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of the distributed lock store.
type MockLockStore struct {
	mu          sync.Mutex
	driverLocks map[int64]bool
	rideLocks   map[int64]bool

	AcquireDriverLockCallCount int32
	AcquireRideLockCallCount   int32

	AcquireDriverLockError error
	AcquireRideLockError   error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		driverLocks: make(map[int64]bool),
		rideLocks:   make(map[int64]bool),
	}
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID int64, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireDriverLockCallCount, 1)
	if m.AcquireDriverLockError != nil {
		return false, m.AcquireDriverLockError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.driverLocks[driverID] {
		return false, nil
	}
	m.driverLocks[driverID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.driverLocks, driverID)
	return nil
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID int64, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireRideLockCallCount, 1)
	if m.AcquireRideLockError != nil {
		return false, m.AcquireRideLockError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rideLocks[rideID] {
		return false, nil
	}
	m.rideLocks[rideID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rideLocks, rideID)
	return nil
}

// DriverLockHeld reports whether the driver lock is currently held.
func (m *MockLockStore) DriverLockHeld(driverID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driverLocks[driverID]
}

// ──────────────────────────────────────────────
// MOCK MATCHING SERVICE
// ──────────────────────────────────────────────

// MockMatchingService is a controllable matching implementation for ride
// lifecycle tests.
type MockMatchingService struct {
	MatchFunc      func(ctx context.Context, rideID int64, pickupLat, pickupLng float64) (*service.Candidate, error)
	MatchCallCount int32
}

func (m *MockMatchingService) Match(ctx context.Context, rideID int64, pickupLat, pickupLng float64) (*service.Candidate, error) {
	atomic.AddInt32(&m.MatchCallCount, 1)
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, rideID, pickupLat, pickupLng)
	}
	return nil, service.ErrNoDriverAvailable
}
