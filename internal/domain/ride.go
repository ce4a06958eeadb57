package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "REQUESTED"
	RideStatusAssigned  RideStatus = "ASSIGNED"
	RideStatusOngoing   RideStatus = "ONGOING"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Terminal reports whether s is a terminal status. Terminal rides accept no
// further transitions.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// ValidTransition reports whether a ride may move from one status to another.
//
//	REQUESTED -> ASSIGNED, CANCELLED
//	ASSIGNED  -> ONGOING, CANCELLED
//	ONGOING   -> COMPLETED
//
// Cancellation mid-ride is disallowed by policy.
func ValidTransition(from, to RideStatus) bool {
	switch from {
	case RideStatusRequested:
		return to == RideStatusAssigned || to == RideStatusCancelled
	case RideStatusAssigned:
		return to == RideStatusOngoing || to == RideStatusCancelled
	case RideStatusOngoing:
		return to == RideStatusCompleted
	}
	return false
}

// Ride represents one rider-to-destination transaction tracked through the
// status lifecycle. DriverID is zero until a driver is assigned; a ride keeps
// the same driver for its entire life.
type Ride struct {
	ID          int64 // system generated, monotonic
	RiderID     int64
	DriverID    int64 // 0 = no driver attached
	Status      RideStatus
	PickupLat   float64
	PickupLng   float64
	Distance    float64 // km from pickup to assigned driver, 0 until assigned
	Rating      int     // 1..5, 0 until rated; settable only once COMPLETED
	CreatedAt   time.Time
	CompletedAt time.Time // zero until a terminal transition
}

// RideHistory is an immutable audit record of one status transition.
// One entry is written per transition, including the initial REQUESTED
// entry at ride creation.
type RideHistory struct {
	ID        int64
	RideID    int64
	Status    RideStatus
	Timestamp time.Time
}
