package service

import "errors"

var (
	// ErrNoDriverAvailable is returned when no driver is within the search
	// radius of a pickup location.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrInvalidRiderID is returned when rider ID is zero or negative.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is zero or negative.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRideID is returned when ride ID is zero or negative.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidVehicleType is returned when the vehicle category is unknown.
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrIllegalTransition is returned when a status change violates the
	// ride state machine.
	ErrIllegalTransition = errors.New("illegal ride status transition")

	// ErrRideNotAssigned is returned when an operation requires an ASSIGNED
	// ride but the ride is in another state.
	ErrRideNotAssigned = errors.New("ride not assigned")

	// ErrRideNotOngoing is returned when completing a ride that is not
	// ONGOING.
	ErrRideNotOngoing = errors.New("ride not ongoing")

	// ErrRideNotCompleted is returned when rating a ride that has not
	// completed.
	ErrRideNotCompleted = errors.New("ride not completed")

	// ErrRideAlreadyRated is returned when a completed ride already carries
	// a rating.
	ErrRideAlreadyRated = errors.New("ride already rated")

	// ErrRideCannotBeCancelled is returned when the ride's current state
	// forbids cancellation (ONGOING or terminal).
	ErrRideCannotBeCancelled = errors.New("ride cannot be cancelled in current state")

	// ErrDriverNotAssignedToRide is returned when a driver acts on a ride
	// that is assigned to someone else.
	ErrDriverNotAssignedToRide = errors.New("driver not assigned to this ride")

	// ErrDriverOnActiveRide is returned when toggling availability for a
	// driver who currently holds a non-terminal ride.
	ErrDriverOnActiveRide = errors.New("driver has an active ride")

	// ErrRiderOnActiveRide is returned when a rider requests a ride while
	// already participating in a non-terminal one.
	ErrRiderOnActiveRide = errors.New("rider already has an active ride")
)
