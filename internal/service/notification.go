package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/domain"
	"rideshare/internal/geo"
)

// EventKind identifies a ride event delivered to a rider or driver.
type EventKind string

const (
	EventDriverAssigned EventKind = "DRIVER_ASSIGNED"
	EventRideStarted    EventKind = "RIDE_STARTED"
	EventRideCompleted  EventKind = "RIDE_COMPLETED"
	EventRideCancelled  EventKind = "RIDE_CANCELLED"
)

// Notification is one message bound for one recipient. The delivery
// collaborator owns formatting and localization; the payload carries the raw
// facts.
type Notification struct {
	ID          string
	Kind        EventKind
	RecipientID int64
	Message     string
	Payload     map[string]any
	CreatedAt   time.Time
}

// Sender delivers a notification to its recipient. Implementations talk to
// the messaging front-end; delivery failure must never propagate into ride
// state.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// logSender is the default Sender: it writes the notification to the log.
type logSender struct{}

func (logSender) Send(_ context.Context, n Notification) error {
	log.Printf("[NOTIFY] kind=%s recipient=%d message=%q", n.Kind, n.RecipientID, n.Message)
	return nil
}

// NotificationService dispatches ride events to the affected parties.
// Dispatch is fire-and-forget: it runs after the controlling transaction has
// committed, and failures are logged, never retried, never surfaced.
type NotificationService struct {
	sender Sender
}

// NewNotificationService creates a NotificationService. A nil sender falls
// back to log-only delivery.
func NewNotificationService(sender Sender) *NotificationService {
	if sender == nil {
		sender = logSender{}
	}
	return &NotificationService{sender: sender}
}

// NotifyDriverAssigned tells the rider a driver was found and tells the
// driver about the pickup.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, ride *domain.Ride, driver *domain.Driver, distanceKm float64) {
	s.dispatch(ctx, Notification{
		Kind:        EventDriverAssigned,
		RecipientID: ride.RiderID,
		Message:     "Driver " + driver.Name + " is " + geo.FormatDistance(distanceKm) + " away",
		Payload: map[string]any{
			"ride_id":      ride.ID,
			"driver_id":    driver.ID,
			"driver_name":  driver.Name,
			"vehicle_type": driver.VehicleType,
			"distance_km":  distanceKm,
		},
	})
	s.dispatch(ctx, Notification{
		Kind:        EventDriverAssigned,
		RecipientID: driver.ID,
		Message:     "New pickup at " + geo.FormatCoordinates(ride.PickupLat, ride.PickupLng),
		Payload: map[string]any{
			"ride_id":    ride.ID,
			"pickup_lat": ride.PickupLat,
			"pickup_lng": ride.PickupLng,
		},
	})
}

// NotifyRideStarted tells the rider the ride is underway.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, ride *domain.Ride) {
	s.dispatch(ctx, Notification{
		Kind:        EventRideStarted,
		RecipientID: ride.RiderID,
		Message:     "Your ride has started",
		Payload:     map[string]any{"ride_id": ride.ID},
	})
}

// NotifyRideCompleted tells the rider the ride is done and can be rated.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) {
	s.dispatch(ctx, Notification{
		Kind:        EventRideCompleted,
		RecipientID: ride.RiderID,
		Message:     "Your ride is complete",
		Payload:     map[string]any{"ride_id": ride.ID},
	})
}

// NotifyRideCancelled tells the party who did not cancel.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, cancelledBy int64) {
	recipient := ride.RiderID
	message := "Your ride was cancelled"
	if cancelledBy == ride.RiderID && ride.DriverID != 0 {
		recipient = ride.DriverID
		message = "The rider cancelled the ride"
	}

	s.dispatch(ctx, Notification{
		Kind:        EventRideCancelled,
		RecipientID: recipient,
		Message:     message,
		Payload:     map[string]any{"ride_id": ride.ID, "cancelled_by": cancelledBy},
	})
}

func (s *NotificationService) dispatch(ctx context.Context, n Notification) {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()
	if err := s.sender.Send(ctx, n); err != nil {
		log.Printf("[NOTIFY-FAIL] kind=%s recipient=%d: %v", n.Kind, n.RecipientID, err)
	}
}
