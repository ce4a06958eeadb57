package domain

import "time"

// VehicleType represents the category of vehicle a driver operates.
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "Car"
	VehicleTypeBike       VehicleType = "Bike"
	VehicleTypeVan        VehicleType = "Van"
	VehicleTypeMotorcycle VehicleType = "Motorcycle"
)

// ValidVehicleType reports whether v is one of the known vehicle categories.
func ValidVehicleType(v VehicleType) bool {
	switch v {
	case VehicleTypeCar, VehicleTypeBike, VehicleTypeVan, VehicleTypeMotorcycle:
		return true
	}
	return false
}

// Driver represents a driver in the system.
//
// Available is false whenever the driver holds a non-terminal ride: the
// assignment transaction flips it off and terminal ride transitions flip it
// back on.
type Driver struct {
	ID           int64 // externally assigned
	Name         string
	VehicleType  VehicleType
	Available    bool
	Lat          float64
	Lng          float64
	Rating       float64 // running average, 5.0 for a new driver
	TotalRides   int     // completed rides counted into Rating
	LanguageCode string  // opaque preference, owned by the front-end
	CreatedAt    time.Time
}
