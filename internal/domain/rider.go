package domain

import "time"

// Rider represents a rider in the system. Riders are auto-registered on
// first interaction; only their profile fields are ever updated.
type Rider struct {
	ID           int64 // externally assigned
	Name         string
	LanguageCode string // opaque preference, owned by the front-end
	CreatedAt    time.Time
}
