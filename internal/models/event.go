package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is venue-owned reference data. The fulfillment pipeline only reads
// it; prices are in the smallest currency unit.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID        string    `bun:"event_id,pk" json:"event_id"`
	Name           string    `bun:"name" json:"name"`
	Date           time.Time `bun:"date" json:"date"`
	Venue          string    `bun:"venue" json:"venue"`
	AdmissionPrice int64     `bun:"admission_price" json:"admission_price"`
	ParkingPrice   int64     `bun:"parking_price" json:"parking_price"`
	ScannerPIN     string    `bun:"scanner_pin" json:"-"`
	Active         bool      `bun:"active" json:"active"`
	CreatedAt      time.Time `bun:"created_at" json:"created_at"`
}

// PriceFor returns the event's unit price for an item kind.
func (e *Event) PriceFor(kind string) int64 {
	if kind == KindParking {
		return e.ParkingPrice
	}
	return e.AdmissionPrice
}
