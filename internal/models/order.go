package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is one completed checkout session. Created exactly once per session
// by the fulfillment pipeline; immutable afterwards.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	SessionID       string    `bun:"session_id,pk" json:"session_id"`
	EventID         string    `bun:"event_id" json:"event_id"`
	BuyerName       string    `bun:"buyer_name" json:"buyer_name"`
	BuyerEmail      string    `bun:"buyer_email" json:"buyer_email"`
	BuyerPhone      string    `bun:"buyer_phone" json:"buyer_phone,omitempty"`
	AdmissionQty    int       `bun:"admission_qty" json:"admission_qty"`
	ParkingQty      int       `bun:"parking_qty" json:"parking_qty"`
	AmountTotal     int64     `bun:"amount_total" json:"amount_total"`
	Currency        string    `bun:"currency" json:"currency"`
	PaymentIntentID string    `bun:"payment_intent_id" json:"-"`
	FulfilledAt     time.Time `bun:"fulfilled_at" json:"fulfilled_at"`
	CreatedAt       time.Time `bun:"created_at" json:"created_at"`
}

// OrderWithItems is the buyer-facing retrieval shape.
type OrderWithItems struct {
	Order Order  `json:"order"`
	Event *Event `json:"event,omitempty"`
	Items []Item `json:"items"`
}
