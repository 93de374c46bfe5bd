package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Item kinds. The kind doubles as the item id prefix, so re-processing a
// session regenerates identical ids.
const (
	KindAdmission = "ticket"
	KindParking   = "parking"
)

// Item statuses. Transitions are monotonic: purchased → used,
// purchased/used → refunded. Never backward.
const (
	ItemStatusPurchased = "purchased"
	ItemStatusUsed      = "used"
	ItemStatusRefunded  = "refunded"
)

// Item is one sellable admission ticket or parking pass.
type Item struct {
	bun.BaseModel `bun:"table:items"`

	ItemID       string    `bun:"item_id,pk" json:"item_id"`
	SessionID    string    `bun:"session_id" json:"session_id"`
	EventID      string    `bun:"event_id" json:"event_id"`
	Kind         string    `bun:"kind" json:"kind"`
	Status       string    `bun:"status" json:"status"`
	BuyerName    string    `bun:"buyer_name" json:"buyer_name"`
	BuyerEmail   string    `bun:"buyer_email" json:"buyer_email"`
	BuyerPhone   string    `bun:"buyer_phone" json:"buyer_phone,omitempty"`
	QRCode       []byte    `bun:"qr_code" json:"-"`
	QRRef        string    `bun:"qr_ref" json:"qr_ref,omitempty"`
	ScannedAt    time.Time `bun:"scanned_at,nullzero" json:"scanned_at,omitzero"`
	ScannedBy    string    `bun:"scanned_by" json:"scanned_by,omitempty"`
	RefundedAt   time.Time `bun:"refunded_at,nullzero" json:"refunded_at,omitzero"`
	RefundAmount int64     `bun:"refund_amount" json:"refund_amount,omitempty"`
	IssuedAt     time.Time `bun:"issued_at" json:"issued_at"`
}

// ItemID builds the deterministic id for unit seq (1-indexed) of a kind
// within a session: {kind}-{session_id}-{seq}.
func ItemID(kind, sessionID string, seq int) string {
	return fmt.Sprintf("%s-%s-%d", kind, sessionID, seq)
}
