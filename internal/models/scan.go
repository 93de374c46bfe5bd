package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Scan outcomes. Staff always receive one of these single words plus a
// human message, never a raw error.
const (
	ScanAdmitted     = "admitted"
	ScanAlreadyUsed  = "already_used"
	ScanInvalid      = "invalid"
	ScanWrongEvent   = "wrong_event"
	ScanUnauthorized = "unauthorized"
)

type ScanRequest struct {
	ItemID     string `json:"item_id"`
	ScannerPIN string `json:"scanner_pin"`
	EventID    string `json:"event_id"`
	StaffName  string `json:"staff_name"`
}

type ScanResult struct {
	Valid      bool      `json:"valid"`
	Status     string    `json:"status"`
	TicketType string    `json:"ticket_type,omitempty"`
	BuyerName  string    `json:"buyer_name,omitempty"`
	ScannedAt  time.Time `json:"scanned_at,omitzero"`
	Message    string    `json:"message"`
}

// ScanAudit is one row of the append-only door audit trail. Every attempt
// is recorded, including rejected ones, for later fraud review.
type ScanAudit struct {
	bun.BaseModel `bun:"table:scan_audits"`

	AuditID   string    `bun:"audit_id,pk" json:"audit_id"`
	ItemID    string    `bun:"item_id" json:"item_id"`
	EventID   string    `bun:"event_id" json:"event_id"`
	StaffName string    `bun:"staff_name" json:"staff_name"`
	Outcome   string    `bun:"outcome" json:"outcome"`
	Detail    string    `bun:"detail" json:"detail,omitempty"`
	ScannedAt time.Time `bun:"scanned_at" json:"scanned_at"`
}

type PINLoginRequest struct {
	PIN string `json:"pin"`
}

type PINLoginResponse struct {
	Valid     bool   `json:"valid"`
	EventID   string `json:"event_id,omitempty"`
	EventName string `json:"event_name,omitempty"`
	Token     string `json:"token,omitempty"`
}
