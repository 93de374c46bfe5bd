package models

import "time"

type RefundRequest struct {
	ItemID    string `json:"item_id"`
	SessionID string `json:"session_id"`
}

type RefundResponse struct {
	ItemID          string    `json:"item_id"`
	RefundAmount    int64     `json:"refund_amount"`
	StripeRefundID  string    `json:"stripe_refund_id,omitempty"`
	ProviderSkipped bool      `json:"provider_skipped,omitempty"`
	RefundedAt      time.Time `json:"refunded_at"`
}

// FulfilledEvent is the Kafka payload published after a session is fulfilled.
type FulfilledEvent struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	ItemIDs   []string  `json:"item_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// ScannedEvent is the Kafka payload published for every scan attempt.
type ScannedEvent struct {
	ItemID    string    `json:"item_id"`
	EventID   string    `json:"event_id"`
	Outcome   string    `json:"outcome"`
	StaffName string    `json:"staff_name"`
	Timestamp time.Time `json:"timestamp"`
}

// RefundedEvent is the Kafka payload published after an item refund.
type RefundedEvent struct {
	ItemID         string    `json:"item_id"`
	SessionID      string    `json:"session_id"`
	RefundAmount   int64     `json:"refund_amount"`
	StripeRefundID string    `json:"stripe_refund_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
