package store

import (
	"context"

	"gatepass/internal/models"
)

// InsertScanAudit appends one row to the door audit trail.
func (d *DB) InsertScanAudit(ctx context.Context, audit models.ScanAudit) error {
	_, err := d.Bun.NewInsert().Model(&audit).Exec(ctx)
	return err
}

// GetScanAuditsByEvent returns the audit trail for an event, newest first.
func (d *DB) GetScanAuditsByEvent(ctx context.Context, eventID string, limit int) ([]models.ScanAudit, error) {
	var audits []models.ScanAudit
	err := d.Bun.NewSelect().
		Model(&audits).
		Where("event_id = ?", eventID).
		Order("scanned_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return audits, nil
}
