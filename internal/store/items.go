package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"gatepass/internal/models"
)

// CreateItems inserts all items of an order in one transaction. A primary
// key conflict means another delivery of the same session got there first;
// the transaction is rolled back and ErrAlreadyExists returned so no order
// is ever half-fulfilled.
func (d *DB) CreateItems(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&items).Exec(ctx)
		return err
	})
	if isConflict(err) {
		return ErrAlreadyExists
	}
	return err
}

// GetItemByID → fetch one item.
func (d *DB) GetItemByID(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	err := d.Bun.NewSelect().
		Model(&item).
		Where("item_id = ?", itemID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsBySession → all items of an order, admission first then parking,
// in issue order. Item ids share a prefix within a kind, so sorting by
// length before value keeps seq 10 after seq 9.
func (d *DB) GetItemsBySession(ctx context.Context, sessionID string) ([]models.Item, error) {
	var items []models.Item
	err := d.Bun.NewSelect().
		Model(&items).
		Where("session_id = ?", sessionID).
		OrderExpr("kind DESC, length(item_id) ASC, item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CountItemsBySession is the authoritative idempotency check: any existing
// item means this session was already fulfilled.
func (d *DB) CountItemsBySession(ctx context.Context, sessionID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Item)(nil)).
		Where("session_id = ?", sessionID).
		Count(ctx)
}

// UpdateItemQR persists the rendered QR PNG and its public reference.
func (d *DB) UpdateItemQR(ctx context.Context, itemID string, png []byte, ref string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Item)(nil)).
		Set("qr_code = ?", png).
		Set("qr_ref = ?", ref).
		Where("item_id = ?", itemID).
		Exec(ctx)
	return err
}

// MarkItemUsed performs the single atomic purchased → used transition.
// Returns false without error when the item was not in purchased state, so
// two concurrent scans can never both admit.
func (d *DB) MarkItemUsed(ctx context.Context, itemID, staffName string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Item)(nil)).
		Set("status = ?", models.ItemStatusUsed).
		Set("scanned_at = ?", at).
		Set("scanned_by = ?", staffName).
		Where("item_id = ?", itemID).
		Where("status = ?", models.ItemStatusPurchased).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReopenItem reverts a refunded row to its prior status after the
// processor declined to move the money. Conditional on refunded so a
// refund that did complete elsewhere is never undone.
func (d *DB) ReopenItem(ctx context.Context, itemID, priorStatus string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Item)(nil)).
		Set("status = ?", priorStatus).
		Set("refunded_at = NULL").
		Set("refund_amount = 0").
		Where("item_id = ?", itemID).
		Where("status = ?", models.ItemStatusRefunded).
		Exec(ctx)
	return err
}

// MarkItemRefunded transitions purchased/used → refunded. Returns false
// when the item was already refunded.
func (d *DB) MarkItemRefunded(ctx context.Context, itemID string, amount int64, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Item)(nil)).
		Set("status = ?", models.ItemStatusRefunded).
		Set("refunded_at = ?", at).
		Set("refund_amount = ?", amount).
		Where("item_id = ?", itemID).
		Where("status IN (?, ?)", models.ItemStatusPurchased, models.ItemStatusUsed).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
