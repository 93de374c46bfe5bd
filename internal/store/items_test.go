package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/models"
	"gatepass/internal/store"
)

func TestCreateItemsConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	items := seedItems(t, db, "sess_ABC")

	// A second delivery inserting the same ids hits the primary key.
	err := db.CreateItems(ctx, items)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	count, err := db.CountItemsBySession(ctx, "sess_ABC")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCreateItemsPartialConflictRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItems(ctx, []models.Item{newItem(models.KindAdmission, "sess_ABC", 1)}))

	// A batch where only one id collides must insert nothing.
	batch := []models.Item{
		newItem(models.KindAdmission, "sess_ABC", 1),
		newItem(models.KindAdmission, "sess_ABC", 2),
	}
	err := db.CreateItems(ctx, batch)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	count, err := db.CountItemsBySession(ctx, "sess_ABC")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkItemUsedAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	firstScan := time.Now().Add(-time.Minute)
	ok, err := db.MarkItemUsed(ctx, "ticket-sess_ABC-1", "gate-a", firstScan)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second attempt loses and must not touch the original scan record.
	ok, err = db.MarkItemUsed(ctx, "ticket-sess_ABC-1", "gate-b", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	item, err := db.GetItemByID(ctx, "ticket-sess_ABC-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusUsed, item.Status)
	assert.Equal(t, "gate-a", item.ScannedBy)
	assert.WithinDuration(t, firstScan, item.ScannedAt, time.Second)
}

func TestMarkItemUsedUnknownItem(t *testing.T) {
	db := newTestDB(t)

	ok, err := db.MarkItemUsed(context.Background(), "ticket-sess_NOPE-1", "gate-a", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkItemRefunded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	ok, err := db.MarkItemRefunded(ctx, "parking-sess_ABC-1", 1500, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := db.GetItemByID(ctx, "parking-sess_ABC-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRefunded, item.Status)
	assert.Equal(t, int64(1500), item.RefundAmount)

	// Refunding twice is rejected.
	ok, err = db.MarkItemRefunded(ctx, "parking-sess_ABC-1", 1500, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkItemRefundedAfterUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	ok, err := db.MarkItemUsed(ctx, "ticket-sess_ABC-2", "gate-a", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	// Used items can still be refunded, goodwill refunds happen.
	ok, err = db.MarkItemRefunded(ctx, "ticket-sess_ABC-2", 4500, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReopenItem(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	ok, err := db.MarkItemRefunded(ctx, "parking-sess_ABC-1", 1500, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.ReopenItem(ctx, "parking-sess_ABC-1", models.ItemStatusPurchased))

	item, err := db.GetItemByID(ctx, "parking-sess_ABC-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPurchased, item.Status)
	assert.True(t, item.RefundedAt.IsZero())
	assert.Zero(t, item.RefundAmount)

	// A reopened item is refundable again.
	ok, err = db.MarkItemRefunded(ctx, "parking-sess_ABC-1", 1500, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReopenItemOnlyTouchesRefunded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	ok, err := db.MarkItemUsed(ctx, "ticket-sess_ABC-1", "gate-a", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.ReopenItem(ctx, "ticket-sess_ABC-1", models.ItemStatusPurchased))

	item, err := db.GetItemByID(ctx, "ticket-sess_ABC-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusUsed, item.Status)
}

func TestGetItemsBySessionOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	items, err := db.GetItemsBySession(ctx, "sess_ABC")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "ticket-sess_ABC-1", items[0].ItemID)
	assert.Equal(t, "ticket-sess_ABC-2", items[1].ItemID)
	assert.Equal(t, "parking-sess_ABC-1", items[2].ItemID)
}

func TestGetItemsBySessionDoubleDigitSequence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	batch := make([]models.Item, 0, 12)
	for seq := 1; seq <= 12; seq++ {
		batch = append(batch, newItem(models.KindAdmission, "sess_ABC", seq))
	}
	require.NoError(t, db.CreateItems(ctx, batch))

	items, err := db.GetItemsBySession(ctx, "sess_ABC")
	require.NoError(t, err)
	require.Len(t, items, 12)

	// Sequence 10 sorts after 9, not after 1.
	for seq := 1; seq <= 12; seq++ {
		assert.Equal(t, models.ItemID(models.KindAdmission, "sess_ABC", seq), items[seq-1].ItemID)
	}
}

func TestUpdateItemQR(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedItems(t, db, "sess_ABC")

	png := []byte{0x89, 0x50, 0x4e, 0x47}
	require.NoError(t, db.UpdateItemQR(ctx, "ticket-sess_ABC-1", png, "https://tickets.example.com/api/qr/ticket-sess_ABC-1"))

	item, err := db.GetItemByID(ctx, "ticket-sess_ABC-1")
	require.NoError(t, err)
	assert.Equal(t, png, item.QRCode)
	assert.Equal(t, "https://tickets.example.com/api/qr/ticket-sess_ABC-1", item.QRRef)
}
