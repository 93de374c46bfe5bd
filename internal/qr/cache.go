package qr

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const cacheTTL = 24 * time.Hour

// ImageCache fronts the items table for the public QR serving endpoint.
// Email clients hammer the image URL once per open; redis absorbs that.
type ImageCache struct {
	Client *redis.Client
}

func NewImageCache(client *redis.Client) *ImageCache {
	return &ImageCache{Client: client}
}

func (c *ImageCache) key(itemID string) string {
	return "qr_image:" + itemID
}

// Get returns the cached PNG, or nil when absent.
func (c *ImageCache) Get(ctx context.Context, itemID string) ([]byte, error) {
	val, err := c.Client.Get(ctx, c.key(itemID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores the PNG with a TTL.
func (c *ImageCache) Set(ctx context.Context, itemID string, png []byte) error {
	return c.Client.Set(ctx, c.key(itemID), png, cacheTTL).Err()
}
