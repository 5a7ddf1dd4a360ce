package assets

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const trackerPrefix = "assets:temp:"

// UploadTracker remembers which temp objects belong to a live upload.
// Entries expire after the configured TTL; a temp object without an entry
// is an orphan the sweeper may remove.
type UploadTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUploadTracker(client *redis.Client, ttl time.Duration) *UploadTracker {
	return &UploadTracker{client: client, ttl: ttl}
}

func (t *UploadTracker) Track(ctx context.Context, key string) error {
	return t.client.Set(ctx, trackerPrefix+key, time.Now().UTC().Format(time.RFC3339), t.ttl).Err()
}

func (t *UploadTracker) Tracked(ctx context.Context, key string) (bool, error) {
	err := t.client.Get(ctx, trackerPrefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
