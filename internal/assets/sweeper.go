package assets

import (
	"context"
	"log"
	"strings"
)

// tempStore is the store slice the sweeper needs.
type tempStore interface {
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Sweeper removes temp objects whose upload tracking entry has expired:
// uploads that were never attached to a project, and stale temp copies a
// crashed promotion left behind.
type Sweeper struct {
	store      tempStore
	tracker    *UploadTracker
	tempPrefix string
}

func NewSweeper(store tempStore, tracker *UploadTracker, tempPrefix string) *Sweeper {
	return &Sweeper{store: store, tracker: tracker, tempPrefix: tempPrefix}
}

// Sweep returns the number of orphans removed. Individual failures are
// logged and skipped; the next run retries them.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objectKeys, err := s.store.ListPrefix(ctx, s.tempPrefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, objectKey := range objectKeys {
		key := strings.TrimPrefix(objectKey, s.tempPrefix)
		tracked, err := s.tracker.Tracked(ctx, key)
		if err != nil {
			log.Printf("[sweep] tracker lookup for %s failed: %v", key, err)
			continue
		}
		if tracked {
			continue
		}
		if err := s.store.Delete(ctx, objectKey); err != nil {
			log.Printf("[sweep] delete of %s failed: %v", objectKey, err)
			continue
		}
		removed++
	}
	return removed, nil
}
