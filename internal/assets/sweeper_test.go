package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTempStore struct {
	keys    map[string]struct{}
	listErr error
	failDel map[string]error
}

func (s *fakeTempStore) ListPrefix(_ context.Context, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	return out, nil
}

func (s *fakeTempStore) Delete(_ context.Context, key string) error {
	if err := s.failDel[key]; err != nil {
		return err
	}
	delete(s.keys, key)
	return nil
}

func testTracker(t *testing.T) (*UploadTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUploadTracker(client, time.Hour), mr
}

func TestUploadTracker(t *testing.T) {
	tracker, mr := testTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Track(ctx, "k1"))

	tracked, err := tracker.Tracked(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, tracked)

	tracked, err = tracker.Tracked(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, tracked)

	// TTL expiry turns a tracked upload into an orphan.
	mr.FastForward(2 * time.Hour)
	tracked, err = tracker.Tracked(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestSweeper_Sweep(t *testing.T) {
	t.Run("removes only untracked temp objects", func(t *testing.T) {
		tracker, _ := testTracker(t)
		ctx := context.Background()
		require.NoError(t, tracker.Track(ctx, "fresh"))

		store := &fakeTempStore{keys: map[string]struct{}{
			"temp/fresh":  {},
			"temp/orphan": {},
		}}
		sweeper := NewSweeper(store, tracker, "temp/")

		removed, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Contains(t, store.keys, "temp/fresh")
		assert.NotContains(t, store.keys, "temp/orphan")
	})

	t.Run("delete failures are skipped, not fatal", func(t *testing.T) {
		tracker, _ := testTracker(t)
		store := &fakeTempStore{
			keys:    map[string]struct{}{"temp/a": {}, "temp/b": {}},
			failDel: map[string]error{"temp/a": errors.New("boom")},
		}
		sweeper := NewSweeper(store, tracker, "temp/")

		removed, err := sweeper.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Contains(t, store.keys, "temp/a")
	})

	t.Run("list failure aborts the run", func(t *testing.T) {
		tracker, _ := testTracker(t)
		store := &fakeTempStore{listErr: errors.New("list failed")}
		sweeper := NewSweeper(store, tracker, "temp/")

		_, err := sweeper.Sweep(context.Background())
		assert.Error(t, err)
	})
}
