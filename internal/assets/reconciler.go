package assets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrAssetMissing means an incoming asset reference points at an object
// that exists at neither the temporary nor the permanent location. The
// mutation carrying such a reference must fail rather than persist a
// dangling pointer.
var ErrAssetMissing = errors.New("asset object missing")

const reconcileConcurrency = 4

// Reconciler keeps the content store in line with a project's declared
// asset set. Promotion and deletion are idempotent and order-independent
// across keys, so retrying a whole request is always safe. Per key the
// check/copy/delete sequence is strictly sequential.
type Reconciler struct {
	store      ObjectStore
	tempPrefix string
	saved      string
}

func NewReconciler(store ObjectStore, tempPrefix, savedPrefix string) *Reconciler {
	return &Reconciler{store: store, tempPrefix: tempPrefix, saved: savedPrefix}
}

func (r *Reconciler) TempKey(key string) string  { return r.tempPrefix + key }
func (r *Reconciler) SavedKey(key string) string { return r.saved + key }

// Reconcile promotes every incoming key and deletes the saved objects of
// keys dropped from the set. Deletes run only after promotion succeeded,
// so a failed promotion never tears down previously saved objects.
func (r *Reconciler) Reconcile(ctx context.Context, previous, incoming []string) error {
	if err := r.promote(ctx, incoming); err != nil {
		return err
	}

	incomingSet := make(map[string]struct{}, len(incoming))
	for _, k := range incoming {
		incomingSet[k] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, key := range previous {
		if _, keep := incomingSet[key]; keep {
			continue
		}
		key := key
		g.Go(func() error {
			// An already-absent object counts as deleted, and skipping
			// the call keeps a repeated reconcile free of writes.
			exists, err := r.store.Exists(gctx, r.SavedKey(key))
			if err != nil {
				return err
			}
			if !exists {
				return nil
			}
			return r.store.Delete(gctx, r.SavedKey(key))
		})
	}
	return g.Wait()
}

// PromoteAll is the create path: no previous set, promotion only.
func (r *Reconciler) PromoteAll(ctx context.Context, incoming []string) error {
	return r.promote(ctx, incoming)
}

// DeleteAll removes every saved object of a deleted project. Best-effort:
// individual failures are logged and swallowed, because an orphaned store
// object is a lesser failure than a document stuck undeletable. The
// orphan sweeper picks up what this leaves behind.
func (r *Reconciler) DeleteAll(ctx context.Context, keys []string) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, reconcileConcurrency)
	for _, key := range keys {
		wg.Add(1)
		sem <- struct{}{}
		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := r.store.Delete(ctx, r.SavedKey(key)); err != nil {
				log.Printf("[assets] cleanup of %s failed: %v", key, err)
			}
		}(key)
	}
	wg.Wait()
}

// DuplicateAll copies every saved object to a freshly generated key and
// returns the old-to-new mapping, so a duplicated project never shares
// store objects with its source. A missing source object fails the whole
// duplication.
func (r *Reconciler) DuplicateAll(ctx context.Context, keys []string) (map[string]string, error) {
	mapping := make(map[string]string, len(keys))
	for _, key := range keys {
		mapping[key] = NewObjectKey(key)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for old, fresh := range mapping {
		old, fresh := old, fresh
		g.Go(func() error {
			exists, err := r.store.Exists(gctx, r.SavedKey(old))
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrAssetMissing, old)
			}
			return r.store.Copy(gctx, r.SavedKey(old), r.SavedKey(fresh))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mapping, nil
}

type promotion int

const (
	promotionDone promotion = iota // already at the saved location
	promotionCopy                  // present in temp, needs copy + temp delete
)

// promote runs in two phases. The first classifies every key without
// touching the store's contents, so a single missing reference fails the
// whole promotion before any copy happens. The second applies the copies.
func (r *Reconciler) promote(ctx context.Context, incoming []string) error {
	plans := make([]promotion, len(incoming))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for i, key := range incoming {
		i, key := i, key
		g.Go(func() error {
			saved, err := r.store.Exists(gctx, r.SavedKey(key))
			if err != nil {
				return err
			}
			if saved {
				plans[i] = promotionDone
				return nil
			}
			temp, err := r.store.Exists(gctx, r.TempKey(key))
			if err != nil {
				return err
			}
			if !temp {
				return fmt.Errorf("%w: %s", ErrAssetMissing, key)
			}
			plans[i] = promotionCopy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for i, key := range incoming {
		if plans[i] != promotionCopy {
			continue
		}
		key := key
		g.Go(func() error {
			if err := r.store.Copy(gctx, r.TempKey(key), r.SavedKey(key)); err != nil {
				return err
			}
			return r.store.Delete(gctx, r.TempKey(key))
		})
	}
	return g.Wait()
}
