package projects

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geovista/projects-backend/internal/assets"
	"github.com/geovista/projects-backend/internal/projects/domain"
)

// memStore is an in-memory assets.ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string]struct{}
}

func newMemStore(keys ...string) *memStore {
	s := &memStore{objects: map[string]struct{}{}}
	for _, k := range keys {
		s.objects[k] = struct{}{}
	}
	return s
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[src]; !ok {
		return fmt.Errorf("no such object %s", src)
	}
	s.objects[dst] = struct{}{}
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// memRepo is an in-memory Store.
type memRepo struct {
	mu       sync.Mutex
	projects map[string]domain.Project
}

func newMemRepo() *memRepo {
	return &memRepo{projects: map[string]domain.Project{}}
}

func (r *memRepo) Create(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = *p
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) ListByMember(_ context.Context, email string) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if Authorize(email, &p, ActionRead) == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.projects[p.ID] = *p
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

func newTestService(store *memStore) (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, assets.NewReconciler(store, "temp/", "assets/"))
	return svc, repo
}

func seedProject(t *testing.T, svc *Service, store *memStore, assetKeys ...string) *domain.Project {
	t.Helper()
	refs := make([]domain.AssetRef, 0, len(assetKeys))
	for _, k := range assetKeys {
		store.mu.Lock()
		store.objects["temp/"+k] = struct{}{}
		store.mu.Unlock()
		refs = append(refs, domain.AssetRef{Name: k, Key: k})
	}
	created, err := svc.Create(context.Background(), "a@x.com", &domain.Project{
		Owner:   domain.Member{Email: "a@x.com"},
		Viewers: []domain.Member{{Email: "viewer@x.com"}},
		Editors: []domain.Member{{Email: "editor@x.com"}},
		Title:   "survey",
		Assets:  refs,
	})
	require.NoError(t, err)
	return created
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and promotes temp assets", func(t *testing.T) {
		store := newMemStore("temp/k1")
		svc, repo := newTestService(store)

		p, err := svc.Create(ctx, "a@x.com", &domain.Project{
			Owner:  domain.Member{Email: "a@x.com"},
			Title:  "survey",
			Assets: []domain.AssetRef{{Name: "scan.glb", Key: "k1"}},
		})
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.False(t, p.Created.IsZero())
		assert.Equal(t, p.Created, p.Modified)
		assert.True(t, store.has("assets/k1"))
		assert.False(t, store.has("temp/k1"))

		persisted, err := repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "survey", persisted.Title)
	})

	t.Run("nobody may create a project for someone else", func(t *testing.T) {
		svc, repo := newTestService(newMemStore())

		_, err := svc.Create(ctx, "mallory@x.com", &domain.Project{
			Owner: domain.Member{Email: "a@x.com"},
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, repo.projects)
	})

	t.Run("missing asset aborts before persisting", func(t *testing.T) {
		svc, repo := newTestService(newMemStore())

		_, err := svc.Create(ctx, "a@x.com", &domain.Project{
			Owner:  domain.Member{Email: "a@x.com"},
			Assets: []domain.AssetRef{{Key: "ghost"}},
		})
		assert.ErrorIs(t, err, assets.ErrAssetMissing)
		assert.Empty(t, repo.projects)
	})

	t.Run("owner is stripped from member lists", func(t *testing.T) {
		svc, _ := newTestService(newMemStore())

		p, err := svc.Create(ctx, "A@X.com", &domain.Project{
			Owner:   domain.Member{Email: "a@x.com"},
			Viewers: []domain.Member{{Email: "A@X.COM"}, {Email: "v@x.com"}},
			Editors: []domain.Member{{Email: "a@x.com"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.Member{{Email: "v@x.com"}}, p.Viewers)
		assert.Empty(t, p.Editors)
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(store)
	p := seedProject(t, svc, store)

	t.Run("viewer can read", func(t *testing.T) {
		got, err := svc.Get(ctx, "viewer@x.com", p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("stranger gets forbidden, not details", func(t *testing.T) {
		_, err := svc.Get(ctx, "stranger@x.com", p.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "a@x.com", "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(store)
	seedProject(t, svc, store)

	mine, err := svc.List(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	viewers, err := svc.List(ctx, "VIEWER@x.com")
	require.NoError(t, err)
	assert.Len(t, viewers, 1)

	nobody, err := svc.List(ctx, "stranger@x.com")
	require.NoError(t, err)
	assert.Empty(t, nobody)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles the asset diff", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)
		p := seedProject(t, svc, store, "k1", "k2")
		store.mu.Lock()
		store.objects["temp/k3"] = struct{}{}
		store.mu.Unlock()

		updated, err := svc.Update(ctx, "editor@x.com", p.ID, &domain.Project{
			Title: "revised",
			Assets: []domain.AssetRef{
				{Name: "k2", Key: "k2"},
				{Name: "k3", Key: "k3"},
			},
		})
		require.NoError(t, err)

		assert.False(t, store.has("assets/k1"))
		assert.True(t, store.has("assets/k2"))
		assert.True(t, store.has("assets/k3"))
		assert.False(t, store.has("temp/k3"))
		assert.Equal(t, "revised", updated.Title)
	})

	t.Run("viewer is always denied", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)
		p := seedProject(t, svc, store)

		_, err := svc.Update(ctx, "viewer@x.com", p.ID, &domain.Project{Title: "sneaky"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("id, owner and created are immutable", func(t *testing.T) {
		store := newMemStore()
		svc, repo := newTestService(store)
		p := seedProject(t, svc, store)

		updated, err := svc.Update(ctx, "a@x.com", p.ID, &domain.Project{
			ID:      "11111111-1111-1111-1111-111111111111",
			Owner:   domain.Member{Email: "thief@x.com"},
			Created: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
			Title:   "still mine",
		})
		require.NoError(t, err)

		assert.Equal(t, p.ID, updated.ID)
		assert.Equal(t, "a@x.com", updated.Owner.Email)
		assert.Equal(t, p.Created, updated.Created)
		assert.True(t, updated.Modified.After(p.Modified) || updated.Modified.Equal(p.Modified))

		_, err = repo.Get(ctx, "11111111-1111-1111-1111-111111111111")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(store)
	p := seedProject(t, svc, store, "k1")

	t.Run("viewer may duplicate into an owned copy", func(t *testing.T) {
		dup, err := svc.Duplicate(ctx, "viewer@x.com", p.ID)
		require.NoError(t, err)

		assert.NotEqual(t, p.ID, dup.ID)
		assert.Equal(t, "viewer@x.com", dup.Owner.Email)
		assert.Empty(t, dup.Viewers)
		assert.Empty(t, dup.Editors)
		require.Len(t, dup.Assets, 1)
		assert.NotEqual(t, "k1", dup.Assets[0].Key, "duplicate gets its own object")
		assert.True(t, store.has("assets/"+dup.Assets[0].Key))
		assert.True(t, store.has("assets/k1"), "source object untouched")
	})

	t.Run("stranger cannot duplicate", func(t *testing.T) {
		_, err := svc.Duplicate(ctx, "stranger@x.com", p.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes document and saved assets", func(t *testing.T) {
		store := newMemStore()
		svc, repo := newTestService(store)
		p := seedProject(t, svc, store, "k1", "k2")

		require.NoError(t, svc.Delete(ctx, "a@x.com", p.ID))

		_, err := repo.Get(ctx, p.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, store.has("assets/k1"))
		assert.False(t, store.has("assets/k2"))
	})

	t.Run("viewer cannot delete", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)
		p := seedProject(t, svc, store)

		assert.ErrorIs(t, svc.Delete(ctx, "viewer@x.com", p.ID), domain.ErrForbidden)
	})
}

func TestService_UpdateGeometries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestService(store)
	p := seedProject(t, svc, store)

	t.Run("editor replaces the geometry list", func(t *testing.T) {
		geoms := []domain.Geometry{{ID: "g1", Type: "polygon", Show: true}}
		updated, err := svc.UpdateGeometries(ctx, "editor@x.com", p.ID, geoms)
		require.NoError(t, err)
		assert.Equal(t, geoms, updated.Geometries)
	})

	t.Run("viewer is denied", func(t *testing.T) {
		_, err := svc.UpdateGeometries(ctx, "viewer@x.com", p.ID, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
