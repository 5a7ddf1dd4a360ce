package projects

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geovista/projects-backend/internal/projects/domain"
)

// Store is the document store boundary. Repo is the production
// implementation; tests substitute an in-memory one.
type Store interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	ListByMember(ctx context.Context, email string) ([]domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
}

// AssetReconciler is the asset lifecycle boundary.
type AssetReconciler interface {
	Reconcile(ctx context.Context, previous, incoming []string) error
	PromoteAll(ctx context.Context, incoming []string) error
	DeleteAll(ctx context.Context, keys []string)
	DuplicateAll(ctx context.Context, keys []string) (map[string]string, error)
}

// Service drives one project mutation per request: the caller is already
// verified by the auth middleware, then load -> authorize -> reconcile
// assets -> persist, terminal on the first failing step. Store-side work
// runs before the document write, so a crash in between leaves stray
// objects rather than a committed document referencing missing ones.
type Service struct {
	store  Store
	assets AssetReconciler
	now    func() time.Time
}

func NewService(store Store, assets AssetReconciler) *Service {
	return &Service{store: store, assets: assets, now: time.Now}
}

func (s *Service) Create(ctx context.Context, email string, p *domain.Project) (*domain.Project, error) {
	p.Normalize()
	if err := Authorize(email, p, ActionCreate); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.ID = uuid.NewString()
	p.Created = now
	p.Modified = now
	ensureSlices(p)

	if err := s.assets.PromoteAll(ctx, assetKeys(p.Assets)); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, email, id string) (*domain.Project, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(email, p, ActionRead); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, email string) ([]domain.Project, error) {
	candidates, err := s.store.ListByMember(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	// The store already filters by membership; re-checking per document
	// keeps the policy the single deciding authority.
	out := make([]domain.Project, 0, len(candidates))
	for i := range candidates {
		if Authorize(email, &candidates[i], ActionRead) == nil {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, email, id string, incoming *domain.Project) (*domain.Project, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(email, current, ActionUpdate); err != nil {
		return nil, err
	}

	// id, owner and creation time are immutable.
	incoming.ID = current.ID
	incoming.Owner = current.Owner
	incoming.Created = current.Created
	incoming.Normalize()
	incoming.Modified = s.now().UTC()
	ensureSlices(incoming)

	if err := s.assets.Reconcile(ctx, assetKeys(current.Assets), assetKeys(incoming.Assets)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, incoming); err != nil {
		return nil, err
	}
	return incoming, nil
}

// Duplicate clones a readable project under a fresh id. The caller
// becomes the owner, member lists are cleared, and every saved asset is
// copied to a newly generated key so the two documents never share
// objects.
func (s *Service) Duplicate(ctx context.Context, email, id string) (*domain.Project, error) {
	src, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(email, src, ActionRead); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dup := *src
	dup.ID = uuid.NewString()
	dup.Owner = domain.Member{Email: strings.ToLower(email)}
	dup.Viewers = []domain.Member{}
	dup.Editors = []domain.Member{}
	dup.Created = now
	dup.Modified = now

	mapping, err := s.assets.DuplicateAll(ctx, assetKeys(src.Assets))
	if err != nil {
		return nil, err
	}
	dup.Assets = make([]domain.AssetRef, 0, len(src.Assets))
	for _, a := range src.Assets {
		a.Key = mapping[a.Key]
		dup.Assets = append(dup.Assets, a)
	}
	ensureSlices(&dup)

	if err := s.store.Create(ctx, &dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// Delete removes the document and, best-effort, its saved assets. Asset
// cleanup failures never block the document's own deletion.
func (s *Service) Delete(ctx context.Context, email, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(email, p, ActionDelete); err != nil {
		return err
	}

	s.assets.DeleteAll(ctx, assetKeys(p.Assets))
	return s.store.Delete(ctx, p.ID)
}

func (s *Service) UpdateGeometries(ctx context.Context, email, id string, geometries []domain.Geometry) (*domain.Project, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(email, p, ActionMutateGeometries); err != nil {
		return nil, err
	}

	if geometries == nil {
		geometries = []domain.Geometry{}
	}
	p.Geometries = geometries
	p.Modified = s.now().UTC()

	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

func assetKeys(assets []domain.AssetRef) []string {
	keys := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Key != "" {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

func ensureSlices(p *domain.Project) {
	if p.Viewers == nil {
		p.Viewers = []domain.Member{}
	}
	if p.Editors == nil {
		p.Editors = []domain.Member{}
	}
	if p.Views == nil {
		p.Views = []domain.View{}
	}
	if p.Assets == nil {
		p.Assets = []domain.AssetRef{}
	}
	if p.Geometries == nil {
		p.Geometries = []domain.Geometry{}
	}
}
