package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geovista/projects-backend/internal/projects/domain"
)

// Repo persists projects as JSON documents keyed by id. The document
// column is the single source of truth; membership queries go through
// JSONB predicates over it.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists projects (
	id uuid primary key,
	project jsonb not null
);
`
	if _, err := r.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Repo) Create(ctx context.Context, p *domain.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	const q = `insert into projects (id, project) values ($1, $2);`
	if _, err := r.db.Exec(ctx, q, p.ID, doc); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*domain.Project, error) {
	const q = `select project from projects where id = $1;`

	var doc []byte
	err := r.db.QueryRow(ctx, q, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &p, nil
}

// ListByMember returns every project whose owner, viewers or editors
// include the given email. Comparison is case-insensitive on both sides.
func (r *Repo) ListByMember(ctx context.Context, email string) ([]domain.Project, error) {
	const q = `
select project from projects
where lower(project->'owner'->>'email') = $1
   or exists (
		select 1 from jsonb_array_elements(coalesce(project->'viewers', '[]'::jsonb)) m
		where lower(m->>'email') = $1)
   or exists (
		select 1 from jsonb_array_elements(coalesce(project->'editors', '[]'::jsonb)) m
		where lower(m->>'email') = $1)
order by project->>'modified' desc;
`
	rows, err := r.db.Query(ctx, q, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p domain.Project
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("unmarshal project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, p *domain.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	const q = `update projects set project = $2 where id = $1;`
	ct, err := r.db.Exec(ctx, q, p.ID, doc)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	const q = `delete from projects where id = $1;`
	ct, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
