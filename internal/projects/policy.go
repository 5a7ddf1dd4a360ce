package projects

import (
	"strings"

	"github.com/geovista/projects-backend/internal/projects/domain"
)

// Action is a project operation subject to authorization.
type Action int

const (
	ActionCreate Action = iota
	ActionRead
	ActionUpdate
	ActionDelete
	ActionMutateGeometries
)

// Authorize decides whether the caller identified by email may perform
// action on p. Viewers are read-only; update/delete/geometry changes need
// owner or editor. Create requires the caller to register themselves as
// owner. Every denial is the same ErrForbidden so the HTTP layer cannot
// leak why (or whether the document exists to someone else).
func Authorize(email string, p *domain.Project, action Action) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.ErrForbidden
	}

	switch action {
	case ActionCreate:
		if strings.EqualFold(p.Owner.Email, email) {
			return nil
		}
	case ActionRead:
		if strings.EqualFold(p.Owner.Email, email) ||
			domain.HasMember(p.Viewers, email) ||
			domain.HasMember(p.Editors, email) {
			return nil
		}
	case ActionUpdate, ActionDelete, ActionMutateGeometries:
		if strings.EqualFold(p.Owner.Email, email) ||
			domain.HasMember(p.Editors, email) {
			return nil
		}
	}
	return domain.ErrForbidden
}
