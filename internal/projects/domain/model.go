package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrForbidden = errors.New("forbidden")
)

// Member is an owner/viewer/editor entry on a project. Emails are
// canonicalized to lowercase; all comparisons are case-insensitive.
type Member struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Surname string `json:"surname,omitempty"`
}

type View struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
}

// AssetRef points at an object in the content store. Key is opaque and
// generated server-side; the storage prefix (temp/ vs assets/) tracks
// whether the object is pending or saved.
type AssetRef struct {
	Name    string `json:"name"`
	Key     string `json:"key"`
	Clamped bool   `json:"clamped,omitempty"`
}

type Geometry struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Show        bool        `json:"show"`
	Coordinates [][]float64 `json:"coordinates,omitempty"`
}

// Project is the persisted document. ID and Created are immutable after
// creation; Modified is bumped on every mutation. Exactly one owner, and
// the owner never appears in Viewers or Editors.
type Project struct {
	ID          string     `json:"id"`
	Owner       Member     `json:"owner"`
	Viewers     []Member   `json:"viewers"`
	Editors     []Member   `json:"editors"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Color       string     `json:"color,omitempty"`
	Image       string     `json:"image,omitempty"`
	Created     time.Time  `json:"created"`
	Modified    time.Time  `json:"modified"`
	Views       []View     `json:"views"`
	Assets      []AssetRef `json:"assets"`
	Geometries  []Geometry `json:"geometries"`
}

// Normalize lowercases all member emails and strips the owner out of the
// viewer and editor lists.
func (p *Project) Normalize() {
	p.Owner.Email = strings.ToLower(strings.TrimSpace(p.Owner.Email))
	p.Viewers = normalizeMembers(p.Viewers, p.Owner.Email)
	p.Editors = normalizeMembers(p.Editors, p.Owner.Email)
}

func normalizeMembers(members []Member, ownerEmail string) []Member {
	out := make([]Member, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if email == "" || email == ownerEmail {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		m.Email = email
		out = append(out, m)
	}
	return out
}

// HasMember reports whether email appears in the given member list.
func HasMember(members []Member, email string) bool {
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return true
		}
	}
	return false
}
