package assets

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// NewObjectKey generates the opaque storage key for an uploaded file.
// Clients never choose keys: a fresh uuid rules out collisions and path
// traversal, and only a plain alphanumeric extension survives from the
// original filename.
func NewObjectKey(filename string) string {
	key := uuid.NewString()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if extPattern.MatchString(ext) {
		key += "." + ext
	}
	return key
}
