package repo

import (
	"strings"

	"github.com/google/uuid"
)

const (
	threadIDPrefix       = "thread"
	conversationIDPrefix = "conv"
)

// newRandomID returns prefix-<suffix> where suffix is the first 10 hex chars of a v4 UUID.
// 40 bits is plenty for a single-user store; callers still check for collisions.
func newRandomID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + hex[:10]
}

func (r *Repository) nextID(prefix string) string {
	for {
		id := r.newID(prefix)
		if !r.idExists(id) {
			return id
		}
	}
}

func (r *Repository) idExists(id string) bool {
	for _, t := range r.threads {
		if t.ID == id {
			return true
		}
	}
	for _, c := range r.convs {
		if c.ID == id {
			return true
		}
	}
	return false
}
