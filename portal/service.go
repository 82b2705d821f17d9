package portal

import (
	"strings"
	"time"
)

// Service exposes every portal operation. It is safe for concurrent use;
// all shared state lives in the Store.
type Service struct {
	store  Store
	hasher PasswordHasher
	now    func() time.Time
}

// NewService creates a service over the given store and password hasher.
func NewService(store Store, hasher PasswordHasher) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func trimmed(s string) string { return strings.TrimSpace(s) }

// trimmedPtr trims s and maps an empty result to nil.
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// uniqueIDs drops duplicates, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sameID(a *int64, b int64) bool { return a != nil && *a == b }

func idPtr(id int64) *int64 { return &id }
