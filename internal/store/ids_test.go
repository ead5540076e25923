package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewIDIsUniqueUUID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("newID() = %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
