package util

import (
	"strings"
	"testing"
)

func TestNewIDPrefixAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID("blk")
		if !strings.HasPrefix(id, "blk_") {
			t.Fatalf("expected blk_ prefix, got %s", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	if id := NewID(""); strings.Contains(id, "_") {
		t.Fatalf("expected bare id without prefix, got %s", id)
	}
	if id := NewShortID(); len(id) != 32 || strings.Contains(id, "-") {
		t.Fatalf("unexpected short id %s", id)
	}
}
