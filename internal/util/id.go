package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID allocates a random v4 UUID, optionally prefixed ("blk_…").
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// NewShortID is a dashless UUID, used for block ids.
func NewShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
