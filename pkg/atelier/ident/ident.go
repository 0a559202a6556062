// Package ident provides identifier allocation for tree nodes and projects.
package ident

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Allocator produces unique identifiers for files, folders, and projects.
type Allocator interface {
	NewID() string
}

// UUID is the production allocator backed by random UUIDs.
type UUID struct{}

// NewID returns a fresh collision-resistant identifier.
func (UUID) NewID() string {
	return uuid.New().String()
}

// Sequence is a deterministic allocator for tests. IDs take the form
// "<prefix>-1", "<prefix>-2", ...
type Sequence struct {
	Prefix string
	n      atomic.Int64
}

// NewID returns the next identifier in the sequence.
func (s *Sequence) NewID() string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, s.n.Add(1))
}
