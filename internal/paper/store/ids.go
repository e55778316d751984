package store

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers that never repeat for the lifetime of
// the process, however close together two creations happen.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator returns random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// CounterGenerator returns prefix_1, prefix_2, ... from an atomic counter.
type CounterGenerator struct {
	prefix string
	n      atomic.Uint64
}

func NewCounterGenerator(prefix string) *CounterGenerator {
	return &CounterGenerator{prefix: prefix}
}

func (g *CounterGenerator) NewID() string {
	return fmt.Sprintf("%s_%d", g.prefix, g.n.Add(1))
}

// NewIDGenerator maps a configured scheme name ("uuid" or "counter") to a
// generator. An empty scheme selects uuid.
func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", "uuid":
		return UUIDGenerator{}, nil
	case "counter":
		return NewCounterGenerator("id"), nil
	}
	return nil, fmt.Errorf("unknown id scheme %q", scheme)
}
