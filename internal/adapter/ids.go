package adapter

import (
	"sync"

	"github.com/google/uuid"
)

// IDPrefix prefixes generated entity identifiers.
const IDPrefix = "urn:uuid:"

// IDGenerator names entities saved without an identifier.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable "urn:uuid:" identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so identifiers
// of entities saved later sort after earlier ones.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns "urn:uuid:" followed by a hyphenated UUIDv7.
//
// Panics if UUID generation fails (the random source is broken).
func (g UUIDv7Generator) Generate() string {
	return IDPrefix + uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("urn:ex:1", "urn:ex:2")
//	gen.Generate() // "urn:ex:1"
//	gen.Generate() // "urn:ex:2"
//	gen.Generate() // panic: all identifiers exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined identifier.
//
// Panics if all identifiers have been consumed: the test saved more
// anonymous entities than it planned for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all identifiers exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
