package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/quadquery/internal/rdf"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// entityQuad creates a quad stored in the subject's own graph.
func entityQuad(subject, predicate string, object rdf.Term) rdf.Quad {
	s := rdf.IRI(subject)
	return rdf.NewQuad(s, rdf.IRI(predicate), object, s)
}
