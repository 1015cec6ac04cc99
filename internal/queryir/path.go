package queryir

import "github.com/roach88/quadquery/internal/rdf"

// PropertyPath is a sealed interface over predicate positions.
//
// A PathTerm is a plain predicate (IRI or variable); the other types are
// SPARQL 1.1 property path operators and only accept IRIs at the leaves.
type PropertyPath interface {
	pathNode() // Marker method - seals interface to this package
}

// PathTerm is a single predicate.
type PathTerm struct {
	Term rdf.Term
}

// PathSequence is elt1 / elt2 / ...
type PathSequence struct {
	Steps []PropertyPath
}

// PathInverse is ^elt.
type PathInverse struct {
	Path PropertyPath
}

// PathZeroOrMore is elt*.
type PathZeroOrMore struct {
	Path PropertyPath
}

// PathOneOrMore is elt+.
type PathOneOrMore struct {
	Path PropertyPath
}

func (PathTerm) pathNode()       {}
func (PathSequence) pathNode()   {}
func (PathInverse) pathNode()    {}
func (PathZeroOrMore) pathNode() {}
func (PathOneOrMore) pathNode()  {}

// Seq concatenates paths, flattening nested sequences. A single step is
// returned unchanged.
func Seq(steps ...PropertyPath) PropertyPath {
	flat := make([]PropertyPath, 0, len(steps))
	for _, s := range steps {
		if seq, ok := s.(PathSequence); ok {
			flat = append(flat, seq.Steps...)
			continue
		}
		flat = append(flat, s)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return PathSequence{Steps: flat}
}

// IsSimple reports whether p is a plain predicate term.
func IsSimple(p PropertyPath) bool {
	_, ok := p.(PathTerm)
	return ok
}
