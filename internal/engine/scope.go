package engine

import "github.com/roach88/quadquery/internal/rdf"

// scope is the active graph of a pattern group.
//
// Scope modes:
//   - union: the default graph, i.e. every triple of every graph
//   - fixed: one named graph (an IRI)
//   - variable: a GRAPH ?g block; triples match named graphs only and the
//     first match binds ?g, after which the graph is fixed per solution
type scope struct {
	graph rdf.Term
}

var unionScope = scope{}

// graphTarget is a scope resolved against one solution.
type graphTarget struct {
	// graph is the graph to match, or nil for any graph.
	graph rdf.Term

	// namedOnly excludes the default graph when graph is nil.
	namedOnly bool

	// bind is the graph variable still to be bound by a match.
	bind rdf.Variable

	// empty is set when the scope cannot match anything, for example a
	// graph variable bound to a literal.
	empty bool
}

// resolve resolves the scope against solution b.
func (s scope) resolve(b rdf.Binding) graphTarget {
	switch g := s.graph.(type) {
	case nil:
		return graphTarget{}
	case rdf.IRI:
		return graphTarget{graph: g}
	case rdf.Variable:
		v, ok := b[string(g)]
		if !ok {
			return graphTarget{namedOnly: true, bind: g}
		}
		if iri, ok := v.(rdf.IRI); ok {
			return graphTarget{graph: iri}
		}
		return graphTarget{empty: true}
	default:
		return graphTarget{empty: true}
	}
}
