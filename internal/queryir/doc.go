// Package queryir provides the immutable query document model that sits
// between the query builder and the backends.
//
// ARCHITECTURE:
//
//	[find spec] → [querybuilder] → [queryir] → [querysparql] → remote endpoint
//	                                         → [engine]      → embedded store
//
// A Query is a SPARQL 1.1 SELECT, CONSTRUCT or ASK; an Update is a list of
// update operations. Both are plain values. The builder creates a fresh
// document for every call and nothing mutates a document after it has been
// handed to a backend.
//
// SEALED INTERFACES:
//
// Pattern, Expression, PropertyPath and UpdateOperation are sealed with
// marker methods. Backends switch over every case and return an error for
// anything else:
//
//	switch p := pattern.(type) {
//	case BGP:
//	    // triples
//	case Optional:
//	    // left join
//	default:
//	    return fmt.Errorf("unsupported pattern type: %T", p)
//	}
//
// SUPPORTED FRAGMENT:
//
// The model covers what the builder emits and nothing more: basic graph
// patterns with property paths, GRAPH, OPTIONAL, UNION, FILTER, VALUES,
// BIND, sub-selects, EXISTS/NOT EXISTS, GROUP BY with COUNT, MIN, MAX,
// SAMPLE and GROUP_CONCAT, ORDER BY, LIMIT and OFFSET. Updates cover
// INSERT DATA, DELETE DATA, DELETE/INSERT ... WHERE and DROP GRAPH.
package queryir
