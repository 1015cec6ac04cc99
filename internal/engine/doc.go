// Package engine evaluates query documents against the embedded quad store.
//
// The engine is the embedded backend: it runs SELECT, CONSTRUCT and ASK
// queries and update requests built by the query builder (or parsed from
// raw text) directly on the SQLite quad store, without a query language
// round trip.
//
// EVALUATION MODEL:
//
// Patterns are evaluated left to right by substitution. Each pattern
// receives the solutions produced so far and extends them:
//   - BGP: each triple is matched with the current bindings substituted
//   - GRAPH: triples inside match only the named graph; a variable graph
//     name is bound by the first triple that matches
//   - OPTIONAL: left join; solutions without a match pass through
//   - UNION: concatenation of the alternatives
//   - VALUES and sub-selects: joined with compatible solutions
//   - FILTER: applied to the solutions of its whole group at the end
//
// The default graph is the union of all graphs, so triples can be matched
// without naming the entity graph that holds them.
//
// Results are fully buffered. A solution budget (WithMaxSolutions) bounds
// the number of intermediate solutions one query may produce.
package engine
