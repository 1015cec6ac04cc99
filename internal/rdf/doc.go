// Package rdf provides the term and statement types shared by every other
// quadquery package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import rdf; rdf imports nothing internal. This keeps the
// term model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Term is a sealed interface: IRI, Literal, BlankNode and Variable only
//   - Terms are comparable values and may be used as map keys
//   - String() renders the N-Triples form, which is also valid SPARQL syntax
//   - Literal strings are NFC normalized before they reach a store
package rdf
