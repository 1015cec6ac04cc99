// Package querybuilder compiles find specifications into query documents.
//
// Compilation is a pure function of its input: every call creates a fresh
// Builder with its own VariableAllocator, and the returned documents are
// never modified afterwards. Builders are not safe for concurrent use;
// concurrent calls each create their own.
//
// A find runs in two phases:
//
//	restriction  SELECT DISTINCT ?entity WHERE { <where> <order> } ORDER BY ...
//	expansion    CONSTRUCT { <template> } WHERE { <entities> <relations> <select> }
//
// When an order is requested and more than one entity is expected, the
// restriction runs on its own and its ordered identifiers are bound into
// the expansion with VALUES; otherwise the restriction is embedded in the
// expansion as a sub-select.
//
// The package also builds count, existence and grouped aggregation
// queries, and the update documents behind save, update, delete and
// destroy.
package querybuilder
