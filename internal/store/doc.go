// Package store provides SQLite-backed quad storage for the embedded
// query backend.
//
// Every statement is a quad: subject, predicate, object and graph. Each
// entity lives in the named graph carrying its own identifier; statements
// without a graph live in the default graph, stored with an empty graph
// name.
//
// # Term Encoding
//
//   - Subjects and objects carry a kind column: 0 IRI, 1 blank node, 2 literal
//   - Literals store lexical value, datatype and language separately
//   - xsd:string is stored with an empty datatype so "a" and "a"^^xsd:string
//     are the same statement
//   - Literal text is NFC normalized on write and on match
//
// # Deterministic Reads
//
// All reads include ORDER BY graph, subject, predicate, object with
// COLLATE BINARY, so evaluation over the store is reproducible.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes (file databases)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: ":memory:" databases are per connection
package store
