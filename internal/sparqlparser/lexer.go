package sparqlparser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SPARQLLexer tokenizes SPARQL query and update text as well as N-Triples
// and N-Quads documents.
//
// Rule order matters: an IRI reference is tried before the "<" operator,
// the "^^" datatype marker before "^", and prefixed names before bare
// identifiers. Relational operators must be surrounded by whitespace so
// that "<" never starts an IRI reference.
var SPARQLLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},

	{Name: "IRIRef", Pattern: "<[^<>\"{}|^`\\\\\\s]*>"},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "LangTag", Pattern: `@[a-zA-Z]+(?:-[a-zA-Z0-9]+)*`},
	{Name: "DatatypeMarker", Pattern: `\^\^`},
	{Name: "Var", Pattern: `[?$][A-Za-z0-9_]+`},
	{Name: "BlankNode", Pattern: `_:[A-Za-z0-9_](?:[A-Za-z0-9_\-.]*[A-Za-z0-9_\-])?`},
	{Name: "Number", Pattern: `[+-]?(?:\d+\.\d+(?:[eE][+-]?\d+)?|\d+[eE][+-]?\d+|\d+)`},
	{Name: "PName", Pattern: `(?:[A-Za-z][A-Za-z0-9_\-]*)?:(?:[A-Za-z0-9_\-:%]|\.[A-Za-z0-9_\-:%])*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	{Name: "Operator", Pattern: `&&|\|\||!=|<=|>=|[=<>!^*+/(){}.,;|]`},
})
