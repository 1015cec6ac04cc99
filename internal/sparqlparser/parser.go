// Package sparqlparser parses SPARQL query and update text into queryir
// documents, and N-Triples and N-Quads documents into quads.
//
// The accepted language is the SPARQL subset the embedded engine
// evaluates: SELECT, CONSTRUCT and ASK queries with basic graph patterns,
// property paths (sequence, inverse, * and +), GRAPH, OPTIONAL, UNION,
// FILTER, BIND, VALUES, sub-selects, GROUP BY, the COUNT, MIN, MAX,
// SAMPLE and GROUP_CONCAT aggregates and ORDER BY/LIMIT/OFFSET; and
// INSERT DATA, DELETE DATA, DELETE WHERE, DELETE/INSERT WHERE and DROP
// GRAPH updates. PREFIX declarations are honored; BASE is not supported.
//
// Everything the querysparql compiler produces parses back to an
// equivalent document.
package sparqlparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

var options = []participle.Option{
	participle.Lexer(SPARQLLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(10),
}

var (
	queryParser  = participle.MustBuild[queryUnit](options...)
	updateParser = participle.MustBuild[updateUnit](options...)
	nquadsParser = participle.MustBuild[nquadsDocument](options...)
)

// ParseQuery parses SPARQL query text.
func ParseQuery(text string) (*queryir.Query, error) {
	unit, err := queryParser.ParseString("query", text)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	c, err := newConverter(unit.Prologue)
	if err != nil {
		return nil, err
	}
	q, err := c.query(unit)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return q, nil
}

// ParseUpdate parses SPARQL update text.
func ParseUpdate(text string) (*queryir.Update, error) {
	unit, err := updateParser.ParseString("update", text)
	if err != nil {
		return nil, fmt.Errorf("parse update: %w", err)
	}
	c, err := newConverter(unit.Prologue)
	if err != nil {
		return nil, err
	}
	u, err := c.update(unit)
	if err != nil {
		return nil, fmt.Errorf("parse update: %w", err)
	}
	return u, nil
}

// IsUpdate reports whether text looks like an update request rather than
// a query: its first keyword after comment lines and PREFIX declarations
// is INSERT, DELETE or DROP.
func IsUpdate(text string) bool {
	word := leadingKeyword(text)
	return strings.HasPrefix(word, "INSERT") || strings.HasPrefix(word, "DELETE") || strings.HasPrefix(word, "DROP")
}

// QueryForm reports the form of query text from its first keyword. It
// returns "" when the text does not start a SELECT, CONSTRUCT or ASK
// query.
func QueryForm(text string) queryir.QueryType {
	word := leadingKeyword(text)
	for _, form := range []queryir.QueryType{queryir.SelectQuery, queryir.ConstructQuery, queryir.AskQuery} {
		if strings.HasPrefix(word, string(form)) {
			return form
		}
	}
	return ""
}

// leadingKeyword returns the upper-cased first word of text after comment
// lines and PREFIX declarations.
func leadingKeyword(text string) string {
	var fields []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		fields = append(fields, strings.Fields(line)...)
	}
	for i := 0; i < len(fields); i++ {
		word := strings.ToUpper(fields[i])
		if word == "PREFIX" {
			i += 2
			continue
		}
		return word
	}
	return ""
}

// ParseNQuads parses an N-Quads document. N-Triples documents are valid
// N-Quads; their statements land in the default graph.
func ParseNQuads(r io.Reader) ([]rdf.Quad, error) {
	doc, err := nquadsParser.Parse("nquads", r)
	if err != nil {
		return nil, fmt.Errorf("parse n-quads: %w", err)
	}
	c := &converter{prefixes: map[string]string{}}
	quads := make([]rdf.Quad, 0, len(doc.Statements))
	for _, st := range doc.Statements {
		q, err := c.nquad(st)
		if err != nil {
			return nil, fmt.Errorf("parse n-quads: %s: %w", st.Pos, err)
		}
		quads = append(quads, q)
	}
	return quads, nil
}

// ParseNTriples parses an N-Triples document. Statements naming a graph
// are rejected.
func ParseNTriples(r io.Reader) ([]rdf.Triple, error) {
	quads, err := ParseNQuads(r)
	if err != nil {
		return nil, err
	}
	triples := make([]rdf.Triple, len(quads))
	for i, q := range quads {
		if q.Graph != nil {
			return nil, fmt.Errorf("parse n-triples: statement %d names graph %s", i+1, q.Graph)
		}
		triples[i] = q.Triple
	}
	return triples, nil
}
