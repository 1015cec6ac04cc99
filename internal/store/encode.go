package store

import (
	"fmt"

	"github.com/roach88/quadquery/internal/rdf"
)

// Node kinds stored in the *_kind columns.
const (
	kindIRI     = 0
	kindBlank   = 1
	kindLiteral = 2
)

// encodedTerm is a term split into its stored columns.
type encodedTerm struct {
	kind     int
	value    string
	datatype string
	lang     string
}

func encodeTerm(t rdf.Term) (encodedTerm, error) {
	switch term := rdf.Normalize(t).(type) {
	case rdf.IRI:
		return encodedTerm{kind: kindIRI, value: string(term)}, nil
	case rdf.BlankNode:
		return encodedTerm{kind: kindBlank, value: string(term)}, nil
	case rdf.Literal:
		enc := encodedTerm{kind: kindLiteral, value: term.Value}
		switch {
		case term.Language != "":
			enc.lang = term.Language
		case term.Datatype != rdf.XSDString:
			enc.datatype = term.Datatype
		}
		return enc, nil
	default:
		return encodedTerm{}, fmt.Errorf("cannot store term of type %T", t)
	}
}

func decodeTerm(kind int, value, datatype, lang string) (rdf.Term, error) {
	switch kind {
	case kindIRI:
		return rdf.IRI(value), nil
	case kindBlank:
		return rdf.BlankNode(value), nil
	case kindLiteral:
		return rdf.Literal{Value: value, Datatype: datatype, Language: lang}, nil
	default:
		return nil, fmt.Errorf("unknown term kind %d", kind)
	}
}

// encodeGraph returns the stored graph name; the default graph is "".
func encodeGraph(g rdf.Term) (string, error) {
	switch graph := g.(type) {
	case nil:
		return "", nil
	case rdf.IRI:
		if graph == "" {
			return "", fmt.Errorf("empty graph name")
		}
		return string(graph), nil
	default:
		return "", fmt.Errorf("graph name must be an IRI, got %T", g)
	}
}

func decodeGraph(g string) rdf.Term {
	if g == "" {
		return nil
	}
	return rdf.IRI(g)
}

type encodedQuad struct {
	graph   string
	subject encodedTerm
	pred    string
	object  encodedTerm
}

func encodeQuad(q rdf.Quad) (encodedQuad, error) {
	g, err := encodeGraph(q.Graph)
	if err != nil {
		return encodedQuad{}, err
	}
	s, err := encodeTerm(q.Subject)
	if err != nil {
		return encodedQuad{}, fmt.Errorf("subject: %w", err)
	}
	if s.kind == kindLiteral {
		return encodedQuad{}, fmt.Errorf("subject cannot be a literal: %s", q.Subject)
	}
	p, ok := q.Predicate.(rdf.IRI)
	if !ok {
		return encodedQuad{}, fmt.Errorf("predicate must be an IRI, got %T", q.Predicate)
	}
	o, err := encodeTerm(q.Object)
	if err != nil {
		return encodedQuad{}, fmt.Errorf("object: %w", err)
	}
	return encodedQuad{graph: g, subject: s, pred: string(p), object: o}, nil
}
