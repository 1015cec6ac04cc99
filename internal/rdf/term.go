package rdf

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Term is a sealed interface representing an RDF term or a query variable.
// Only IRI, Literal, BlankNode and Variable implement it.
type Term interface {
	termNode()
	String() string
}

// IRI is an absolute resource identifier.
type IRI string

func (IRI) termNode() {}

// String renders the IRI in angle brackets.
func (i IRI) String() string {
	return "<" + escapeIRI(string(i)) + ">"
}

// Literal is a typed or language-tagged literal.
//
// An empty Datatype with no Language is a plain xsd:string literal.
// A non-empty Language implies rdf:langString; Datatype is ignored.
type Literal struct {
	Value    string
	Datatype string
	Language string
}

func (Literal) termNode() {}

// String renders the literal in N-Triples form. xsd:string is left implicit.
func (l Literal) String() string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(EscapeString(l.Value))
	b.WriteByte('"')
	switch {
	case l.Language != "":
		b.WriteByte('@')
		b.WriteString(l.Language)
	case l.Datatype != "" && l.Datatype != XSDString:
		b.WriteString("^^")
		b.WriteString(IRI(l.Datatype).String())
	}
	return b.String()
}

// DatatypeIRI returns the effective datatype of the literal.
func (l Literal) DatatypeIRI() string {
	switch {
	case l.Language != "":
		return RDFLangString
	case l.Datatype == "":
		return XSDString
	default:
		return l.Datatype
	}
}

// IsString reports whether the literal is a simple or language-tagged string.
func (l Literal) IsString() bool {
	dt := l.DatatypeIRI()
	return dt == XSDString || dt == RDFLangString
}

// BlankNode is a blank node identified by a document-scoped label.
type BlankNode string

func (BlankNode) termNode() {}

// String renders the blank node with the "_:" prefix.
func (b BlankNode) String() string {
	return "_:" + string(b)
}

// Variable is a query variable. Variables are only meaningful inside a
// query document and never reach a store.
type Variable string

func (Variable) termNode() {}

// String renders the variable with the "?" prefix.
func (v Variable) String() string {
	return "?" + string(v)
}

// Triple is a (subject, predicate, object) statement or statement template.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// String renders the triple as an N-Triples line without the trailing newline.
func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Quad is a triple placed in a named graph. A nil Graph is the default graph.
type Quad struct {
	Triple
	Graph Term
}

// NewQuad creates a quad from its four components.
func NewQuad(s, p, o, g Term) Quad {
	return Quad{Triple: Triple{Subject: s, Predicate: p, Object: o}, Graph: g}
}

// String renders the quad as an N-Quads line without the trailing newline.
func (q Quad) String() string {
	if q.Graph == nil {
		return q.Triple.String()
	}
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String() + " " + q.Graph.String() + " ."
}

// IsVariable reports whether t is a query variable.
func IsVariable(t Term) bool {
	_, ok := t.(Variable)
	return ok
}

// IsGround reports whether none of the triple's positions is a variable.
func (t Triple) IsGround() bool {
	return !IsVariable(t.Subject) && !IsVariable(t.Predicate) && !IsVariable(t.Object)
}

// Normalize returns the term with literal text in Unicode NFC form.
// Stores apply it on write so equal strings compare equal byte-for-byte.
func Normalize(t Term) Term {
	if l, ok := t.(Literal); ok {
		l.Value = norm.NFC.String(l.Value)
		return l
	}
	return t
}

// EscapeString escapes a string for use inside an N-Triples or SPARQL
// double-quoted literal.
func EscapeString(s string) string {
	if !strings.ContainsAny(s, "\\\"\n\r\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnescapeString reverses EscapeString, also accepting \uXXXX and \UXXXXXXXX.
func UnescapeString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(s[i])
		case 'u', 'U':
			n := 4
			if s[i] == 'U' {
				n = 8
			}
			if r, ok := parseHexRune(s, i+1, n); ok {
				b.WriteRune(r)
				i += n
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func parseHexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return 0, false
	}
	var r rune
	for _, c := range s[start : start+n] {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= c - '0'
		case c >= 'a' && c <= 'f':
			r |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			r |= c - 'A' + 10
		default:
			return 0, false
		}
	}
	return r, true
}

// escapeIRI replaces characters that may not appear in an IRI reference
// with \u escapes.
func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ':
			b.WriteString(`\u`)
			const hex = "0123456789ABCDEF"
			b.WriteByte('0')
			b.WriteByte('0')
			b.WriteByte(hex[r>>4])
			b.WriteByte(hex[r&0xF])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
