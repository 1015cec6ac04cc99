package engine

import (
	"strings"

	"github.com/roach88/quadquery/internal/rdf"
)

func sameTerm(a, b rdf.Term) bool {
	return a == b
}

// orderRank ranks term kinds for ORDER BY: unbound values sort first,
// then blank nodes, IRIs and literals.
func orderRank(t rdf.Term) int {
	switch t.(type) {
	case nil:
		return 0
	case rdf.BlankNode:
		return 1
	case rdf.IRI:
		return 2
	case rdf.Literal:
		return 3
	default:
		return 4
	}
}

// compareOrder returns an integer comparing two terms for ORDER BY. The
// result will be 0 if a==b, -1 if a < b, and +1 if a > b. Unlike the
// relational operators it is total: literals that cannot be compared by
// value fall back to their lexical form, datatype and language.
func compareOrder(a, b rdf.Term) int {
	if ra, rb := orderRank(a), orderRank(b); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch x := a.(type) {
	case nil:
		return 0
	case rdf.BlankNode:
		return strings.Compare(string(x), string(b.(rdf.BlankNode)))
	case rdf.IRI:
		return strings.Compare(string(x), string(b.(rdf.IRI)))
	case rdf.Literal:
		if c, err := compareValues(a, b); err == nil {
			return c
		}
		y := b.(rdf.Literal)
		if c := strings.Compare(x.Value, y.Value); c != 0 {
			return c
		}
		if c := strings.Compare(x.DatatypeIRI(), y.DatatypeIRI()); c != 0 {
			return c
		}
		return strings.Compare(x.Language, y.Language)
	default:
		return strings.Compare(a.String(), b.String())
	}
}

// compareValues compares two literals by value for the relational
// operators. Numbers compare numerically, dates and times
// chronologically, strings lexically and booleans false before true.
// Any other combination is a type error.
func compareValues(a, b rdf.Term) (int, error) {
	x, ok1 := a.(rdf.Literal)
	y, ok2 := b.(rdf.Literal)
	if !ok1 || !ok2 {
		return 0, errExpr("cannot compare %v and %v", a, b)
	}

	switch {
	case x.IsNumeric() && y.IsNumeric():
		if xi, ok := x.Int(); ok {
			if yi, ok := y.Int(); ok {
				return compareInts(xi, yi), nil
			}
		}
		xf, ok1 := x.Float()
		yf, ok2 := y.Float()
		if !ok1 || !ok2 {
			return 0, errExpr("malformed number in %v or %v", a, b)
		}
		switch {
		case xf < yf:
			return -1, nil
		case xf > yf:
			return 1, nil
		default:
			return 0, nil
		}

	case isTemporal(x) && isTemporal(y):
		xt, ok1 := x.Time()
		yt, ok2 := y.Time()
		if !ok1 || !ok2 {
			return 0, errExpr("malformed date in %v or %v", a, b)
		}
		return xt.Compare(yt), nil

	case x.IsString() && y.IsString():
		return strings.Compare(x.Value, y.Value), nil

	case x.DatatypeIRI() == rdf.XSDBoolean && y.DatatypeIRI() == rdf.XSDBoolean:
		xb, ok1 := x.Bool()
		yb, ok2 := y.Bool()
		if !ok1 || !ok2 {
			return 0, errExpr("malformed boolean in %v or %v", a, b)
		}
		switch {
		case xb == yb:
			return 0, nil
		case !xb:
			return -1, nil
		default:
			return 1, nil
		}
	}
	return 0, errExpr("cannot compare %v and %v", a, b)
}

// equalValues implements "=": literals comparable by value are equal when
// their values are; other terms are equal when they are the same term.
func equalValues(a, b rdf.Term) bool {
	if sameTerm(a, b) {
		return true
	}
	if c, err := compareValues(a, b); err == nil {
		return c == 0
	}
	return false
}

func isTemporal(l rdf.Literal) bool {
	dt := l.DatatypeIRI()
	return dt == rdf.XSDDateTime || dt == rdf.XSDDate
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
