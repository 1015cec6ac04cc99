package rdf

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// identifierPattern matches strings shaped like an absolute identifier:
// a URI scheme followed by a colon and no whitespace.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:\S*$`)

// IsIdentifier reports whether s is shaped like an absolute identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// TermFromValue converts a plain Go value into an RDF term.
//
// Conversion rules:
//   - Term values are returned unchanged
//   - identifier-shaped strings become IRIs, other strings plain literals
//   - integers become xsd:integer, floats xsd:double, bools xsd:boolean
//   - time.Time becomes xsd:dateTime in UTC
//
// Anything else is an error.
func TermFromValue(v any) (Term, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("cannot convert nil to a term")
	case Term:
		return val, nil
	case string:
		if IsIdentifier(val) {
			return IRI(val), nil
		}
		return Literal{Value: val}, nil
	case bool:
		if val {
			return True, nil
		}
		return False, nil
	case int:
		return IntegerLiteral(int64(val)), nil
	case int8:
		return IntegerLiteral(int64(val)), nil
	case int16:
		return IntegerLiteral(int64(val)), nil
	case int32:
		return IntegerLiteral(int64(val)), nil
	case int64:
		return IntegerLiteral(val), nil
	case uint:
		return Literal{Value: strconv.FormatUint(uint64(val), 10), Datatype: XSDInteger}, nil
	case uint8:
		return IntegerLiteral(int64(val)), nil
	case uint16:
		return IntegerLiteral(int64(val)), nil
	case uint32:
		return IntegerLiteral(int64(val)), nil
	case uint64:
		return Literal{Value: strconv.FormatUint(val, 10), Datatype: XSDInteger}, nil
	case float32:
		return DoubleLiteral(float64(val)), nil
	case float64:
		return DoubleLiteral(val), nil
	case time.Time:
		return DateTimeLiteral(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// IntegerLiteral creates an xsd:integer literal.
func IntegerLiteral(n int64) Literal {
	return Literal{Value: strconv.FormatInt(n, 10), Datatype: XSDInteger}
}

// DoubleLiteral creates an xsd:double literal.
func DoubleLiteral(f float64) Literal {
	return Literal{Value: strconv.FormatFloat(f, 'g', -1, 64), Datatype: XSDDouble}
}

// DateTimeLiteral creates an xsd:dateTime literal in UTC.
func DateTimeLiteral(t time.Time) Literal {
	return Literal{Value: t.UTC().Format(time.RFC3339Nano), Datatype: XSDDateTime}
}

// StringLiteral creates a plain string literal.
func StringLiteral(s string) Literal {
	return Literal{Value: s}
}

// IsNumeric reports whether the literal has a numeric XSD datatype.
func (l Literal) IsNumeric() bool {
	switch l.DatatypeIRI() {
	case XSDInteger, XSDInt, XSDLong, XSDDecimal, XSDDouble, XSDFloat,
		XSDNamespace + "short", XSDNamespace + "byte",
		XSDNamespace + "nonNegativeInteger", XSDNamespace + "positiveInteger",
		XSDNamespace + "negativeInteger", XSDNamespace + "nonPositiveInteger",
		XSDNamespace + "unsignedInt", XSDNamespace + "unsignedLong":
		return true
	}
	return false
}

// Float returns the numeric value of a numeric literal.
func (l Literal) Float() (float64, bool) {
	if !l.IsNumeric() {
		return 0, false
	}
	s := strings.TrimSpace(l.Value)
	switch s {
	case "INF":
		return math.Inf(1), true
	case "-INF":
		return math.Inf(-1), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the integer value of an integer-typed literal.
func (l Literal) Int() (int64, bool) {
	if !l.IsNumeric() {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(l.Value), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns the value of an xsd:boolean literal.
func (l Literal) Bool() (bool, bool) {
	if l.DatatypeIRI() != XSDBoolean {
		return false, false
	}
	switch strings.TrimSpace(l.Value) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// Time returns the value of an xsd:dateTime or xsd:date literal.
func (l Literal) Time() (time.Time, bool) {
	switch l.DatatypeIRI() {
	case XSDDateTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, l.Value); err == nil {
				return t, true
			}
		}
	case XSDDate:
		if t, err := time.Parse("2006-01-02", l.Value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Binding maps variable names (without the "?" prefix) to bound terms.
// A variable absent from the map is unbound.
type Binding map[string]Term

// Get returns the term bound to name.
func (b Binding) Get(name string) (Term, bool) {
	t, ok := b[name]
	return t, ok
}

// Clone returns a shallow copy of the binding.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}
