package entity

import (
	"encoding/json"
	"strconv"

	"github.com/roach88/quadquery/internal/rdf"
)

// MarshalJSON renders the entity as a compact JSON-LD style object:
// "@id" plus one key per predicate. Single values are written bare,
// multiple values as an array.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// ToMap converts the entity into plain JSON-compatible values.
func (e *Entity) ToMap() map[string]any {
	return e.toMap(map[*Entity]bool{})
}

func (e *Entity) toMap(seen map[*Entity]bool) map[string]any {
	out := make(map[string]any, len(e.Properties)+1)
	if e.ID != "" {
		out["@id"] = e.ID
	}
	if seen[e] {
		return out
	}
	seen[e] = true
	defer delete(seen, e)

	for key, values := range e.Properties {
		rendered := make([]any, 0, len(values))
		for _, v := range values {
			rendered = append(rendered, valueToJSON(v, seen))
		}
		if len(rendered) == 1 {
			out[key] = rendered[0]
		} else {
			out[key] = rendered
		}
	}
	return out
}

func valueToJSON(v Value, seen map[*Entity]bool) any {
	switch val := v.(type) {
	case Reference:
		return map[string]any{"@id": string(val)}
	case Literal:
		return literalToJSON(rdf.Literal(val))
	case *Entity:
		return val.toMap(seen)
	default:
		return nil
	}
}

func literalToJSON(l rdf.Literal) any {
	if l.Language != "" {
		return map[string]any{"@value": l.Value, "@language": l.Language}
	}
	switch l.DatatypeIRI() {
	case rdf.XSDString:
		return l.Value
	case rdf.XSDInteger, rdf.XSDInt, rdf.XSDLong:
		if n, err := strconv.ParseInt(l.Value, 10, 64); err == nil {
			return n
		}
	case rdf.XSDDouble, rdf.XSDFloat, rdf.XSDDecimal:
		if f, err := strconv.ParseFloat(l.Value, 64); err == nil {
			return f
		}
	case rdf.XSDBoolean:
		if b, ok := l.Bool(); ok {
			return b
		}
	}
	return map[string]any{"@value": l.Value, "@type": l.Datatype}
}
