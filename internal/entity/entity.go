// Package entity defines the nested entity documents returned by finds
// and accepted by saves, and rebuilds them from flat result triples.
package entity

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/quadquery/internal/rdf"
)

// Value is a sealed interface over property values: Reference, Literal
// or *Entity.
type Value interface {
	valueNode() // Marker method - seals interface to this package
}

// Reference points at another entity by identifier.
type Reference string

// Literal is a typed or language-tagged scalar.
type Literal rdf.Literal

func (Reference) valueNode() {}
func (Literal) valueNode()   {}
func (*Entity) valueNode()   {}

// Term returns the literal as an RDF term.
func (l Literal) Term() rdf.Literal {
	return rdf.Literal(l)
}

// Entity is an identified resource with multi-valued properties keyed by
// predicate identifier.
//
// An empty ID marks an anonymous nested entity; it is stored as a blank
// node inside its parent's graph.
type Entity struct {
	ID         string
	Properties map[string][]Value
}

// New creates an entity with no properties.
func New(id string) *Entity {
	return &Entity{ID: id, Properties: map[string][]Value{}}
}

// Add appends values to a property.
func (e *Entity) Add(predicate string, values ...Value) *Entity {
	if e.Properties == nil {
		e.Properties = map[string][]Value{}
	}
	e.Properties[predicate] = append(e.Properties[predicate], values...)
	return e
}

// Set replaces all values of a property.
func (e *Entity) Set(predicate string, values ...Value) *Entity {
	if e.Properties == nil {
		e.Properties = map[string][]Value{}
	}
	e.Properties[predicate] = values
	return e
}

// Get returns the values of a property.
func (e *Entity) Get(predicate string) []Value {
	return e.Properties[predicate]
}

// First returns the first value of a property, or nil.
func (e *Entity) First(predicate string) Value {
	values := e.Properties[predicate]
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// Types returns the rdf:type identifiers of the entity.
func (e *Entity) Types() []string {
	var types []string
	for _, v := range e.Properties[rdf.RDFType] {
		switch val := v.(type) {
		case Reference:
			types = append(types, string(val))
		case *Entity:
			if val.ID != "" {
				types = append(types, val.ID)
			}
		}
	}
	return types
}

// Predicates returns the entity's property keys in lexical order.
func (e *Entity) Predicates() []string {
	keys := make([]string, 0, len(e.Properties))
	for k := range e.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := &Entity{ID: e.ID, Properties: make(map[string][]Value, len(e.Properties))}
	for k, values := range e.Properties {
		copied := make([]Value, len(values))
		for i, v := range values {
			if nested, ok := v.(*Entity); ok {
				copied[i] = nested.Clone()
			} else {
				copied[i] = v
			}
		}
		out.Properties[k] = copied
	}
	return out
}

// ValueFrom converts a plain Go value into an entity value using the same
// inference rules as find specs: identifier-shaped strings become
// references, everything else a literal.
func ValueFrom(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case rdf.IRI:
		return Reference(val), nil
	case rdf.Literal:
		return Literal(val), nil
	case map[string]any:
		e, err := FromMap(val)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	term, err := rdf.TermFromValue(v)
	if err != nil {
		return nil, err
	}
	return ValueFromTerm(term)
}

// ValueFromTerm converts an IRI or literal into an entity value.
func ValueFromTerm(t rdf.Term) (Value, error) {
	switch term := t.(type) {
	case rdf.IRI:
		return Reference(term), nil
	case rdf.Literal:
		return Literal(term), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to an entity value", t)
	}
}

// ValuesFrom converts a scalar or slice into entity values.
func ValuesFrom(v any) ([]Value, error) {
	switch val := v.(type) {
	case []any:
		out := make([]Value, 0, len(val))
		for _, item := range val {
			converted, err := ValueFrom(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case []Value:
		return val, nil
	case []string:
		out := make([]Value, 0, len(val))
		for _, item := range val {
			converted, err := ValueFrom(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	default:
		converted, err := ValueFrom(v)
		if err != nil {
			return nil, err
		}
		return []Value{converted}, nil
	}
}

// FromMap builds an entity from a generic document. The "@id" (or "id")
// key is the identifier; every other key is a predicate.
func FromMap(m map[string]any) (*Entity, error) {
	e := New("")
	for key, raw := range m {
		switch key {
		case "@id", "id":
			id, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a string, got %T", key, raw)
			}
			e.ID = id
			continue
		case "@type", "type":
			key = rdf.RDFType
		}
		values, err := ValuesFrom(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		e.Add(key, values...)
	}
	return e, nil
}

func stamp(e *Entity, now time.Time) {
	lit := Literal(rdf.DateTimeLiteral(now))
	if len(e.Properties[rdf.DCTermsCreated]) == 0 {
		e.Set(rdf.DCTermsCreated, lit)
	}
	e.Set(rdf.DCTermsModified, lit)
}

// Stamp sets dcterms:created (when absent) and dcterms:modified on the
// entity and every nested entity with an identifier.
func Stamp(e *Entity, now time.Time) {
	stampTree(e, now, map[*Entity]bool{})
}

func stampTree(e *Entity, now time.Time, seen map[*Entity]bool) {
	if e == nil || seen[e] {
		return
	}
	seen[e] = true
	if e.ID != "" {
		stamp(e, now)
	}
	for _, values := range e.Properties {
		for _, v := range values {
			if nested, ok := v.(*Entity); ok {
				stampTree(nested, now, seen)
			}
		}
	}
}
