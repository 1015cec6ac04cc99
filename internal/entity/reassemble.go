package entity

import (
	"sort"

	"github.com/roach88/quadquery/internal/rdf"
)

// Frame marks a property whose values are embedded as nested entities
// during reassembly instead of being left as references.
//
// A forward frame embeds the objects of Predicate. An inverse frame embeds
// the subjects that point at the entity through Predicate and stores them
// under Name.
type Frame struct {
	Predicate string
	Inverse   bool
	Name      string
	Children  []Frame
}

// Key returns the property the frame's values are stored under.
func (f Frame) Key() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Predicate
}

// Reassemble rebuilds entity documents from CONSTRUCT triples.
//
// Top-level entities are the subjects of rdf.MatchedEntity marker triples;
// the markers themselves never appear as properties. When order is
// non-nil, entities follow it exactly and identifiers missing from the
// triples are skipped; otherwise entities are sorted by identifier.
//
// Blank node objects are always embedded. IRI objects are embedded when a
// frame names their predicate and the triples describe them; otherwise
// they stay references. Property values are de-duplicated and sorted.
func Reassemble(triples []rdf.Triple, frames []Frame, order []string) []*Entity {
	idx := newTripleIndex(triples)

	var roots []rdf.Term
	if order != nil {
		seen := map[rdf.Term]bool{}
		for _, id := range order {
			iri := rdf.IRI(id)
			if idx.roots[iri] && !seen[iri] {
				seen[iri] = true
				roots = append(roots, iri)
			}
		}
	} else {
		for r := range idx.roots {
			roots = append(roots, r)
		}
		sort.Slice(roots, func(i, j int) bool { return roots[i].String() < roots[j].String() })
	}

	out := make([]*Entity, 0, len(roots))
	for _, r := range roots {
		out = append(out, idx.build(r, frames, map[rdf.Term]bool{}))
	}
	return out
}

type tripleIndex struct {
	roots     map[rdf.Term]bool
	bySubject map[rdf.Term][]rdf.Triple
	byObject  map[rdf.Term][]rdf.Triple
}

func newTripleIndex(triples []rdf.Triple) *tripleIndex {
	idx := &tripleIndex{
		roots:     map[rdf.Term]bool{},
		bySubject: map[rdf.Term][]rdf.Triple{},
		byObject:  map[rdf.Term][]rdf.Triple{},
	}
	marker := rdf.IRI(rdf.MatchedEntity)
	for _, t := range triples {
		if t.Predicate == marker {
			idx.roots[t.Subject] = true
			continue
		}
		idx.bySubject[t.Subject] = append(idx.bySubject[t.Subject], t)
		idx.byObject[t.Object] = append(idx.byObject[t.Object], t)
	}
	return idx
}

func (idx *tripleIndex) build(node rdf.Term, frames []Frame, path map[rdf.Term]bool) *Entity {
	e := New("")
	if iri, ok := node.(rdf.IRI); ok {
		e.ID = string(iri)
	}
	path[node] = true
	defer delete(path, node)

	forward := map[string]Frame{}
	var inverse []Frame
	for _, f := range frames {
		if f.Inverse {
			inverse = append(inverse, f)
		} else {
			forward[f.Predicate] = f
		}
	}

	for _, t := range idx.bySubject[node] {
		pred, ok := t.Predicate.(rdf.IRI)
		if !ok {
			continue
		}
		frame, framed := forward[string(pred)]

		switch obj := t.Object.(type) {
		case rdf.Literal:
			e.Add(string(pred), Literal(obj))
		case rdf.BlankNode:
			if path[obj] {
				continue
			}
			e.Add(string(pred), idx.build(obj, frame.Children, path))
		case rdf.IRI:
			if framed && !path[obj] && len(idx.bySubject[obj]) > 0 {
				e.Add(frame.Key(), idx.build(obj, frame.Children, path))
			} else {
				e.Add(string(pred), Reference(obj))
			}
		}
	}

	for _, f := range inverse {
		for _, t := range idx.byObject[node] {
			if t.Predicate != rdf.IRI(f.Predicate) {
				continue
			}
			switch subj := t.Subject.(type) {
			case rdf.IRI:
				if path[subj] {
					continue
				}
				if len(idx.bySubject[subj]) > 0 {
					e.Add(f.Key(), idx.build(subj, f.Children, path))
				} else {
					e.Add(f.Key(), Reference(subj))
				}
			case rdf.BlankNode:
				if !path[subj] {
					e.Add(f.Key(), idx.build(subj, f.Children, path))
				}
			}
		}
	}

	for key, values := range e.Properties {
		e.Properties[key] = normalizeValues(values)
	}
	return e
}

// normalizeValues removes duplicate references, literals and identified
// entities, then sorts. Anonymous entities keep their relative order.
func normalizeValues(values []Value) []Value {
	seen := map[string]bool{}
	out := make([]Value, 0, len(values))
	for _, v := range values {
		key, identified := valueKey(v)
		if identified {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki, _ := valueKey(out[i])
		kj, _ := valueKey(out[j])
		return ki < kj
	})
	return out
}

// valueKey returns a sort key and whether the value has a stable identity.
func valueKey(v Value) (string, bool) {
	switch val := v.(type) {
	case Reference:
		return rdf.IRI(val).String(), true
	case Literal:
		return rdf.Literal(val).String(), true
	case *Entity:
		if val.ID == "" {
			return "~", false
		}
		return rdf.IRI(val.ID).String(), true
	default:
		return "", false
	}
}
