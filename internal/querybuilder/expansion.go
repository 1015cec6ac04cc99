package querybuilder

import (
	"sort"

	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// buildExpansion compiles relations and select into the CONSTRUCT half of
// a find. Without a select every triple of the entity's graph is
// returned; with one only the selected properties are.
func (b *Builder) buildExpansion(relations map[string]any, sel any) (Expansion, error) {
	exp := Expansion{
		SelectionTriples: []rdf.Triple{{Subject: EntityVariable, Predicate: rdf.IRI(rdf.MatchedEntity), Object: rdf.True}},
	}

	if sel == nil {
		s, p, o := b.vars.Next("s"), b.vars.Next("p"), b.vars.Next("o")
		exp.Patterns = append(exp.Patterns, queryir.Graph{
			Name:     EntityVariable,
			Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(s, p, o))},
		})
		exp.SelectionTriples = append(exp.SelectionTriples, rdf.Triple{Subject: s, Predicate: p, Object: o})
	} else {
		patterns, triples, frames, err := b.buildSelection(EntityVariable, sel)
		if err != nil {
			return Expansion{}, err
		}
		exp.Patterns = append(exp.Patterns, patterns...)
		exp.SelectionTriples = append(exp.SelectionTriples, triples...)
		exp.Frames = frames
	}

	patterns, triples, frames, err := b.buildRelations(EntityVariable, relations)
	if err != nil {
		return Expansion{}, err
	}
	exp.Patterns = append(exp.Patterns, patterns...)
	exp.SelectionTriples = append(exp.SelectionTriples, triples...)
	exp.Frames = mergeFrames(exp.Frames, frames)
	return exp, nil
}

// buildSelection compiles a select list or nested select map for subject.
func (b *Builder) buildSelection(subject rdf.Variable, sel any) ([]queryir.Pattern, []rdf.Triple, []entity.Frame, error) {
	var (
		patterns []queryir.Pattern
		triples  []rdf.Triple
		frames   []entity.Frame
	)

	selectField := func(field string) (rdf.Variable, rdf.IRI, error) {
		pred, err := selectPredicate(field)
		if err != nil {
			return "", "", err
		}
		v := b.vars.Next("v")
		triples = append(triples, rdf.Triple{Subject: subject, Predicate: pred, Object: v})
		return v, pred, nil
	}

	switch s := sel.(type) {
	case []string:
		for _, field := range s {
			if field == FieldID {
				continue
			}
			v, pred, err := selectField(field)
			if err != nil {
				return nil, nil, nil, err
			}
			patterns = append(patterns, queryir.Optional{Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(subject, pred, v))}})
		}

	case []any:
		fields := make([]string, 0, len(s))
		for _, item := range s {
			field, ok := item.(string)
			if !ok {
				return nil, nil, nil, NewInvalidValueError("select", "select entries must be strings, got %T", item)
			}
			fields = append(fields, field)
		}
		return b.buildSelection(subject, fields)

	case map[string]any:
		for _, field := range operator.SortedKeys(s) {
			switch nested := s[field].(type) {
			case bool:
				if !nested || field == FieldID {
					continue
				}
				v, pred, err := selectField(field)
				if err != nil {
					return nil, nil, nil, err
				}
				patterns = append(patterns, queryir.Optional{Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(subject, pred, v))}})

			case []string, []any, map[string]any:
				v, pred, err := selectField(field)
				if err != nil {
					return nil, nil, nil, err
				}
				innerPatterns, innerTriples, innerFrames, err := b.buildSelection(v, nested)
				if err != nil {
					return nil, nil, nil, err
				}
				inner := append([]queryir.Pattern{queryir.NewBGP(queryir.T(subject, pred, v))}, innerPatterns...)
				patterns = append(patterns, queryir.Optional{Patterns: inner})
				triples = append(triples, innerTriples...)
				frames = append(frames, entity.Frame{Predicate: string(pred), Children: innerFrames})

			default:
				return nil, nil, nil, NewInvalidValueError(field, "select value must be true, a list or a map, got %T", nested)
			}
		}

	default:
		return nil, nil, nil, NewInvalidValueError("select", "select must be a list or a map, got %T", sel)
	}

	return patterns, triples, frames, nil
}

func selectPredicate(field string) (rdf.IRI, error) {
	if field == FieldType {
		return rdf.TypeIRI, nil
	}
	if !rdf.IsIdentifier(field) {
		return "", NewInvalidPathError(field, "selected field must be a predicate identifier")
	}
	return rdf.IRI(field), nil
}

// buildRelations compiles relation expansion for parent. Each related
// entity contributes its whole graph. The link triple is kept even when
// the related entity has no graph of its own.
func (b *Builder) buildRelations(parent rdf.Variable, relations map[string]any) ([]queryir.Pattern, []rdf.Triple, []entity.Frame, error) {
	var (
		patterns []queryir.Pattern
		triples  []rdf.Triple
		frames   []entity.Frame
	)

	for _, key := range operator.SortedKeys(relations) {
		var (
			nested  any
			inverse bool
			pred    = key
		)
		switch v := relations[key].(type) {
		case bool:
			if !v {
				continue
			}
		case map[string]any:
			nested = v
		case operator.InverseRelation:
			inverse = true
			nested = v.Relations
			if v.ResolvedName != "" {
				pred = v.ResolvedName
			}
		case operator.Operator:
			return nil, nil, nil, NewUnsupportedOperatorError(key, v.Kind())
		default:
			return nil, nil, nil, NewInvalidValueError(key, "relation must be true, a map or inverseRelation, got %T", v)
		}

		if !rdf.IsIdentifier(pred) {
			return nil, nil, nil, NewInvalidPathError(key, "relation predicate %q is not an identifier", pred)
		}

		var children map[string]any
		switch n := nested.(type) {
		case nil, bool:
		case map[string]any:
			children = n
		default:
			return nil, nil, nil, NewInvalidValueError(key, "nested relations must be a map, got %T", n)
		}

		r := b.vars.Next("r")
		link := rdf.Triple{Subject: parent, Predicate: rdf.IRI(pred), Object: r}
		if inverse {
			link = rdf.Triple{Subject: r, Predicate: rdf.IRI(pred), Object: parent}
		}
		s, p, o := b.vars.Next("s"), b.vars.Next("p"), b.vars.Next("o")

		innerPatterns, innerTriples, innerFrames, err := b.buildRelations(r, children)
		if err != nil {
			return nil, nil, nil, err
		}

		inner := []queryir.Pattern{
			queryir.NewBGP(queryir.T(link.Subject, link.Predicate, link.Object)),
			queryir.Optional{Patterns: []queryir.Pattern{queryir.Graph{
				Name:     r,
				Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(s, p, o))},
			}}},
		}
		patterns = append(patterns, queryir.Optional{Patterns: append(inner, innerPatterns...)})

		triples = append(triples, link, rdf.Triple{Subject: s, Predicate: p, Object: o})
		triples = append(triples, innerTriples...)

		frame := entity.Frame{Predicate: pred, Children: innerFrames}
		if inverse {
			frame.Inverse = true
			frame.Name = key
		}
		frames = append(frames, frame)
	}

	return patterns, triples, frames, nil
}

// mergeFrames combines select and relation frames. Frames for the same
// property merge their children.
func mergeFrames(a, b []entity.Frame) []entity.Frame {
	if len(a) == 0 {
		return b
	}
	out := append([]entity.Frame(nil), a...)
	for _, f := range b {
		merged := false
		for i := range out {
			if out[i].Key() == f.Key() && out[i].Inverse == f.Inverse {
				out[i].Children = mergeFrames(out[i].Children, f.Children)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
