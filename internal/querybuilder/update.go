package querybuilder

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// UpdateBuilder compiles entity mutations into update documents.
//
// Each entity with an identifier owns the named graph of the same name.
// Saving an entity replaces that graph; anonymous nested entities are
// written as blank nodes into their parent's graph.
type UpdateBuilder struct {
	// Now stamps dcterms:created and dcterms:modified when Timestamps is set.
	Now        time.Time
	Timestamps bool

	// NewID names top-level entities saved without an identifier.
	NewID func() string
}

// BuildSave compiles a save of entities. It returns the update and the
// entities as stored: cloned, with identifiers assigned and timestamps
// applied. The inputs are not modified.
func (u *UpdateBuilder) BuildSave(entities []*entity.Entity) (*queryir.Update, []*entity.Entity, error) {
	saved := make([]*entity.Entity, 0, len(entities))
	for i, e := range entities {
		if e == nil {
			return nil, nil, NewInvalidValueError("entities", "entity %d is nil", i)
		}
		c := e.Clone()
		if c.ID == "" {
			if u.NewID == nil {
				return nil, nil, NewInvalidValueError("id", "entity %d has no identifier", i)
			}
			c.ID = u.NewID()
		}
		if !rdf.IsIdentifier(c.ID) {
			return nil, nil, NewInvalidValueError("id", "%q is not an identifier", c.ID)
		}
		if u.Timestamps {
			entity.Stamp(c, u.Now)
		}
		saved = append(saved, c)
	}

	w := &quadWriter{written: map[string]bool{}}
	for _, e := range saved {
		if err := w.writeEntity(e); err != nil {
			return nil, nil, err
		}
	}

	ops := make([]queryir.UpdateOperation, 0, len(w.graphs)+1)
	for _, g := range w.graphs {
		ops = append(ops, clearGraph(g))
	}
	if len(w.quads) > 0 {
		ops = append(ops, queryir.InsertData{Quads: w.quads})
	}
	return &queryir.Update{Operations: ops}, saved, nil
}

// clearGraph deletes every triple of graph g.
func clearGraph(g rdf.IRI) queryir.UpdateOperation {
	s, p, o := rdf.Variable("s"), rdf.Variable("p"), rdf.Variable("o")
	return queryir.Modify{
		Delete: []rdf.Quad{rdf.NewQuad(s, p, o, g)},
		Where:  []queryir.Pattern{queryir.Graph{Name: g, Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(s, p, o))}}},
	}
}

// quadWriter flattens entity trees into quads, one graph per identified
// entity. Graphs are emitted in first-visit order.
type quadWriter struct {
	graphs  []rdf.IRI
	quads   []rdf.Quad
	written map[string]bool
	blanks  int
}

func (w *quadWriter) writeEntity(e *entity.Entity) error {
	if w.written[e.ID] {
		return nil
	}
	w.written[e.ID] = true
	g := rdf.IRI(e.ID)
	w.graphs = append(w.graphs, g)

	var pending []*entity.Entity
	if err := w.writeProperties(g, g, e, map[*entity.Entity]bool{e: true}, &pending); err != nil {
		return err
	}
	for _, nested := range pending {
		if err := w.writeEntity(nested); err != nil {
			return err
		}
	}
	return nil
}

// writeProperties writes the properties of e with the given subject into
// graph g. Identified nested entities are queued for their own graphs.
func (w *quadWriter) writeProperties(g rdf.IRI, subject rdf.Term, e *entity.Entity, path map[*entity.Entity]bool, pending *[]*entity.Entity) error {
	for _, pred := range e.Predicates() {
		if !rdf.IsIdentifier(pred) {
			return NewInvalidPathError(pred, "property name is not a predicate identifier")
		}
		for _, v := range e.Properties[pred] {
			object, err := w.object(g, v, path, pending)
			if err != nil {
				return fmt.Errorf("property %q: %w", pred, err)
			}
			w.quads = append(w.quads, rdf.NewQuad(subject, rdf.IRI(pred), object, g))
		}
	}
	return nil
}

func (w *quadWriter) object(g rdf.IRI, v entity.Value, path map[*entity.Entity]bool, pending *[]*entity.Entity) (rdf.Term, error) {
	switch val := v.(type) {
	case entity.Reference:
		if !rdf.IsIdentifier(string(val)) {
			return nil, NewInvalidValueError("", "reference %q is not an identifier", string(val))
		}
		return rdf.IRI(val), nil
	case entity.Literal:
		return val.Term(), nil
	case *entity.Entity:
		if val == nil {
			return nil, NewInvalidValueError("", "nested entity is nil")
		}
		if val.ID != "" {
			if !rdf.IsIdentifier(val.ID) {
				return nil, NewInvalidValueError("id", "%q is not an identifier", val.ID)
			}
			*pending = append(*pending, val)
			return rdf.IRI(val.ID), nil
		}
		if path[val] {
			return nil, NewInvalidValueError("", "anonymous entity contains itself")
		}
		path[val] = true
		defer delete(path, val)
		b := rdf.BlankNode(fmt.Sprintf("b%d", w.blanks))
		w.blanks++
		if err := w.writeProperties(g, b, val, path, pending); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// BuildUpdate replaces the given properties of each entity. A nil value
// removes the property. Other properties are left untouched. Identified
// nested entities in the new values are saved into their own graphs.
func (u *UpdateBuilder) BuildUpdate(ids []string, attrs map[string]any) (*queryir.Update, error) {
	if len(attrs) == 0 && !u.Timestamps {
		return nil, NewInvalidValueError("attributes", "no attributes to update")
	}

	values := map[string][]entity.Value{}
	preds := make([]string, 0, len(attrs)+1)
	for pred, raw := range attrs {
		if pred == FieldType {
			pred = rdf.RDFType
		}
		if !rdf.IsIdentifier(pred) {
			return nil, NewInvalidPathError(pred, "property name is not a predicate identifier")
		}
		preds = append(preds, pred)
		if raw == nil {
			continue
		}
		vs, err := entity.ValuesFrom(raw)
		if err != nil {
			return nil, &CompilationError{Code: ErrCodeInvalidValue, Field: pred, Message: err.Error(), Err: err}
		}
		values[pred] = vs
	}
	if u.Timestamps {
		if _, ok := values[rdf.DCTermsModified]; !ok {
			preds = append(preds, rdf.DCTermsModified)
		}
		values[rdf.DCTermsModified] = []entity.Value{entity.Literal(rdf.DateTimeLiteral(u.Now))}
	}
	sort.Strings(preds)

	var (
		ops     = make([]queryir.UpdateOperation, 0, len(ids)+1)
		pending []*entity.Entity
		updated = map[string]bool{}
		blanks  int
	)
	for _, id := range ids {
		if !rdf.IsIdentifier(id) {
			return nil, NewInvalidValueError("id", "%q is not an identifier", id)
		}
		updated[id] = true
	}
	for _, id := range ids {
		g := rdf.IRI(id)
		w := &quadWriter{written: map[string]bool{id: true}, blanks: blanks}
		var (
			deletes []rdf.Quad
			where   []queryir.Pattern
		)
		for i, pred := range preds {
			o := rdf.Variable(fmt.Sprintf("o%d", i))
			deletes = append(deletes, rdf.NewQuad(g, rdf.IRI(pred), o, g))
			where = append(where, queryir.Optional{Patterns: []queryir.Pattern{
				queryir.Graph{Name: g, Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(g, rdf.IRI(pred), o))}},
			}})
			for _, v := range values[pred] {
				object, err := w.object(g, v, map[*entity.Entity]bool{}, &pending)
				if err != nil {
					return nil, err
				}
				w.quads = append(w.quads, rdf.NewQuad(g, rdf.IRI(pred), object, g))
			}
		}
		ops = append(ops, queryir.Modify{Delete: deletes, Insert: w.quads, Where: where})
		blanks = w.blanks
	}

	// Entities being updated keep their untouched properties.
	nested := &quadWriter{written: updated, blanks: blanks}
	for _, e := range pending {
		if err := nested.writeEntity(e); err != nil {
			return nil, err
		}
	}
	for _, g := range nested.graphs {
		ops = append(ops, clearGraph(g))
	}
	if len(nested.quads) > 0 {
		ops = append(ops, queryir.InsertData{Quads: nested.quads})
	}
	return &queryir.Update{Operations: ops}, nil
}

// BuildDelete drops the graphs of the given entities. References to them
// from other entities are kept.
func (u *UpdateBuilder) BuildDelete(ids []string) (*queryir.Update, error) {
	ops := make([]queryir.UpdateOperation, 0, len(ids))
	for _, id := range ids {
		if !rdf.IsIdentifier(id) {
			return nil, NewInvalidValueError("id", "%q is not an identifier", id)
		}
		ops = append(ops, queryir.DropGraph{Graph: rdf.IRI(id), Silent: true})
	}
	return &queryir.Update{Operations: ops}, nil
}

// BuildDestroy drops the graphs of the given entities and removes every
// triple in other graphs that references them.
func (u *UpdateBuilder) BuildDestroy(ids []string) (*queryir.Update, error) {
	ops := make([]queryir.UpdateOperation, 0, 2*len(ids))
	for _, id := range ids {
		if !rdf.IsIdentifier(id) {
			return nil, NewInvalidValueError("id", "%q is not an identifier", id)
		}
		target := rdf.IRI(id)
		s, p, g := rdf.Variable("s"), rdf.Variable("p"), rdf.Variable("g")
		ops = append(ops,
			queryir.DropGraph{Graph: target, Silent: true},
			queryir.Modify{
				Delete: []rdf.Quad{rdf.NewQuad(s, p, target, g)},
				Where:  []queryir.Pattern{queryir.Graph{Name: g, Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(s, p, target))}}},
			},
		)
	}
	return &queryir.Update{Operations: ops}, nil
}
