package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// Update applies the operations of an update document in order. Each
// operation is applied atomically; an error stops the remaining
// operations but does not roll back those already applied.
func (e *Engine) Update(ctx context.Context, u *queryir.Update) error {
	if u == nil {
		return &EvaluationError{Code: ErrCodeInvalidQuery, Message: "nil update"}
	}
	if err := queryir.ValidateUpdate(u).Err(); err != nil {
		return &EvaluationError{Code: ErrCodeInvalidQuery, Message: err.Error()}
	}

	// Blank nodes in data blocks denote the same fresh node throughout
	// one request.
	labels := make(map[rdf.BlankNode]rdf.BlankNode)

	for i, op := range u.Operations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.applyOperation(ctx, op, labels); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func (e *Engine) applyOperation(ctx context.Context, op queryir.UpdateOperation, labels map[rdf.BlankNode]rdf.BlankNode) error {
	switch o := op.(type) {
	case queryir.InsertData:
		quads := make([]rdf.Quad, len(o.Quads))
		for i, q := range o.Quads {
			quads[i] = relabelQuad(q, labels)
		}
		if err := e.store.Insert(ctx, quads); err != nil {
			return err
		}
		e.log.WithField("quads", len(quads)).Debug("insert data applied")
		return nil

	case queryir.DeleteData:
		if err := e.store.Delete(ctx, o.Quads); err != nil {
			return err
		}
		e.log.WithField("quads", len(o.Quads)).Debug("delete data applied")
		return nil

	case queryir.Modify:
		return e.modify(ctx, o)

	case queryir.DropGraph:
		n, err := e.store.DropGraph(ctx, o.Graph)
		if err != nil {
			return err
		}
		if n == 0 && !o.Silent {
			return &EvaluationError{
				Code:    ErrCodeGraphNotFound,
				Message: fmt.Sprintf("graph %s does not exist", o.Graph),
				Details: map[string]string{"graph": string(o.Graph)},
			}
		}
		e.log.WithFields(logrus.Fields{"graph": string(o.Graph), "quads": n}).Debug("graph dropped")
		return nil

	default:
		return newUnsupportedError("unsupported update operation: %T", op)
	}
}

// modify evaluates the WHERE clause once, then removes every instantiated
// delete quad and adds every instantiated insert quad in one transaction.
func (e *Engine) modify(ctx context.Context, m queryir.Modify) error {
	ev := e.newEvaluation()
	sols, err := ev.evalGroup(ctx, m.Where, []rdf.Binding{{}}, unionScope)
	if err != nil {
		return err
	}

	deletes := instantiateQuads(m.Delete, sols)
	inserts := instantiateQuads(m.Insert, sols)
	if err := e.store.Apply(ctx, deletes, inserts); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"solutions": len(sols),
		"deleted":   len(deletes),
		"inserted":  len(inserts),
	}).Debug("modify applied")
	return nil
}

// instantiateQuads builds the quads of an update template for every
// solution, skipping quads left with an unbound variable or a term
// invalid in its position. Template blank nodes are fresh per solution.
func instantiateQuads(template []rdf.Quad, sols []rdf.Binding) []rdf.Quad {
	if len(template) == 0 {
		return nil
	}
	var out []rdf.Quad
	seen := make(map[rdf.Quad]struct{})
	for _, b := range sols {
		labels := make(map[rdf.BlankNode]rdf.BlankNode)
		for _, tq := range template {
			q := rdf.NewQuad(
				bindTemplate(tq.Subject, b, labels),
				bindTemplate(tq.Predicate, b, labels),
				bindTemplate(tq.Object, b, labels),
				tq.Graph,
			)
			if tq.Graph != nil {
				g, ok := bindTemplate(tq.Graph, b, labels).(rdf.IRI)
				if !ok {
					continue
				}
				q.Graph = g
			}
			if !validTriple(q.Triple) {
				continue
			}
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

// bindTemplate resolves a template term against b. Unbound variables
// yield nil.
func bindTemplate(t rdf.Term, b rdf.Binding, labels map[rdf.BlankNode]rdf.BlankNode) rdf.Term {
	switch v := t.(type) {
	case rdf.Variable:
		if val, ok := b[string(v)]; ok {
			return val
		}
		return nil
	case rdf.BlankNode:
		return relabel(v, labels)
	default:
		return t
	}
}

func relabelQuad(q rdf.Quad, labels map[rdf.BlankNode]rdf.BlankNode) rdf.Quad {
	if bn, ok := q.Subject.(rdf.BlankNode); ok {
		q.Subject = relabel(bn, labels)
	}
	if bn, ok := q.Object.(rdf.BlankNode); ok {
		q.Object = relabel(bn, labels)
	}
	return q
}

func relabel(bn rdf.BlankNode, labels map[rdf.BlankNode]rdf.BlankNode) rdf.BlankNode {
	l, ok := labels[bn]
	if !ok {
		l = rdf.BlankNode(uuid.NewString())
		labels[bn] = l
	}
	return l
}
