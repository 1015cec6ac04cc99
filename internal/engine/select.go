package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// row is a solution on its way through the solution modifiers.
type row struct {
	binding rdf.Binding
	keys    []rdf.Term
}

// selectQuery evaluates a SELECT query in scope sc. Modifiers apply in
// order: grouping, projection expressions, ORDER BY, projection,
// DISTINCT, OFFSET and LIMIT.
func (ev *evaluation) selectQuery(ctx context.Context, q *queryir.Query, sc scope) (*Results, error) {
	sols, err := ev.evalGroup(ctx, q.Where, []rdf.Binding{{}}, sc)
	if err != nil {
		return nil, err
	}

	var rows []row
	if isGrouped(q) {
		rows, err = ev.groupRows(ctx, q, sols, sc)
	} else {
		rows, err = ev.plainRows(ctx, q, sols, sc)
	}
	if err != nil {
		return nil, err
	}
	sortRows(rows, q.OrderBy)

	vars := q.ProjectedVariables()
	if len(q.Projection) == 0 {
		vars = allVariables(sols)
	}

	out := make([]rdf.Binding, 0, len(rows))
	seen := make(map[string]struct{})
	for _, r := range rows {
		b := project(r.binding, vars)
		if q.Distinct {
			k := bindingKey(b, vars)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, b)
	}
	return &Results{Variables: vars, Bindings: slice(out, q.Offset, q.Limit)}, nil
}

// orderAndSlice applies ORDER BY, OFFSET and LIMIT to the solutions of a
// CONSTRUCT query.
func (ev *evaluation) orderAndSlice(ctx context.Context, q *queryir.Query, sols []rdf.Binding) ([]rdf.Binding, error) {
	if len(q.OrderBy) == 0 {
		return slice(sols, q.Offset, q.Limit), nil
	}
	rows, err := ev.plainRows(ctx, q, sols, unionScope)
	if err != nil {
		return nil, err
	}
	sortRows(rows, q.OrderBy)
	out := make([]rdf.Binding, len(rows))
	for i, r := range rows {
		out[i] = r.binding
	}
	return slice(out, q.Offset, q.Limit), nil
}

func isGrouped(q *queryir.Query) bool {
	if len(q.GroupBy) > 0 {
		return true
	}
	for _, p := range q.Projection {
		if p.Expression != nil && queryir.ContainsAggregate(p.Expression) {
			return true
		}
	}
	for _, oc := range q.OrderBy {
		if queryir.ContainsAggregate(oc.Expression) {
			return true
		}
	}
	return false
}

// plainRows evaluates projection expressions and order keys per solution.
func (ev *evaluation) plainRows(ctx context.Context, q *queryir.Query, sols []rdf.Binding, sc scope) ([]row, error) {
	en := env{scope: sc}
	rows := make([]row, 0, len(sols))
	for _, b := range sols {
		r, err := ev.finishRow(ctx, q, b, en)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// groupRows partitions solutions by the GROUP BY variables and produces
// one row per group. Without GROUP BY all solutions form a single group,
// which exists even when there are no solutions.
func (ev *evaluation) groupRows(ctx context.Context, q *queryir.Query, sols []rdf.Binding, sc scope) ([]row, error) {
	keyVars := make([]string, len(q.GroupBy))
	for i, v := range q.GroupBy {
		keyVars[i] = string(v)
	}

	var order []string
	groups := make(map[string][]rdf.Binding)
	for _, b := range sols {
		k := bindingKey(b, keyVars)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], b)
	}
	if len(keyVars) == 0 && len(order) == 0 {
		order = append(order, "")
		groups[""] = nil
	}

	rows := make([]row, 0, len(order))
	for _, k := range order {
		members := groups[k]
		var base rdf.Binding
		if len(members) > 0 {
			base = project(members[0], keyVars)
		} else {
			base = rdf.Binding{}
		}
		r, err := ev.finishRow(ctx, q, base, env{scope: sc, grouped: true, group: members})
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// finishRow binds the projection expressions of q on b and evaluates its
// order keys. An expression that fails to evaluate leaves its variable
// unbound.
func (ev *evaluation) finishRow(ctx context.Context, q *queryir.Query, b rdf.Binding, en env) (row, error) {
	out := b
	cloned := false
	for _, p := range q.Projection {
		if p.Expression == nil {
			continue
		}
		v, err := ev.eval(ctx, p.Expression, out, en)
		if err != nil {
			if isExprError(err) {
				continue
			}
			return row{}, err
		}
		if !cloned {
			out = b.Clone()
			cloned = true
		}
		out[string(p.Variable)] = v
	}

	var keys []rdf.Term
	if len(q.OrderBy) > 0 {
		keys = make([]rdf.Term, len(q.OrderBy))
		for i, oc := range q.OrderBy {
			v, err := ev.eval(ctx, oc.Expression, out, en)
			if err != nil {
				if isExprError(err) {
					continue
				}
				return row{}, err
			}
			keys[i] = v
		}
	}
	return row{binding: out, keys: keys}, nil
}

// sortRows sorts rows stably by their order keys.
func sortRows(rows []row, conds []queryir.OrderCondition) {
	if len(conds) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for k, oc := range conds {
			c := compareOrder(rows[i].keys[k], rows[j].keys[k])
			if c == 0 {
				continue
			}
			if oc.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// allVariables returns the sorted names of every variable bound in any
// solution, for SELECT *.
func allVariables(sols []rdf.Binding) []string {
	set := make(map[string]struct{})
	for _, b := range sols {
		for name := range b {
			if strings.HasPrefix(name, "_:") {
				continue
			}
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func project(b rdf.Binding, vars []string) rdf.Binding {
	out := make(rdf.Binding, len(vars))
	for _, v := range vars {
		if t, ok := b[v]; ok {
			out[v] = t
		}
	}
	return out
}

// bindingKey identifies the values of vars in b.
func bindingKey(b rdf.Binding, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		if t, ok := b[v]; ok {
			sb.WriteString(t.String())
		} else {
			sb.WriteByte(0x01)
		}
		sb.WriteByte(0x00)
	}
	return sb.String()
}

// slice applies OFFSET and LIMIT. Zero values mean no offset and no limit.
func slice[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// instantiate builds the triples of a CONSTRUCT template for every
// solution. Triples with an unbound variable or a term that is not valid
// in its position are skipped. Template blank nodes are fresh per
// solution. The result holds no duplicates and keeps first-produced order.
func instantiate(template []rdf.Triple, sols []rdf.Binding) []rdf.Triple {
	var out []rdf.Triple
	seen := make(map[rdf.Triple]struct{})
	fresh := 0
	for _, b := range sols {
		labels := make(map[rdf.BlankNode]rdf.BlankNode)
		relabel := func(t rdf.Term) rdf.Term {
			bn, ok := t.(rdf.BlankNode)
			if !ok {
				if v, isVar := t.(rdf.Variable); isVar {
					if val, bound := b[string(v)]; bound {
						return val
					}
					return nil
				}
				return t
			}
			l, ok := labels[bn]
			if !ok {
				l = rdf.BlankNode(fmt.Sprintf("c%d", fresh))
				fresh++
				labels[bn] = l
			}
			return l
		}

		for _, tt := range template {
			t := rdf.Triple{
				Subject:   relabel(tt.Subject),
				Predicate: relabel(tt.Predicate),
				Object:    relabel(tt.Object),
			}
			if !validTriple(t) {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func validTriple(t rdf.Triple) bool {
	switch t.Subject.(type) {
	case rdf.IRI, rdf.BlankNode:
	default:
		return false
	}
	if _, ok := t.Predicate.(rdf.IRI); !ok {
		return false
	}
	switch t.Object.(type) {
	case rdf.IRI, rdf.BlankNode, rdf.Literal:
		return true
	default:
		return false
	}
}
