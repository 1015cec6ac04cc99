package engine

import (
	"context"
	"errors"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

// evalGroup evaluates a group graph pattern against input solutions.
// Filters of the group apply to the group's final solutions.
func (ev *evaluation) evalGroup(ctx context.Context, patterns []queryir.Pattern, input []rdf.Binding, sc scope) ([]rdf.Binding, error) {
	sols := input
	var filters []queryir.Expression

	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f, ok := p.(queryir.Filter); ok {
			filters = append(filters, f.Expression)
			continue
		}
		if len(sols) == 0 {
			continue
		}
		next, err := ev.evalPattern(ctx, p, sols, sc)
		if err != nil {
			return nil, err
		}
		if err := ev.quota.add(len(next)); err != nil {
			return nil, err
		}
		sols = next
	}

	if len(filters) == 0 || len(sols) == 0 {
		return sols, nil
	}

	out := sols[:0:0]
	for _, b := range sols {
		keep := true
		for _, f := range filters {
			ok, err := ev.filter(ctx, f, b, sc)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, b)
		}
	}
	return out, nil
}

func (ev *evaluation) evalPattern(ctx context.Context, p queryir.Pattern, sols []rdf.Binding, sc scope) ([]rdf.Binding, error) {
	switch pattern := p.(type) {
	case queryir.BGP:
		var err error
		for _, t := range pattern.Triples {
			sols, err = ev.matchTriple(ctx, t, sols, sc)
			if err != nil {
				return nil, err
			}
			if len(sols) == 0 {
				break
			}
		}
		return sols, nil

	case queryir.Graph:
		return ev.evalGraph(ctx, pattern, sols)

	case queryir.Optional:
		var out []rdf.Binding
		for _, b := range sols {
			ext, err := ev.evalGroup(ctx, pattern.Patterns, []rdf.Binding{b}, sc)
			if err != nil {
				return nil, err
			}
			if len(ext) == 0 {
				out = append(out, b)
				continue
			}
			out = append(out, ext...)
		}
		return out, nil

	case queryir.Union:
		var out []rdf.Binding
		for _, alt := range pattern.Alternatives {
			ext, err := ev.evalGroup(ctx, alt, sols, sc)
			if err != nil {
				return nil, err
			}
			out = append(out, ext...)
		}
		return out, nil

	case queryir.Values:
		return joinValues(sols, pattern), nil

	case queryir.Bind:
		out := make([]rdf.Binding, 0, len(sols))
		name := string(pattern.Variable)
		for _, b := range sols {
			if _, bound := b[name]; bound {
				out = append(out, b)
				continue
			}
			v, err := ev.eval(ctx, pattern.Expression, b, env{scope: sc})
			if err != nil {
				if isExprError(err) {
					out = append(out, b)
					continue
				}
				return nil, err
			}
			nb := b.Clone()
			nb[name] = v
			out = append(out, nb)
		}
		return out, nil

	case queryir.Group:
		return ev.evalGroup(ctx, pattern.Patterns, sols, sc)

	case queryir.SubSelect:
		res, err := ev.selectQuery(ctx, pattern.Query, sc)
		if err != nil {
			return nil, err
		}
		return join(sols, res.Bindings), nil

	default:
		return nil, newUnsupportedError("unsupported pattern type: %T", p)
	}
}

// evalGraph evaluates GRAPH <name> { ... }. With a variable name that no
// triple inside binds, the variable ranges over every named graph.
func (ev *evaluation) evalGraph(ctx context.Context, g queryir.Graph, sols []rdf.Binding) ([]rdf.Binding, error) {
	switch name := g.Name.(type) {
	case rdf.IRI:
		return ev.evalGroup(ctx, g.Patterns, sols, scope{graph: name})
	case rdf.Variable:
		inner, err := ev.evalGroup(ctx, g.Patterns, sols, scope{graph: name})
		if err != nil {
			return nil, err
		}
		var out []rdf.Binding
		for _, b := range inner {
			if _, bound := b[string(name)]; bound {
				out = append(out, b)
				continue
			}
			graphs, err := ev.namedGraphs(ctx)
			if err != nil {
				return nil, err
			}
			for _, gi := range graphs {
				nb := b.Clone()
				nb[string(name)] = gi
				out = append(out, nb)
			}
		}
		return out, nil
	default:
		return nil, newUnsupportedError("GRAPH name must be an IRI or variable, got %T", g.Name)
	}
}

// matchTriple extends each solution with the matches of t.
func (ev *evaluation) matchTriple(ctx context.Context, t queryir.TriplePattern, sols []rdf.Binding, sc scope) ([]rdf.Binding, error) {
	var out []rdf.Binding
	for _, b := range sols {
		target := sc.resolve(b)
		if target.empty {
			continue
		}
		s := substitute(t.Subject, b)
		o := substitute(t.Object, b)

		if pt, ok := t.Predicate.(queryir.PathTerm); ok {
			p := substitute(pt.Term, b)
			quads, err := ev.store.Match(ctx, store.Pattern{
				Subject:   ground(s),
				Predicate: ground(p),
				Object:    ground(o),
				Graph:     target.graph,
				NamedOnly: target.namedOnly,
			})
			if err != nil {
				return nil, err
			}
			for _, q := range quads {
				vars := []rdf.Term{s, p, o}
				vals := []rdf.Term{q.Subject, q.Predicate, q.Object}
				if target.bind != "" {
					vars = append(vars, target.bind)
					vals = append(vals, q.Graph)
				}
				if nb, ok := extend(b, vars, vals); ok {
					out = append(out, nb)
				}
			}
			continue
		}

		// Property paths need a fixed graph; an unbound graph variable
		// ranges over the named graphs.
		targets := []graphTarget{target}
		if target.bind != "" {
			graphs, err := ev.namedGraphs(ctx)
			if err != nil {
				return nil, err
			}
			targets = targets[:0]
			for _, g := range graphs {
				targets = append(targets, graphTarget{graph: g, bind: target.bind})
			}
		}
		for _, gt := range targets {
			pairs, err := ev.evalPath(ctx, t.Predicate, ground(s), ground(o), gt)
			if err != nil {
				return nil, err
			}
			for _, pr := range pairs {
				vars := []rdf.Term{s, o}
				vals := []rdf.Term{pr.s, pr.o}
				if gt.bind != "" {
					vars = append(vars, gt.bind)
					vals = append(vals, gt.graph)
				}
				if nb, ok := extend(b, vars, vals); ok {
					out = append(out, nb)
				}
			}
		}
	}
	return out, nil
}

// substitute replaces a bound variable with its value. Blank nodes in
// patterns act as variables.
func substitute(t rdf.Term, b rdf.Binding) rdf.Term {
	name, ok := varName(t)
	if !ok {
		return t
	}
	if v, bound := b[name]; bound {
		return v
	}
	return t
}

// varName returns the binding key of a variable or pattern blank node.
func varName(t rdf.Term) (string, bool) {
	switch v := t.(type) {
	case rdf.Variable:
		return string(v), true
	case rdf.BlankNode:
		return "_:" + string(v), true
	default:
		return "", false
	}
}

// ground returns t when it is a concrete term, or nil for an unbound
// variable.
func ground(t rdf.Term) rdf.Term {
	if _, ok := varName(t); ok {
		return nil
	}
	return t
}

// extend binds each unbound variable in vars to the value at the same
// position. A variable occurring twice must receive equal values.
func extend(b rdf.Binding, vars, vals []rdf.Term) (rdf.Binding, bool) {
	var nb rdf.Binding
	for i, t := range vars {
		if t == nil || vals[i] == nil {
			continue
		}
		name, ok := varName(t)
		if !ok {
			continue
		}
		if nb == nil {
			nb = b.Clone()
		}
		if existing, bound := nb[name]; bound {
			if !sameTerm(existing, vals[i]) {
				return nil, false
			}
			continue
		}
		nb[name] = vals[i]
	}
	if nb == nil {
		return b, true
	}
	return nb, true
}

// compatible reports whether a and b agree on every shared variable.
func compatible(a, b rdf.Binding) bool {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for k, v := range small {
		if w, ok := large[k]; ok && !sameTerm(v, w) {
			return false
		}
	}
	return true
}

func merge(a, b rdf.Binding) rdf.Binding {
	out := make(rdf.Binding, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// join returns the compatible merges of left and right.
func join(left, right []rdf.Binding) []rdf.Binding {
	var out []rdf.Binding
	for _, l := range left {
		for _, r := range right {
			if compatible(l, r) {
				out = append(out, merge(l, r))
			}
		}
	}
	return out
}

func joinValues(sols []rdf.Binding, v queryir.Values) []rdf.Binding {
	rows := make([]rdf.Binding, 0, len(v.Rows))
	for _, row := range v.Rows {
		b := rdf.Binding{}
		for i, name := range v.Variables {
			if i < len(row) && row[i] != nil {
				b[string(name)] = row[i]
			}
		}
		rows = append(rows, b)
	}
	return join(sols, rows)
}

func isExprError(err error) bool {
	var ee *exprError
	return errors.As(err, &ee)
}
