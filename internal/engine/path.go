package engine

import (
	"context"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

// pair is one (start, end) solution of a property path.
type pair struct {
	s, o rdf.Term
}

// pairSet collects distinct pairs in insertion order.
type pairSet struct {
	seen  map[[2]string]bool
	pairs []pair
}

func newPairSet() *pairSet {
	return &pairSet{seen: map[[2]string]bool{}}
}

func (ps *pairSet) add(s, o rdf.Term) {
	key := [2]string{s.String(), o.String()}
	if ps.seen[key] {
		return
	}
	ps.seen[key] = true
	ps.pairs = append(ps.pairs, pair{s: s, o: o})
}

// evalPath returns the distinct pairs connected by path p within graph
// target g. s and o are nil when unbound.
func (ev *evaluation) evalPath(ctx context.Context, p queryir.PropertyPath, s, o rdf.Term, g graphTarget) ([]pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch path := p.(type) {
	case queryir.PathTerm:
		iri, ok := path.Term.(rdf.IRI)
		if !ok {
			return nil, newUnsupportedError("property path step %v is not an IRI", path.Term)
		}
		quads, err := ev.store.Match(ctx, store.Pattern{Subject: s, Predicate: iri, Object: o, Graph: g.graph, NamedOnly: g.namedOnly})
		if err != nil {
			return nil, err
		}
		ps := newPairSet()
		for _, q := range quads {
			ps.add(q.Subject, q.Object)
		}
		return ps.pairs, nil

	case queryir.PathSequence:
		return ev.evalSequence(ctx, path.Steps, s, o, g)

	case queryir.PathInverse:
		pairs, err := ev.evalPath(ctx, path.Path, o, s, g)
		if err != nil {
			return nil, err
		}
		out := make([]pair, len(pairs))
		for i, pr := range pairs {
			out[i] = pair{s: pr.o, o: pr.s}
		}
		return out, nil

	case queryir.PathOneOrMore:
		return ev.evalClosure(ctx, path.Path, s, o, g, false)

	case queryir.PathZeroOrMore:
		return ev.evalClosure(ctx, path.Path, s, o, g, true)

	default:
		return nil, newUnsupportedError("unsupported path type: %T", p)
	}
}

// evalSequence joins the steps of a sequence path. Evaluation starts from
// the bound end so the intermediate sets stay small.
func (ev *evaluation) evalSequence(ctx context.Context, steps []queryir.PropertyPath, s, o rdf.Term, g graphTarget) ([]pair, error) {
	switch len(steps) {
	case 0:
		return nil, newUnsupportedError("empty path sequence")
	case 1:
		return ev.evalPath(ctx, steps[0], s, o, g)
	}

	ps := newPairSet()
	if s != nil || o == nil {
		first, err := ev.evalPath(ctx, steps[0], s, nil, g)
		if err != nil {
			return nil, err
		}
		rest := map[string][]pair{}
		for _, f := range first {
			key := f.o.String()
			tail, ok := rest[key]
			if !ok {
				tail, err = ev.evalSequence(ctx, steps[1:], f.o, o, g)
				if err != nil {
					return nil, err
				}
				rest[key] = tail
			}
			for _, t := range tail {
				ps.add(f.s, t.o)
			}
		}
		return ps.pairs, nil
	}

	last, err := ev.evalPath(ctx, steps[len(steps)-1], nil, o, g)
	if err != nil {
		return nil, err
	}
	prefixes := map[string][]pair{}
	for _, l := range last {
		key := l.s.String()
		head, ok := prefixes[key]
		if !ok {
			head, err = ev.evalSequence(ctx, steps[:len(steps)-1], nil, l.s, g)
			if err != nil {
				return nil, err
			}
			prefixes[key] = head
		}
		for _, h := range head {
			ps.add(h.s, l.o)
		}
	}
	return ps.pairs, nil
}

// evalClosure evaluates p+ or, with reflexive set, p*.
func (ev *evaluation) evalClosure(ctx context.Context, p queryir.PropertyPath, s, o rdf.Term, g graphTarget, reflexive bool) ([]pair, error) {
	ps := newPairSet()

	switch {
	case s != nil:
		reached, err := ev.reach(ctx, p, s, g, true, reflexive)
		if err != nil {
			return nil, err
		}
		for _, n := range reached {
			if o == nil || sameTerm(n, o) {
				ps.add(s, n)
			}
		}

	case o != nil:
		reached, err := ev.reach(ctx, p, o, g, false, reflexive)
		if err != nil {
			return nil, err
		}
		for _, n := range reached {
			ps.add(n, o)
		}

	default:
		var starts []rdf.Term
		if reflexive {
			nodes, err := ev.store.Nodes(ctx, g.graph, g.namedOnly)
			if err != nil {
				return nil, err
			}
			starts = nodes
		} else {
			edges, err := ev.evalPath(ctx, p, nil, nil, g)
			if err != nil {
				return nil, err
			}
			seen := map[string]bool{}
			for _, e := range edges {
				if key := e.s.String(); !seen[key] {
					seen[key] = true
					starts = append(starts, e.s)
				}
			}
		}
		for _, start := range starts {
			reached, err := ev.reach(ctx, p, start, g, true, reflexive)
			if err != nil {
				return nil, err
			}
			for _, n := range reached {
				ps.add(start, n)
			}
		}
	}
	return ps.pairs, nil
}

// reach returns the nodes reachable from start through one or more steps
// of p, breadth first. Walking backward follows p from object to subject.
// With reflexive set, start itself is the first node.
func (ev *evaluation) reach(ctx context.Context, p queryir.PropertyPath, start rdf.Term, g graphTarget, forward, reflexive bool) ([]rdf.Term, error) {
	var out []rdf.Term
	reached := map[string]bool{}
	if reflexive {
		reached[start.String()] = true
		out = append(out, start)
	}

	expanded := map[string]bool{start.String(): true}
	frontier := []rdf.Term{start}
	for len(frontier) > 0 {
		var next []rdf.Term
		for _, node := range frontier {
			var (
				pairs []pair
				err   error
			)
			if forward {
				pairs, err = ev.evalPath(ctx, p, node, nil, g)
			} else {
				pairs, err = ev.evalPath(ctx, p, nil, node, g)
			}
			if err != nil {
				return nil, err
			}
			for _, pr := range pairs {
				n := pr.o
				if !forward {
					n = pr.s
				}
				key := n.String()
				if !reached[key] {
					reached[key] = true
					out = append(out, n)
				}
				if !expanded[key] {
					expanded[key] = true
					next = append(next, n)
				}
			}
		}
		if err := ev.quota.add(len(next)); err != nil {
			return nil, err
		}
		frontier = next
	}
	return out, nil
}
