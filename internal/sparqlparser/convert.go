package sparqlparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// functions maps upper-cased built-in names to their queryir spelling.
var functions = func() map[string]string {
	m := map[string]string{}
	for _, name := range []string{
		queryir.FuncContains, queryir.FuncLCase, queryir.FuncStr, queryir.FuncConcat,
		queryir.FuncYear, queryir.FuncMonth, queryir.FuncDay, queryir.FuncIf,
		queryir.FuncBound, queryir.FuncIsIRI, queryir.FuncStrLen,
	} {
		m[strings.ToUpper(name)] = name
	}
	return m
}()

// converter turns parse trees into queryir documents.
type converter struct {
	prefixes map[string]string
}

func newConverter(prologue []*prefixDecl) (*converter, error) {
	c := &converter{prefixes: map[string]string{}}
	for _, p := range prologue {
		name := strings.TrimSuffix(p.Name, ":")
		if strings.Contains(name, ":") {
			return nil, fmt.Errorf("invalid prefix name %q", p.Name)
		}
		c.prefixes[name] = rdf.UnescapeString(strings.Trim(p.IRI, "<>"))
	}
	return c, nil
}

func (c *converter) query(unit *queryUnit) (*queryir.Query, error) {
	switch {
	case unit.Select != nil:
		return c.selectQuery(unit.Select)

	case unit.Construct != nil:
		cq := unit.Construct
		q := &queryir.Query{Type: queryir.ConstructQuery}
		for _, tss := range cq.Template {
			triples, err := c.groundTriples(tss)
			if err != nil {
				return nil, fmt.Errorf("construct template: %w", err)
			}
			q.Template = append(q.Template, triples...)
		}
		where, err := c.group(cq.Where)
		if err != nil {
			return nil, err
		}
		q.Where = where
		if err := c.modifiers(q, nil, cq.OrderBy, cq.Limit, cq.Offset); err != nil {
			return nil, err
		}
		return q, nil

	case unit.Ask != nil:
		where, err := c.group(unit.Ask.Where)
		if err != nil {
			return nil, err
		}
		return &queryir.Query{Type: queryir.AskQuery, Where: where}, nil

	default:
		return nil, fmt.Errorf("empty query")
	}
}

func (c *converter) selectQuery(sq *selectQuery) (*queryir.Query, error) {
	q := &queryir.Query{Type: queryir.SelectQuery, Distinct: sq.Distinct}
	for _, p := range sq.Projection {
		if p.Var != "" {
			q.Projection = append(q.Projection, queryir.Projection{Variable: variable(p.Var)})
			continue
		}
		e, err := c.expression(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("projection %s: %w", p.Alias, err)
		}
		q.Projection = append(q.Projection, queryir.Projection{Variable: variable(p.Alias), Expression: e})
	}

	where, err := c.group(sq.Where)
	if err != nil {
		return nil, err
	}
	q.Where = where
	if err := c.modifiers(q, sq.GroupBy, sq.OrderBy, sq.Limit, sq.Offset); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *converter) modifiers(q *queryir.Query, groupBy []string, orderBy []*orderCondition, limit, offset string) error {
	for _, v := range groupBy {
		q.GroupBy = append(q.GroupBy, variable(v))
	}
	for _, oc := range orderBy {
		e, err := c.expression(oc.Expr)
		if err != nil {
			return fmt.Errorf("order by: %w", err)
		}
		q.OrderBy = append(q.OrderBy, queryir.OrderCondition{
			Expression: e,
			Descending: strings.EqualFold(oc.Direction, "DESC"),
		})
	}
	var err error
	if q.Limit, err = count("LIMIT", limit); err != nil {
		return err
	}
	if q.Offset, err = count("OFFSET", offset); err != nil {
		return err
	}
	return nil
}

func count(clause, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", clause, s)
	}
	return n, nil
}

// group converts a group graph pattern. Consecutive triples form one BGP.
func (c *converter) group(g *groupPattern) ([]queryir.Pattern, error) {
	if g == nil {
		return nil, nil
	}
	if g.SubSelect != nil {
		q, err := c.selectQuery(g.SubSelect)
		if err != nil {
			return nil, fmt.Errorf("sub-select: %w", err)
		}
		return []queryir.Pattern{queryir.SubSelect{Query: q}}, nil
	}

	var out []queryir.Pattern
	var bgp []queryir.TriplePattern
	flush := func() {
		if len(bgp) > 0 {
			out = append(out, queryir.BGP{Triples: bgp})
			bgp = nil
		}
	}

	for _, el := range g.Elements {
		if el.Triples != nil {
			triples, err := c.triples(el.Triples)
			if err != nil {
				return nil, err
			}
			bgp = append(bgp, triples...)
			continue
		}
		if el.Dot {
			continue
		}
		flush()
		p, err := c.element(el)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", el.Pos, err)
		}
		out = append(out, p)
	}
	flush()
	return out, nil
}

func (c *converter) element(el *groupElement) (queryir.Pattern, error) {
	switch {
	case el.Optional != nil:
		patterns, err := c.group(el.Optional)
		if err != nil {
			return nil, err
		}
		return queryir.Optional{Patterns: patterns}, nil

	case el.Graph != nil:
		name, err := c.term(el.Graph.Name)
		if err != nil {
			return nil, err
		}
		switch name.(type) {
		case rdf.IRI, rdf.Variable:
		default:
			return nil, fmt.Errorf("GRAPH name must be an IRI or variable, got %s", name)
		}
		patterns, err := c.group(el.Graph.Pattern)
		if err != nil {
			return nil, err
		}
		return queryir.Graph{Name: name, Patterns: patterns}, nil

	case el.Filter != nil:
		e, err := c.expression(el.Filter)
		if err != nil {
			return nil, err
		}
		return queryir.Filter{Expression: e}, nil

	case el.Bind != nil:
		e, err := c.expression(el.Bind.Expr)
		if err != nil {
			return nil, err
		}
		return queryir.Bind{Expression: e, Variable: variable(el.Bind.Var)}, nil

	case el.Values != nil:
		return c.values(el.Values)

	case el.Group != nil:
		alts := make([][]queryir.Pattern, 0, len(el.Group.Groups))
		for _, g := range el.Group.Groups {
			patterns, err := c.group(g)
			if err != nil {
				return nil, err
			}
			alts = append(alts, patterns)
		}
		if len(alts) > 1 {
			return queryir.Union{Alternatives: alts}, nil
		}
		if g := el.Group.Groups[0]; g.SubSelect != nil {
			return alts[0][0], nil
		}
		return queryir.Group{Patterns: alts[0]}, nil

	default:
		return nil, fmt.Errorf("empty group element")
	}
}

func (c *converter) values(v *values) (queryir.Pattern, error) {
	out := queryir.Values{}
	row := func(items []*dataValue) ([]rdf.Term, error) {
		terms := make([]rdf.Term, len(items))
		for i, item := range items {
			if item.Undef {
				continue
			}
			t, err := c.term(item.Term)
			if err != nil {
				return nil, err
			}
			if rdf.IsVariable(t) {
				return nil, fmt.Errorf("VALUES cannot contain variable %s", t)
			}
			terms[i] = t
		}
		return terms, nil
	}

	if v.Var != "" {
		out.Variables = []rdf.Variable{variable(v.Var)}
		for _, item := range v.Single {
			r, err := row([]*dataValue{item})
			if err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, r)
		}
		return out, nil
	}

	for _, name := range v.Vars {
		out.Variables = append(out.Variables, variable(name))
	}
	for i, dr := range v.Rows {
		if len(dr.Values) != len(out.Variables) {
			return nil, fmt.Errorf("VALUES row %d has %d terms for %d variables", i+1, len(dr.Values), len(out.Variables))
		}
		r, err := row(dr.Values)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// triples expands a subject with its predicate-object lists.
func (c *converter) triples(tss *triplesSameSubject) ([]queryir.TriplePattern, error) {
	s, err := c.term(tss.Subject)
	if err != nil {
		return nil, err
	}
	if _, ok := s.(rdf.Literal); ok {
		return nil, fmt.Errorf("%s: subject cannot be a literal", tss.Pos)
	}
	var out []queryir.TriplePattern
	for _, po := range tss.Predicates {
		p, err := c.path(po.Path)
		if err != nil {
			return nil, err
		}
		for _, obj := range po.Objects {
			o, err := c.term(obj)
			if err != nil {
				return nil, err
			}
			out = append(out, queryir.TP(s, p, o))
		}
	}
	return out, nil
}

// groundTriples converts triples whose predicates are plain terms, as in
// templates and data blocks.
func (c *converter) groundTriples(tss *triplesSameSubject) ([]rdf.Triple, error) {
	patterns, err := c.triples(tss)
	if err != nil {
		return nil, err
	}
	out := make([]rdf.Triple, len(patterns))
	for i, tp := range patterns {
		pt, ok := tp.Predicate.(queryir.PathTerm)
		if !ok {
			return nil, fmt.Errorf("%s: property paths are not allowed here", tss.Pos)
		}
		out[i] = rdf.Triple{Subject: tp.Subject, Predicate: pt.Term, Object: tp.Object}
	}
	return out, nil
}

func (c *converter) path(p *path) (queryir.PropertyPath, error) {
	steps := make([]queryir.PropertyPath, 0, len(p.Steps))
	for _, el := range p.Steps {
		step, err := c.pathElement(el)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if len(steps) == 1 {
		return steps[0], nil
	}
	return queryir.Seq(steps...), nil
}

func (c *converter) pathElement(el *pathElement) (queryir.PropertyPath, error) {
	var out queryir.PropertyPath
	switch pr := el.Primary; {
	case pr.A:
		out = queryir.PathTerm{Term: rdf.TypeIRI}
	case pr.IRI != nil:
		iri, err := c.iri(pr.IRI)
		if err != nil {
			return nil, err
		}
		out = queryir.PathTerm{Term: iri}
	case pr.Var != "":
		if el.Inverse || el.Modifier != "" {
			return nil, fmt.Errorf("variable predicate %s cannot carry a path operator", pr.Var)
		}
		out = queryir.PathTerm{Term: variable(pr.Var)}
	case pr.Group != nil:
		inner, err := c.path(pr.Group)
		if err != nil {
			return nil, err
		}
		out = inner
	default:
		return nil, fmt.Errorf("empty path")
	}

	switch el.Modifier {
	case "*":
		out = queryir.PathZeroOrMore{Path: out}
	case "+":
		out = queryir.PathOneOrMore{Path: out}
	}
	if el.Inverse {
		out = queryir.PathInverse{Path: out}
	}
	return out, nil
}

func (c *converter) term(t *term) (rdf.Term, error) {
	switch {
	case t == nil:
		return nil, fmt.Errorf("missing term")
	case t.Var != "":
		return variable(t.Var), nil
	case t.IRI != nil:
		return c.iri(t.IRI)
	case t.Blank != "":
		return rdf.BlankNode(strings.TrimPrefix(t.Blank, "_:")), nil
	case t.Literal != nil:
		return c.literal(t.Literal)
	case t.Number != "":
		return number(t.Number), nil
	case t.Bool != "":
		if strings.EqualFold(t.Bool, "true") {
			return rdf.True, nil
		}
		return rdf.False, nil
	default:
		return nil, fmt.Errorf("empty term")
	}
}

func (c *converter) iri(r *iriRef) (rdf.IRI, error) {
	if r.Full != "" {
		return rdf.IRI(rdf.UnescapeString(strings.TrimSuffix(strings.TrimPrefix(r.Full, "<"), ">"))), nil
	}
	prefix, local, _ := strings.Cut(r.Prefix, ":")
	ns, ok := c.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix %q", prefix)
	}
	return rdf.IRI(ns + local), nil
}

func (c *converter) literal(l *literal) (rdf.Literal, error) {
	out := rdf.Literal{Value: unquote(l.Value)}
	switch {
	case l.Lang != "":
		out.Language = strings.TrimPrefix(l.Lang, "@")
	case l.Datatype != nil:
		dt, err := c.iri(l.Datatype)
		if err != nil {
			return rdf.Literal{}, err
		}
		if dt != rdf.XSDString {
			out.Datatype = string(dt)
		}
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	return rdf.UnescapeString(s)
}

func number(s string) rdf.Literal {
	s = strings.TrimPrefix(s, "+")
	switch {
	case strings.ContainsAny(s, "eE"):
		return rdf.Literal{Value: s, Datatype: rdf.XSDDouble}
	case strings.Contains(s, "."):
		return rdf.Literal{Value: s, Datatype: rdf.XSDDecimal}
	default:
		return rdf.Literal{Value: s, Datatype: rdf.XSDInteger}
	}
}

func variable(tok string) rdf.Variable {
	return rdf.Variable(tok[1:])
}

func (c *converter) expression(e *expression) (queryir.Expression, error) {
	args := make([]queryir.Expression, 0, len(e.Or))
	for _, a := range e.Or {
		x, err := c.and(a)
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return queryir.Operation{Operator: queryir.OpOr, Args: args}, nil
}

func (c *converter) and(e *andExpression) (queryir.Expression, error) {
	args := make([]queryir.Expression, 0, len(e.And))
	for _, r := range e.And {
		x, err := c.relational(r)
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return queryir.Operation{Operator: queryir.OpAnd, Args: args}, nil
}

func (c *converter) relational(e *relationalExpression) (queryir.Expression, error) {
	left, err := c.unary(e.Left)
	if err != nil {
		return nil, err
	}
	switch {
	case e.Op != "":
		right, err := c.unary(e.Right)
		if err != nil {
			return nil, err
		}
		return queryir.Op(e.Op, left, right), nil

	case e.In || e.NotIn:
		op := queryir.OpIn
		if e.NotIn {
			op = queryir.OpNotIn
		}
		args := []queryir.Expression{left}
		for _, item := range e.List {
			x, err := c.expression(item)
			if err != nil {
				return nil, err
			}
			args = append(args, x)
		}
		return queryir.Operation{Operator: op, Args: args}, nil

	default:
		return left, nil
	}
}

func (c *converter) unary(e *unaryExpression) (queryir.Expression, error) {
	if e.Not != nil {
		inner, err := c.unary(e.Not)
		if err != nil {
			return nil, err
		}
		return queryir.Not(inner), nil
	}
	return c.primary(e.Primary)
}

func (c *converter) primary(e *primaryExpression) (queryir.Expression, error) {
	switch {
	case e.Group != nil:
		return c.expression(e.Group)

	case e.Exists != nil, e.NotExists != nil:
		g := e.Exists
		if g == nil {
			g = e.NotExists
		}
		patterns, err := c.group(g)
		if err != nil {
			return nil, err
		}
		return queryir.ExistsExpr{Patterns: patterns, Negated: e.NotExists != nil}, nil

	case e.Aggregate != nil:
		agg := queryir.Aggregate{
			Function: strings.ToUpper(e.Aggregate.Function),
			Distinct: e.Aggregate.Distinct,
		}
		if e.Aggregate.Star {
			if agg.Function != queryir.AggCount {
				return nil, fmt.Errorf("%s(*) is not allowed", agg.Function)
			}
		} else {
			x, err := c.expression(e.Aggregate.Expr)
			if err != nil {
				return nil, err
			}
			agg.Expression = x
		}
		if e.Aggregate.Separator != nil {
			agg.Separator = unquote(*e.Aggregate.Separator)
		}
		return agg, nil

	case e.Call != nil:
		name, ok := functions[strings.ToUpper(e.Call.Name)]
		if !ok {
			return nil, fmt.Errorf("unsupported function %s", e.Call.Name)
		}
		args := make([]queryir.Expression, 0, len(e.Call.Args))
		for _, a := range e.Call.Args {
			x, err := c.expression(a)
			if err != nil {
				return nil, err
			}
			args = append(args, x)
		}
		return queryir.Operation{Operator: name, Args: args}, nil

	case e.Term != nil:
		t, err := c.term(e.Term)
		if err != nil {
			return nil, err
		}
		return queryir.TermExpr{Term: t}, nil

	default:
		return nil, fmt.Errorf("empty expression")
	}
}

func (c *converter) update(unit *updateUnit) (*queryir.Update, error) {
	u := &queryir.Update{}
	for i, op := range unit.Operations {
		converted, err := c.operation(op)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		u.Operations = append(u.Operations, converted)
	}
	return u, nil
}

func (c *converter) operation(op *updateOperation) (queryir.UpdateOperation, error) {
	switch {
	case op.InsertData != nil:
		quads, err := c.quads(op.InsertData)
		if err != nil {
			return nil, err
		}
		return queryir.InsertData{Quads: quads}, nil

	case op.DeleteData != nil:
		quads, err := c.quads(op.DeleteData)
		if err != nil {
			return nil, err
		}
		return queryir.DeleteData{Quads: quads}, nil

	case op.DeleteWhere != nil:
		quads, err := c.quads(op.DeleteWhere)
		if err != nil {
			return nil, err
		}
		return queryir.Modify{Delete: quads, Where: quadPatterns(quads)}, nil

	case op.Drop != nil:
		g, err := c.iri(op.Drop.Graph)
		if err != nil {
			return nil, err
		}
		return queryir.DropGraph{Graph: g, Silent: op.Drop.Silent}, nil

	case op.Modify != nil:
		m := queryir.Modify{}
		var err error
		if op.Modify.Delete != nil {
			if m.Delete, err = c.quads(op.Modify.Delete); err != nil {
				return nil, err
			}
		}
		if op.Modify.Insert != nil {
			if m.Insert, err = c.quads(op.Modify.Insert); err != nil {
				return nil, err
			}
		}
		if m.Where, err = c.group(op.Modify.Where); err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("empty update operation")
	}
}

func (c *converter) quads(qd *quadData) ([]rdf.Quad, error) {
	var out []rdf.Quad
	for _, item := range qd.Items {
		var graph rdf.Term
		var blocks []*triplesSameSubject
		if item.Graph != nil {
			g, err := c.term(item.Graph.Name)
			if err != nil {
				return nil, err
			}
			switch g.(type) {
			case rdf.IRI, rdf.Variable:
			default:
				return nil, fmt.Errorf("GRAPH name must be an IRI or variable, got %s", g)
			}
			graph = g
			blocks = item.Graph.Triples
		} else {
			blocks = []*triplesSameSubject{item.Triples}
		}
		for _, tss := range blocks {
			triples, err := c.groundTriples(tss)
			if err != nil {
				return nil, err
			}
			for _, t := range triples {
				out = append(out, rdf.Quad{Triple: t, Graph: graph})
			}
		}
	}
	return out, nil
}

// quadPatterns turns a DELETE WHERE quad block into the equivalent
// WHERE patterns.
func quadPatterns(quads []rdf.Quad) []queryir.Pattern {
	var out []queryir.Pattern
	var graphs []rdf.Term
	byGraph := map[rdf.Term][]queryir.TriplePattern{}
	var defaults []queryir.TriplePattern
	for _, q := range quads {
		tp := queryir.T(q.Subject, q.Predicate, q.Object)
		if q.Graph == nil {
			defaults = append(defaults, tp)
			continue
		}
		if _, seen := byGraph[q.Graph]; !seen {
			graphs = append(graphs, q.Graph)
		}
		byGraph[q.Graph] = append(byGraph[q.Graph], tp)
	}
	if len(defaults) > 0 {
		out = append(out, queryir.BGP{Triples: defaults})
	}
	for _, g := range graphs {
		out = append(out, queryir.Graph{Name: g, Patterns: []queryir.Pattern{queryir.BGP{Triples: byGraph[g]}}})
	}
	return out
}

func (c *converter) nquad(st *nquad) (rdf.Quad, error) {
	s, err := c.term(st.Subject)
	if err != nil {
		return rdf.Quad{}, err
	}
	switch s.(type) {
	case rdf.IRI, rdf.BlankNode:
	default:
		return rdf.Quad{}, fmt.Errorf("invalid subject %s", s)
	}
	o, err := c.term(st.Object)
	if err != nil {
		return rdf.Quad{}, err
	}
	if rdf.IsVariable(o) {
		return rdf.Quad{}, fmt.Errorf("invalid object %s", o)
	}
	p, err := c.iri(&iriRef{Full: st.Predicate})
	if err != nil {
		return rdf.Quad{}, err
	}
	q := rdf.NewQuad(s, p, o, nil)
	if st.Graph != nil {
		g, err := c.term(st.Graph)
		if err != nil {
			return rdf.Quad{}, err
		}
		iri, ok := g.(rdf.IRI)
		if !ok {
			return rdf.Quad{}, fmt.Errorf("graph must be an IRI, got %s", g)
		}
		q.Graph = iri
	}
	return q, nil
}
