package querybuilder

import (
	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// patternCompiler compiles single (subject, field, value) constraints into
// graph pattern fragments. It shares its allocator with the Builder that
// owns it.
type patternCompiler struct {
	vars *VariableAllocator
}

// compileWhere compiles every field of a where clause against subject.
// "id" is compiled first so its binding leads the group; the remaining
// fields follow in lexical order.
func (c *patternCompiler) compileWhere(subject rdf.Variable, where map[string]any) ([]queryir.Pattern, error) {
	var patterns []queryir.Pattern

	if value, ok := where[FieldID]; ok {
		ps, err := c.compileNode(FieldID, subject, value, true)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, ps...)
	}

	for _, field := range operator.SortedKeys(where) {
		if field == FieldID {
			continue
		}
		pred, err := fieldPath(field)
		if err != nil {
			return nil, err
		}
		ps, err := c.compileValue(field, subject, pred, where[field])
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, ps...)
	}

	return mergeBGPs(patterns), nil
}

// fieldPath returns the connecting predicate for a where key. "type"
// follows rdf:type and then any number of rdfs:subClassOf steps so that
// instances of subclasses match.
func fieldPath(field string) (queryir.PropertyPath, error) {
	if field == FieldType {
		return typePath(), nil
	}
	if !rdf.IsIdentifier(field) {
		return nil, NewInvalidPathError(field, "field must be a predicate identifier")
	}
	return queryir.PathTerm{Term: rdf.IRI(field)}, nil
}

func typePath() queryir.PropertyPath {
	return queryir.Seq(
		queryir.PathTerm{Term: rdf.TypeIRI},
		queryir.PathZeroOrMore{Path: queryir.PathTerm{Term: rdf.SubClassOfIRI}},
	)
}

// compileValue compiles the constraint "subject pred value".
func (c *patternCompiler) compileValue(field string, subject rdf.Term, pred queryir.PropertyPath, value any) ([]queryir.Pattern, error) {
	switch v := value.(type) {
	case nil:
		return nil, NewInvalidValueError(field, "value must not be null")

	case operator.Operator:
		return c.compileOperator(field, subject, pred, v)

	case map[string]any:
		o := c.vars.Next("o")
		inner, err := c.compileWhere(o, v)
		if err != nil {
			return nil, err
		}
		patterns := []queryir.Pattern{queryir.NewBGP(queryir.TP(subject, pred, o))}
		return mergeBGPs(append(patterns, inner...)), nil

	case []any:
		return c.compileArray(field, subject, pred, v)

	default:
		term, err := c.term(field, v)
		if err != nil {
			return nil, err
		}
		return []queryir.Pattern{queryir.NewBGP(queryir.TP(subject, pred, term))}, nil
	}
}

// compileArray handles the three array shapes: operators sharing one
// object variable, scalar alternatives bound with VALUES, and nested
// alternatives combined with UNION.
func (c *patternCompiler) compileArray(field string, subject rdf.Term, pred queryir.PropertyPath, items []any) ([]queryir.Pattern, error) {
	if len(items) == 0 {
		return nil, NewInvalidValueError(field, "array must not be empty")
	}

	var (
		ops     []operator.Operator
		scalars int
	)
	for _, item := range items {
		switch v := item.(type) {
		case operator.Operator:
			ops = append(ops, v)
		case map[string]any, []any, nil:
		default:
			scalars++
		}
	}

	switch {
	case len(ops) == len(items):
		return c.compileOperators(field, subject, pred, ops)

	case len(ops) > 0:
		return nil, NewInvalidValueError(field, "operators cannot be mixed with plain values")

	case scalars == len(items):
		rows, err := c.rows(field, items, false)
		if err != nil {
			return nil, err
		}
		o := c.vars.Next("o")
		return []queryir.Pattern{
			queryir.NewBGP(queryir.TP(subject, pred, o)),
			queryir.Values{Variables: []rdf.Variable{o}, Rows: rows},
		}, nil

	default:
		alternatives := make([][]queryir.Pattern, 0, len(items))
		for _, item := range items {
			alt, err := c.compileValue(field, subject, pred, item)
			if err != nil {
				return nil, err
			}
			alternatives = append(alternatives, alt)
		}
		if len(alternatives) == 1 {
			return alternatives[0], nil
		}
		return []queryir.Pattern{queryir.Union{Alternatives: alternatives}}, nil
	}
}

// compileOperators compiles several operators on one field. They share
// one object variable and one connecting triple, and their filter
// contributions are joined into a single conjunctive filter.
func (c *patternCompiler) compileOperators(field string, subject rdf.Term, pred queryir.PropertyPath, ops []operator.Operator) ([]queryir.Pattern, error) {
	if len(ops) == 1 {
		return c.compileOperator(field, subject, pred, ops[0])
	}

	o := c.vars.Next("o")
	var filters []queryir.Expression
	for _, op := range ops {
		f, err := c.contribution(field, subject, pred, o, op)
		if err != nil {
			return nil, err
		}
		if f != nil {
			filters = append(filters, f)
		}
	}

	patterns := []queryir.Pattern{queryir.NewBGP(queryir.TP(subject, pred, o))}
	if len(filters) > 0 {
		patterns = append(patterns, queryir.Filter{Expression: queryir.And(filters...)})
	}
	return patterns, nil
}

// contribution is the filter expression one operator adds over the shared
// object variable o. Exists adds none: the connecting triple already
// requires a value.
func (c *patternCompiler) contribution(field string, subject rdf.Term, pred queryir.PropertyPath, o rdf.Variable, op operator.Operator) (queryir.Expression, error) {
	switch v := op.(type) {
	case operator.Exists:
		return nil, nil
	case operator.Not:
		return c.negatedContribution(field, subject, pred, o, v.Value)
	}
	if operator.IsComparison(op) {
		return c.filterForm(field, op, o)
	}
	ps, err := c.compileOperator(field, subject, pred, op)
	if err != nil {
		return nil, err
	}
	return asExpression(ps), nil
}

// negatedContribution negates the filter form of value over o. Values
// without a filter form fall back to the negation patterns.
func (c *patternCompiler) negatedContribution(field string, subject rdf.Term, pred queryir.PropertyPath, o rdf.Variable, value any) (queryir.Expression, error) {
	switch v := value.(type) {
	case operator.In:
		args, err := c.termArgs(field, v.Values)
		if err != nil {
			return nil, err
		}
		return queryir.Op(queryir.OpNotIn, append([]queryir.Expression{queryir.V(o)}, args...)...), nil
	case operator.Operator:
		if operator.IsComparison(v) {
			f, err := c.filterForm(field, v, o)
			if err != nil {
				return nil, err
			}
			return queryir.Not(f), nil
		}
	case nil, map[string]any, []any:
	default:
		f, err := c.filterForm(field, operator.Equal{Value: v}, o)
		if err != nil {
			return nil, err
		}
		return queryir.Not(f), nil
	}

	ps, err := c.compileNegation(field, subject, pred, value)
	if err != nil {
		return nil, err
	}
	return asExpression(ps), nil
}

// asExpression folds compiled patterns into one expression: a lone filter
// contributes its expression, anything else has to exist.
func asExpression(patterns []queryir.Pattern) queryir.Expression {
	if len(patterns) == 1 {
		if f, ok := patterns[0].(queryir.Filter); ok {
			return f.Expression
		}
	}
	return queryir.Exists(patterns...)
}

// compileOperator compiles a single operator on a field.
func (c *patternCompiler) compileOperator(field string, subject rdf.Term, pred queryir.PropertyPath, op operator.Operator) ([]queryir.Pattern, error) {
	switch o := op.(type) {
	case operator.Exists:
		return []queryir.Pattern{
			queryir.Filter{Expression: queryir.Exists(queryir.NewBGP(queryir.TP(subject, pred, c.vars.Next("o"))))},
		}, nil

	case operator.In:
		rows, err := c.rows(field, o.Values, false)
		if err != nil {
			return nil, err
		}
		v := c.vars.Next("o")
		return []queryir.Pattern{
			queryir.NewBGP(queryir.TP(subject, pred, v)),
			queryir.Values{Variables: []rdf.Variable{v}, Rows: rows},
		}, nil

	case operator.Equal, operator.GreaterThan, operator.GreaterThanOrEqual,
		operator.LessThan, operator.LessThanOrEqual, operator.Contains:
		v := c.vars.Next("o")
		f, err := c.filterForm(field, op, v)
		if err != nil {
			return nil, err
		}
		return []queryir.Pattern{
			queryir.NewBGP(queryir.TP(subject, pred, v)),
			queryir.Filter{Expression: f},
		}, nil

	case operator.Not:
		return c.compileNegation(field, subject, pred, o.Value)

	case operator.Inverse:
		return c.compileInverse(field, subject, pred, o.Value)

	case operator.Sequence:
		steps := []queryir.PropertyPath{pred}
		for _, p := range o.Predicates {
			if !rdf.IsIdentifier(p) {
				return nil, NewInvalidPathError(field, "sequence step %q is not a predicate identifier", p)
			}
			steps = append(steps, queryir.PathTerm{Term: rdf.IRI(p)})
		}
		return c.compileTerminal(field, subject, queryir.Seq(steps...), o.Value)

	case operator.SequencePath, operator.InversePath, operator.ZeroOrMorePath, operator.OneOrMorePath:
		p := op.(operator.Path)
		path, err := toPath(field, p)
		if err != nil {
			return nil, err
		}
		return c.compileTerminal(field, subject, queryir.Seq(pred, path), operator.TerminalValue(p))

	default:
		return nil, NewUnsupportedOperatorError(field, op.Kind())
	}
}

// compileTerminal connects subject through path to value, or to a fresh
// variable when there is no value to match.
func (c *patternCompiler) compileTerminal(field string, subject rdf.Term, path queryir.PropertyPath, value any) ([]queryir.Pattern, error) {
	if value == nil {
		return []queryir.Pattern{queryir.NewBGP(queryir.TP(subject, path, c.vars.Next("o")))}, nil
	}
	return c.compileValue(field, subject, path, value)
}

// compileNegation compiles not(value). Existence negates to NOT EXISTS over
// the connecting triple; comparisons and set membership negate in their
// filter form; anything else negates the patterns it compiles to.
func (c *patternCompiler) compileNegation(field string, subject rdf.Term, pred queryir.PropertyPath, value any) ([]queryir.Pattern, error) {
	notExists := func(patterns ...queryir.Pattern) []queryir.Pattern {
		return []queryir.Pattern{queryir.Filter{Expression: queryir.NotExists(patterns...)}}
	}

	switch v := value.(type) {
	case nil:
		return nil, NewInvalidValueError(field, "not requires a value")

	case operator.Exists:
		return notExists(queryir.NewBGP(queryir.TP(subject, pred, c.vars.Next("o")))), nil

	case operator.Not:
		return c.compileValue(field, subject, pred, v.Value)

	case operator.Operator:
		if !operator.IsComparison(v) {
			inner, err := c.compileOperator(field, subject, pred, v)
			if err != nil {
				return nil, err
			}
			return notExists(inner...), nil
		}
		o := c.vars.Next("o")
		f, err := c.filterForm(field, v, o)
		if err != nil {
			return nil, err
		}
		return notExists(queryir.NewBGP(queryir.TP(subject, pred, o)), queryir.Filter{Expression: f}), nil

	case map[string]any:
		inner, err := c.compileValue(field, subject, pred, v)
		if err != nil {
			return nil, err
		}
		return notExists(inner...), nil

	case []any:
		if isScalarList(v) {
			return c.compileNegation(field, subject, pred, operator.In{Values: v})
		}
		inner, err := c.compileArray(field, subject, pred, v)
		if err != nil {
			return nil, err
		}
		return notExists(inner...), nil

	default:
		return c.compileNegation(field, subject, pred, operator.Equal{Value: v})
	}
}

// compileInverse swaps the direction of the connecting triple and then
// constrains the resource on the far end.
func (c *patternCompiler) compileInverse(field string, subject rdf.Term, pred queryir.PropertyPath, value any) ([]queryir.Pattern, error) {
	switch v := value.(type) {
	case nil:
		return []queryir.Pattern{queryir.NewBGP(queryir.TP(c.vars.Next("o"), pred, subject))}, nil
	case operator.Operator, map[string]any, []any:
		o := c.vars.Next("o")
		inner, err := c.compileNode(field, o, v, false)
		if err != nil {
			return nil, err
		}
		patterns := []queryir.Pattern{queryir.NewBGP(queryir.TP(o, pred, subject))}
		return mergeBGPs(append(patterns, inner...)), nil
	default:
		term, err := c.term(field, v)
		if err != nil {
			return nil, err
		}
		if _, ok := term.(rdf.Literal); ok {
			return nil, NewInvalidValueError(field, "inverse value %s cannot be a subject", term)
		}
		return []queryir.Pattern{queryir.NewBGP(queryir.TP(term, pred, subject))}, nil
	}
}

// compileNode constrains the identity of node itself, as "id" does for
// the entity. Plain identifiers and set membership become VALUES.
func (c *patternCompiler) compileNode(field string, node rdf.Variable, value any, isID bool) ([]queryir.Pattern, error) {
	switch v := value.(type) {
	case nil:
		return nil, NewInvalidValueError(field, "value must not be null")

	case map[string]any:
		if isID {
			return nil, NewInvalidValueError(field, "id cannot be a nested specification")
		}
		return c.compileWhere(node, v)

	case []any:
		if isScalarList(v) {
			return c.compileNodeOperator(field, node, operator.In{Values: v}, isID)
		}
		if isID {
			return nil, NewInvalidValueError(field, "id alternatives must be identifiers")
		}
		alternatives := make([][]queryir.Pattern, 0, len(v))
		for _, item := range v {
			alt, err := c.compileNode(field, node, item, false)
			if err != nil {
				return nil, err
			}
			alternatives = append(alternatives, alt)
		}
		if len(alternatives) == 1 {
			return alternatives[0], nil
		}
		return []queryir.Pattern{queryir.Union{Alternatives: alternatives}}, nil

	case operator.Operator:
		return c.compileNodeOperator(field, node, v, isID)

	default:
		rows, err := c.rows(field, []any{v}, isID)
		if err != nil {
			return nil, err
		}
		return []queryir.Pattern{queryir.Values{Variables: []rdf.Variable{node}, Rows: rows}}, nil
	}
}

// compileNodeOperator compiles an operator that constrains node directly.
func (c *patternCompiler) compileNodeOperator(field string, node rdf.Variable, op operator.Operator, isID bool) ([]queryir.Pattern, error) {
	filter := func(e queryir.Expression) []queryir.Pattern {
		return []queryir.Pattern{queryir.Filter{Expression: e}}
	}

	switch o := op.(type) {
	case operator.Exists:
		return nil, nil

	case operator.In:
		rows, err := c.rows(field, o.Values, isID)
		if err != nil {
			return nil, err
		}
		return []queryir.Pattern{queryir.Values{Variables: []rdf.Variable{node}, Rows: rows}}, nil

	case operator.Equal, operator.GreaterThan, operator.GreaterThanOrEqual,
		operator.LessThan, operator.LessThanOrEqual, operator.Contains:
		f, err := c.filterForm(field, op, node)
		if err != nil {
			return nil, err
		}
		return filter(f), nil

	case operator.Not:
		switch inner := o.Value.(type) {
		case operator.In:
			args, err := c.termArgs(field, inner.Values)
			if err != nil {
				return nil, err
			}
			return filter(queryir.Op(queryir.OpNotIn, append([]queryir.Expression{queryir.V(node)}, args...)...)), nil
		case operator.Equal:
			term, err := c.term(field, inner.Value)
			if err != nil {
				return nil, err
			}
			return filter(queryir.Op(queryir.OpNotEqual, queryir.V(node), queryir.C(term))), nil
		case operator.Exists:
			return nil, NewInvalidValueError(field, "not(exists) cannot constrain a resource that is already bound")
		case operator.Not:
			return c.compileNode(field, node, inner.Value, isID)
		case operator.Operator:
			if operator.IsComparison(inner) {
				f, err := c.filterForm(field, inner, node)
				if err != nil {
					return nil, err
				}
				return filter(queryir.Not(f)), nil
			}
			patterns, err := c.compileNodeOperator(field, node, inner, isID)
			if err != nil {
				return nil, err
			}
			return filter(queryir.NotExists(patterns...)), nil
		case []any:
			if isScalarList(inner) {
				return c.compileNodeOperator(field, node, operator.Not{Value: operator.In{Values: inner}}, isID)
			}
			return nil, NewInvalidValueError(field, "not of a mixed array is not supported on a resource")
		case map[string]any:
			patterns, err := c.compileNode(field, node, inner, isID)
			if err != nil {
				return nil, err
			}
			return filter(queryir.NotExists(patterns...)), nil
		default:
			term, err := c.term(field, inner)
			if err != nil {
				return nil, err
			}
			return filter(queryir.Op(queryir.OpNotEqual, queryir.V(node), queryir.C(term))), nil
		}

	case operator.SequencePath, operator.InversePath, operator.ZeroOrMorePath, operator.OneOrMorePath:
		p := op.(operator.Path)
		path, err := toPath(field, p)
		if err != nil {
			return nil, err
		}
		return c.compileTerminal(field, node, path, operator.TerminalValue(p))

	default:
		return nil, NewUnsupportedOperatorError(field, op.Kind())
	}
}

// filterForm returns the filter expression of a comparison or set
// membership operator applied to v.
func (c *patternCompiler) filterForm(field string, op operator.Operator, v rdf.Variable) (queryir.Expression, error) {
	compare := func(operatorName string, value any) (queryir.Expression, error) {
		term, err := c.term(field, value)
		if err != nil {
			return nil, err
		}
		return queryir.Op(operatorName, queryir.V(v), queryir.C(term)), nil
	}

	switch o := op.(type) {
	case operator.Equal:
		return compare(queryir.OpEqual, o.Value)
	case operator.GreaterThan:
		return compare(queryir.OpGreater, o.Value)
	case operator.GreaterThanOrEqual:
		return compare(queryir.OpGreaterEqual, o.Value)
	case operator.LessThan:
		return compare(queryir.OpLess, o.Value)
	case operator.LessThanOrEqual:
		return compare(queryir.OpLessEqual, o.Value)
	case operator.Contains:
		return queryir.Op(queryir.FuncContains,
			queryir.Op(queryir.FuncLCase, queryir.Op(queryir.FuncStr, queryir.V(v))),
			queryir.Op(queryir.FuncLCase, queryir.C(rdf.StringLiteral(o.Value))),
		), nil
	case operator.In:
		args, err := c.termArgs(field, o.Values)
		if err != nil {
			return nil, err
		}
		return queryir.Op(queryir.OpIn, append([]queryir.Expression{queryir.V(v)}, args...)...), nil
	default:
		return nil, NewUnsupportedOperatorError(field, op.Kind())
	}
}

// toPath translates a path operator into a property path.
func toPath(field string, p operator.Path) (queryir.PropertyPath, error) {
	switch path := p.(type) {
	case operator.Predicate:
		if !rdf.IsIdentifier(string(path)) {
			return nil, NewInvalidPathError(field, "path step %q is not a predicate identifier", string(path))
		}
		return queryir.PathTerm{Term: rdf.IRI(path)}, nil
	case operator.SequencePath:
		if len(path.SubPaths) == 0 {
			return nil, NewInvalidPathError(field, "sequencePath needs at least one sub-path")
		}
		steps := make([]queryir.PropertyPath, 0, len(path.SubPaths))
		for _, sub := range path.SubPaths {
			step, err := toPath(field, sub)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		return queryir.Seq(steps...), nil
	case operator.InversePath:
		inner, err := toPath(field, path.SubPath)
		if err != nil {
			return nil, err
		}
		return queryir.PathInverse{Path: inner}, nil
	case operator.ZeroOrMorePath:
		inner, err := toPath(field, path.SubPath)
		if err != nil {
			return nil, err
		}
		return queryir.PathZeroOrMore{Path: inner}, nil
	case operator.OneOrMorePath:
		inner, err := toPath(field, path.SubPath)
		if err != nil {
			return nil, err
		}
		return queryir.PathOneOrMore{Path: inner}, nil
	case nil:
		return nil, NewInvalidPathError(field, "missing sub-path")
	default:
		return nil, NewInvalidPathError(field, "unsupported path type: %T", p)
	}
}

// term converts a plain value into an IRI or literal term.
func (c *patternCompiler) term(field string, v any) (rdf.Term, error) {
	t, err := rdf.TermFromValue(v)
	if err != nil {
		return nil, &CompilationError{Code: ErrCodeInvalidValue, Field: field, Message: err.Error(), Err: err}
	}
	switch t.(type) {
	case rdf.IRI, rdf.Literal:
		return t, nil
	default:
		return nil, NewInvalidValueError(field, "%s cannot be used as a value", t)
	}
}

func (c *patternCompiler) termArgs(field string, values []any) ([]queryir.Expression, error) {
	args := make([]queryir.Expression, 0, len(values))
	for _, v := range values {
		term, err := c.term(field, v)
		if err != nil {
			return nil, err
		}
		args = append(args, queryir.C(term))
	}
	return args, nil
}

// rows converts values into single-column VALUES rows. When identifiers
// is set every value must be an IRI.
func (c *patternCompiler) rows(field string, values []any, identifiers bool) ([][]rdf.Term, error) {
	rows := make([][]rdf.Term, 0, len(values))
	for _, v := range values {
		term, err := c.term(field, v)
		if err != nil {
			return nil, err
		}
		if _, ok := term.(rdf.IRI); identifiers && !ok {
			return nil, NewInvalidValueError(field, "%s is not an identifier", term)
		}
		rows = append(rows, []rdf.Term{term})
	}
	return rows, nil
}

func isScalarList(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case nil, map[string]any, []any, operator.Operator:
			return false
		}
	}
	return true
}

// mergeBGPs joins adjacent basic graph patterns into one.
func mergeBGPs(patterns []queryir.Pattern) []queryir.Pattern {
	out := make([]queryir.Pattern, 0, len(patterns))
	for _, p := range patterns {
		bgp, ok := p.(queryir.BGP)
		if ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(queryir.BGP); ok {
				triples := make([]queryir.TriplePattern, 0, len(prev.Triples)+len(bgp.Triples))
				triples = append(triples, prev.Triples...)
				triples = append(triples, bgp.Triples...)
				out[len(out)-1] = queryir.BGP{Triples: triples}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
