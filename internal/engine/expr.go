package engine

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// env is the context an expression is evaluated in.
type env struct {
	scope scope

	// grouped is set while evaluating projections and order keys of a
	// grouped query; group holds the solutions of the current group.
	grouped bool
	group   []rdf.Binding
}

// filter evaluates e as a FILTER condition on b. Expression errors make
// the condition false.
func (ev *evaluation) filter(ctx context.Context, e queryir.Expression, b rdf.Binding, sc scope) (bool, error) {
	v, err := ev.eval(ctx, e, b, env{scope: sc})
	if err != nil {
		if isExprError(err) {
			return false, nil
		}
		return false, err
	}
	ok, err := ebv(v)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// eval evaluates an expression against one solution.
func (ev *evaluation) eval(ctx context.Context, e queryir.Expression, b rdf.Binding, en env) (rdf.Term, error) {
	switch expr := e.(type) {
	case queryir.TermExpr:
		name, isVar := varName(expr.Term)
		if !isVar {
			return expr.Term, nil
		}
		v, ok := b[name]
		if !ok {
			return nil, errExpr("unbound variable %s", expr.Term)
		}
		return v, nil

	case queryir.Operation:
		return ev.evalOperation(ctx, expr, b, en)

	case queryir.ExistsExpr:
		sols, err := ev.evalGroup(ctx, expr.Patterns, []rdf.Binding{b}, en.scope)
		if err != nil {
			return nil, err
		}
		return boolTerm((len(sols) > 0) != expr.Negated), nil

	case queryir.Aggregate:
		if !en.grouped {
			return nil, newUnsupportedError("aggregate %s outside a grouped query", expr.Function)
		}
		return ev.aggregate(ctx, expr, en)

	default:
		return nil, newUnsupportedError("unsupported expression type: %T", e)
	}
}

func (ev *evaluation) evalOperation(ctx context.Context, op queryir.Operation, b rdf.Binding, en env) (rdf.Term, error) {
	switch op.Operator {
	case queryir.OpAnd:
		// An error only wins when no operand is false.
		var firstErr error
		for _, arg := range op.Args {
			ok, err := ev.evalBool(ctx, arg, b, en)
			if err != nil {
				if !isExprError(err) {
					return nil, err
				}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !ok {
				return rdf.False, nil
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return rdf.True, nil

	case queryir.OpOr:
		var firstErr error
		for _, arg := range op.Args {
			ok, err := ev.evalBool(ctx, arg, b, en)
			if err != nil {
				if !isExprError(err) {
					return nil, err
				}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				return rdf.True, nil
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return rdf.False, nil

	case queryir.OpNot:
		if len(op.Args) != 1 {
			return nil, newUnsupportedError("! takes 1 argument, got %d", len(op.Args))
		}
		ok, err := ev.evalBool(ctx, op.Args[0], b, en)
		if err != nil {
			return nil, err
		}
		return boolTerm(!ok), nil

	case queryir.OpIn, queryir.OpNotIn:
		if len(op.Args) < 1 {
			return nil, newUnsupportedError("%s needs a tested expression", op.Operator)
		}
		x, err := ev.eval(ctx, op.Args[0], b, en)
		if err != nil {
			return nil, err
		}
		found := false
		var firstErr error
		for _, arg := range op.Args[1:] {
			v, err := ev.eval(ctx, arg, b, en)
			if err != nil {
				if !isExprError(err) {
					return nil, err
				}
				firstErr = err
				continue
			}
			if equalValues(x, v) {
				found = true
				break
			}
		}
		if !found && firstErr != nil {
			return nil, firstErr
		}
		return boolTerm(found == (op.Operator == queryir.OpIn)), nil

	case queryir.FuncIf:
		if len(op.Args) != 3 {
			return nil, newUnsupportedError("IF takes 3 arguments, got %d", len(op.Args))
		}
		cond, err := ev.evalBool(ctx, op.Args[0], b, en)
		if err != nil {
			return nil, err
		}
		if cond {
			return ev.eval(ctx, op.Args[1], b, en)
		}
		return ev.eval(ctx, op.Args[2], b, en)

	case queryir.FuncBound:
		if len(op.Args) != 1 {
			return nil, newUnsupportedError("BOUND takes 1 argument, got %d", len(op.Args))
		}
		te, ok := op.Args[0].(queryir.TermExpr)
		name, isVar := "", false
		if ok {
			name, isVar = varName(te.Term)
		}
		if !isVar {
			return nil, newUnsupportedError("BOUND requires a variable")
		}
		_, bound := b[name]
		return boolTerm(bound), nil
	}

	args := make([]rdf.Term, len(op.Args))
	for i, arg := range op.Args {
		v, err := ev.eval(ctx, arg, b, en)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return callFunction(op.Operator, args)
}

func (ev *evaluation) evalBool(ctx context.Context, e queryir.Expression, b rdf.Binding, en env) (bool, error) {
	v, err := ev.eval(ctx, e, b, en)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

// callFunction applies an operator or built-in function to evaluated
// arguments.
func callFunction(name string, args []rdf.Term) (rdf.Term, error) {
	arity := func(n int) error {
		if len(args) != n {
			return newUnsupportedError("%s takes %d argument(s), got %d", name, n, len(args))
		}
		return nil
	}

	switch name {
	case queryir.OpEqual, queryir.OpNotEqual:
		if err := arity(2); err != nil {
			return nil, err
		}
		eq := equalValues(args[0], args[1])
		return boolTerm(eq == (name == queryir.OpEqual)), nil

	case queryir.OpLess, queryir.OpLessEqual, queryir.OpGreater, queryir.OpGreaterEqual:
		if err := arity(2); err != nil {
			return nil, err
		}
		c, err := compareValues(args[0], args[1])
		if err != nil {
			return nil, err
		}
		switch name {
		case queryir.OpLess:
			return boolTerm(c < 0), nil
		case queryir.OpLessEqual:
			return boolTerm(c <= 0), nil
		case queryir.OpGreater:
			return boolTerm(c > 0), nil
		default:
			return boolTerm(c >= 0), nil
		}

	case queryir.FuncStr:
		if err := arity(1); err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case rdf.IRI:
			return rdf.StringLiteral(string(t)), nil
		case rdf.Literal:
			return rdf.StringLiteral(t.Value), nil
		default:
			return nil, errExpr("STR of %v", args[0])
		}

	case queryir.FuncLCase:
		if err := arity(1); err != nil {
			return nil, err
		}
		l, err := stringArg(name, args[0])
		if err != nil {
			return nil, err
		}
		l.Value = cases.Lower(language.Und).String(l.Value)
		return l, nil

	case queryir.FuncContains:
		if err := arity(2); err != nil {
			return nil, err
		}
		haystack, err := stringArg(name, args[0])
		if err != nil {
			return nil, err
		}
		needle, err := stringArg(name, args[1])
		if err != nil {
			return nil, err
		}
		return boolTerm(strings.Contains(haystack.Value, needle.Value)), nil

	case queryir.FuncStrLen:
		if err := arity(1); err != nil {
			return nil, err
		}
		l, err := stringArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return rdf.IntegerLiteral(int64(utf8.RuneCountInString(l.Value))), nil

	case queryir.FuncConcat:
		var sb strings.Builder
		for _, a := range args {
			l, err := stringArg(name, a)
			if err != nil {
				return nil, err
			}
			sb.WriteString(l.Value)
		}
		return rdf.StringLiteral(sb.String()), nil

	case queryir.FuncYear, queryir.FuncMonth, queryir.FuncDay:
		if err := arity(1); err != nil {
			return nil, err
		}
		l, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, errExpr("%s of %v", name, args[0])
		}
		t, ok := l.Time()
		if !ok {
			return nil, errExpr("%s of non-date %v", name, args[0])
		}
		switch name {
		case queryir.FuncYear:
			return rdf.IntegerLiteral(int64(t.Year())), nil
		case queryir.FuncMonth:
			return rdf.IntegerLiteral(int64(t.Month())), nil
		default:
			return rdf.IntegerLiteral(int64(t.Day())), nil
		}

	case queryir.FuncIsIRI:
		if err := arity(1); err != nil {
			return nil, err
		}
		_, ok := args[0].(rdf.IRI)
		return boolTerm(ok), nil

	default:
		return nil, newUnsupportedError("unsupported function %s", name)
	}
}

// stringArg accepts simple and language-tagged string literals.
func stringArg(fn string, t rdf.Term) (rdf.Literal, error) {
	l, ok := t.(rdf.Literal)
	if !ok || !l.IsString() {
		return rdf.Literal{}, errExpr("%s expects a string, got %v", fn, t)
	}
	return l, nil
}

// ebv computes the effective boolean value of a term.
func ebv(t rdf.Term) (bool, error) {
	l, ok := t.(rdf.Literal)
	if !ok {
		return false, errExpr("no boolean value for %v", t)
	}
	switch {
	case l.DatatypeIRI() == rdf.XSDBoolean:
		v, ok := l.Bool()
		if !ok {
			return false, errExpr("malformed boolean %v", t)
		}
		return v, nil
	case l.IsNumeric():
		f, ok := l.Float()
		if !ok {
			return false, errExpr("malformed number %v", t)
		}
		return f != 0 && !math.IsNaN(f), nil
	case l.IsString():
		return l.Value != "", nil
	default:
		return false, errExpr("no boolean value for %v", t)
	}
}

func boolTerm(v bool) rdf.Literal {
	if v {
		return rdf.True
	}
	return rdf.False
}
