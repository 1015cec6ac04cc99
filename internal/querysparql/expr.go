package querysparql

import (
	"fmt"
	"strings"

	"github.com/roach88/quadquery/internal/queryir"
)

// infix lists the operators rendered between their operands.
var infix = map[string]bool{
	queryir.OpEqual:        true,
	queryir.OpNotEqual:     true,
	queryir.OpLess:         true,
	queryir.OpLessEqual:    true,
	queryir.OpGreater:      true,
	queryir.OpGreaterEqual: true,
	queryir.OpAnd:          true,
	queryir.OpOr:           true,
}

// compileExpression renders an expression. Every infix operation is
// parenthesized so precedence never depends on the reader. depth is the
// indentation of the line the expression starts on, used by EXISTS blocks.
func (c *SPARQLCompiler) compileExpression(e queryir.Expression, depth int) (string, error) {
	switch expr := e.(type) {
	case queryir.TermExpr:
		if expr.Term == nil {
			return "", fmt.Errorf("nil term expression")
		}
		return expr.Term.String(), nil

	case queryir.Operation:
		return c.compileOperation(expr, depth)

	case queryir.ExistsExpr:
		w := &writer{}
		if err := c.writePatterns(w, expr.Patterns, depth+1); err != nil {
			return "", fmt.Errorf("compile exists: %w", err)
		}
		keyword := "EXISTS"
		if expr.Negated {
			keyword = "NOT EXISTS"
		}
		return keyword + " {\n" + w.String() + strings.Repeat(indentUnit, depth) + "}", nil

	case queryir.Aggregate:
		return c.compileAggregate(expr, depth)

	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (c *SPARQLCompiler) compileOperation(op queryir.Operation, depth int) (string, error) {
	args := make([]string, len(op.Args))
	for i, arg := range op.Args {
		s, err := c.compileExpression(arg, depth)
		if err != nil {
			return "", err
		}
		args[i] = s
	}

	switch {
	case infix[op.Operator]:
		if len(args) < 2 {
			return "", fmt.Errorf("operator %s needs at least 2 arguments, got %d", op.Operator, len(args))
		}
		return "(" + strings.Join(args, " "+op.Operator+" ") + ")", nil

	case op.Operator == queryir.OpNot:
		if len(args) != 1 {
			return "", fmt.Errorf("operator ! needs 1 argument, got %d", len(args))
		}
		if strings.HasPrefix(args[0], "(") && balanced(args[0]) {
			return "!" + args[0], nil
		}
		return "!(" + args[0] + ")", nil

	case op.Operator == queryir.OpIn || op.Operator == queryir.OpNotIn:
		if len(args) < 1 {
			return "", fmt.Errorf("operator %s needs a tested expression", op.Operator)
		}
		return "(" + args[0] + " " + op.Operator + " (" + strings.Join(args[1:], ", ") + "))", nil

	case op.Operator == "":
		return "", fmt.Errorf("operation without operator")

	default:
		return op.Operator + "(" + strings.Join(args, ", ") + ")", nil
	}
}

func (c *SPARQLCompiler) compileAggregate(agg queryir.Aggregate, depth int) (string, error) {
	var b strings.Builder
	b.WriteString(agg.Function)
	b.WriteByte('(')
	if agg.Distinct {
		b.WriteString("DISTINCT ")
	}
	if agg.Expression == nil {
		if agg.Function != queryir.AggCount {
			return "", fmt.Errorf("%s requires an argument", agg.Function)
		}
		b.WriteByte('*')
	} else {
		s, err := c.compileExpression(agg.Expression, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	if agg.Function == queryir.AggGroupConcat && agg.Separator != "" {
		b.WriteString(`; SEPARATOR="`)
		b.WriteString(escapeSeparator(agg.Separator))
		b.WriteByte('"')
	}
	b.WriteByte(')')
	return b.String(), nil
}

func escapeSeparator(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`).Replace(s)
}
