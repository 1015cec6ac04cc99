package queryir

import "github.com/roach88/quadquery/internal/rdf"

// Expression is a sealed interface over filter and projection expressions.
type Expression interface {
	expressionNode() // Marker method - seals interface to this package
}

// Operator names used in Operation. Symbolic operators render infix;
// the rest render as function calls.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpAnd          = "&&"
	OpOr           = "||"
	OpNot          = "!"
	OpIn           = "IN"
	OpNotIn        = "NOT IN"

	FuncContains = "CONTAINS"
	FuncLCase    = "LCASE"
	FuncStr      = "STR"
	FuncConcat   = "CONCAT"
	FuncYear     = "YEAR"
	FuncMonth    = "MONTH"
	FuncDay      = "DAY"
	FuncIf       = "IF"
	FuncBound    = "BOUND"
	FuncIsIRI    = "isIRI"
	FuncStrLen   = "STRLEN"
)

// Aggregate function names.
const (
	AggCount       = "COUNT"
	AggMin         = "MIN"
	AggMax         = "MAX"
	AggSample      = "SAMPLE"
	AggGroupConcat = "GROUP_CONCAT"
)

// TermExpr is a constant term or a variable.
type TermExpr struct {
	Term rdf.Term
}

// Operation applies an operator or built-in function to Args.
//
// For OpIn and OpNotIn the first argument is the tested expression and
// the rest form the candidate list.
type Operation struct {
	Operator string
	Args     []Expression
}

// ExistsExpr is EXISTS { Patterns } or NOT EXISTS { Patterns }.
type ExistsExpr struct {
	Patterns []Pattern
	Negated  bool
}

// Aggregate is an aggregate call. A nil Expression is COUNT(*).
type Aggregate struct {
	Function   string
	Distinct   bool
	Expression Expression
	Separator  string
}

func (TermExpr) expressionNode()   {}
func (Operation) expressionNode()  {}
func (ExistsExpr) expressionNode() {}
func (Aggregate) expressionNode()  {}

// V is a variable expression.
func V(v rdf.Variable) TermExpr {
	return TermExpr{Term: v}
}

// C is a constant term expression.
func C(t rdf.Term) TermExpr {
	return TermExpr{Term: t}
}

// Op builds an Operation.
func Op(operator string, args ...Expression) Operation {
	return Operation{Operator: operator, Args: args}
}

// And conjoins expressions. A single expression is returned unchanged and
// nested conjunctions are flattened.
func And(exprs ...Expression) Expression {
	flat := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if op, ok := e.(Operation); ok && op.Operator == OpAnd {
			flat = append(flat, op.Args...)
			continue
		}
		flat = append(flat, e)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Operation{Operator: OpAnd, Args: flat}
}

// Not negates an expression.
func Not(e Expression) Operation {
	return Operation{Operator: OpNot, Args: []Expression{e}}
}

// Exists wraps patterns in EXISTS.
func Exists(patterns ...Pattern) ExistsExpr {
	return ExistsExpr{Patterns: patterns}
}

// NotExists wraps patterns in NOT EXISTS.
func NotExists(patterns ...Pattern) ExistsExpr {
	return ExistsExpr{Patterns: patterns, Negated: true}
}

// ContainsAggregate reports whether e contains an aggregate call.
func ContainsAggregate(e Expression) bool {
	switch expr := e.(type) {
	case Aggregate:
		return true
	case Operation:
		for _, arg := range expr.Args {
			if ContainsAggregate(arg) {
				return true
			}
		}
	}
	return false
}
