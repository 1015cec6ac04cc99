package queryir

import (
	"fmt"

	"github.com/roach88/quadquery/internal/rdf"
)

// ValidationResult lists structural problems found in a query document.
//
// A document with problems may still serialize, but an endpoint would
// reject it or the embedded engine would evaluate it differently from
// an endpoint. Backends refuse invalid documents before execution.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each violation found, in traversal order.
	Problems []string
}

// Err returns nil for a valid result, otherwise an error naming the
// first problem.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.Problems) == 1 {
		return fmt.Errorf("invalid query document: %s", r.Problems[0])
	}
	return fmt.Errorf("invalid query document: %s (and %d more)", r.Problems[0], len(r.Problems)-1)
}

// Validate checks a query document for structural problems:
//  1. No nil patterns, expressions or triple positions
//  2. VALUES rows match the variable count
//  3. Property path operators only have IRIs at their leaves
//  4. Aggregates only appear in projections and ORDER BY
//  5. Grouped SELECTs only project grouped variables or aggregates
//  6. CONSTRUCT has a template; LIMIT and OFFSET are not negative
//
// Validate is a pure function with no side effects.
func Validate(q *Query) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateQuery(q)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// ValidateUpdate checks an update document for structural problems.
// DATA operations must be ground; DELETE DATA must not contain blank nodes.
func ValidateUpdate(u *Update) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateUpdate(u)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch q.Type {
	case SelectQuery:
		v.validateProjection(q)
	case ConstructQuery:
		if len(q.Template) == 0 {
			v.addProblem("CONSTRUCT without template")
		}
		for _, t := range q.Template {
			if t.Subject == nil || t.Predicate == nil || t.Object == nil {
				v.addProblem("template triple with nil position")
			}
		}
	case AskQuery:
		if len(q.Projection) > 0 {
			v.addProblem("ASK with projection")
		}
	default:
		v.addProblem("unknown query type %q", q.Type)
	}

	if q.Limit < 0 {
		v.addProblem("negative LIMIT %d", q.Limit)
	}
	if q.Offset < 0 {
		v.addProblem("negative OFFSET %d", q.Offset)
	}

	v.validatePatterns(q.Where)

	for _, cond := range q.OrderBy {
		if cond.Expression == nil {
			v.addProblem("nil ORDER BY expression")
			continue
		}
		v.validateExpression(cond.Expression, true)
	}
}

func (v *validator) validateProjection(q *Query) {
	grouped := len(q.GroupBy) > 0
	for _, p := range q.Projection {
		if p.Expression != nil && ContainsAggregate(p.Expression) {
			grouped = true
		}
	}

	groupVars := make(map[rdf.Variable]bool, len(q.GroupBy))
	for _, g := range q.GroupBy {
		groupVars[g] = true
	}

	for _, p := range q.Projection {
		if p.Variable == "" {
			v.addProblem("projection without variable")
		}
		if p.Expression != nil {
			v.validateExpression(p.Expression, true)
			continue
		}
		if grouped && !groupVars[p.Variable] {
			v.addProblem("projected variable %s is neither grouped nor aggregated", p.Variable)
		}
	}
}

func (v *validator) validatePatterns(patterns []Pattern) {
	for _, p := range patterns {
		v.validatePattern(p)
	}
}

func (v *validator) validatePattern(p Pattern) {
	if p == nil {
		v.addProblem("nil pattern")
		return
	}

	switch pattern := p.(type) {
	case BGP:
		for _, t := range pattern.Triples {
			v.validateTriple(t)
		}
	case Graph:
		if pattern.Name == nil {
			v.addProblem("GRAPH with nil name")
		}
		v.validatePatterns(pattern.Patterns)
	case Optional:
		v.validatePatterns(pattern.Patterns)
	case Union:
		if len(pattern.Alternatives) < 2 {
			v.addProblem("UNION with %d alternatives", len(pattern.Alternatives))
		}
		for _, alt := range pattern.Alternatives {
			v.validatePatterns(alt)
		}
	case Filter:
		if pattern.Expression == nil {
			v.addProblem("FILTER with nil expression")
			return
		}
		v.validateExpression(pattern.Expression, false)
	case Values:
		if len(pattern.Variables) == 0 {
			v.addProblem("VALUES without variables")
		}
		for i, row := range pattern.Rows {
			if len(row) != len(pattern.Variables) {
				v.addProblem("VALUES row %d has %d terms for %d variables", i, len(row), len(pattern.Variables))
			}
		}
	case Bind:
		if pattern.Expression == nil {
			v.addProblem("BIND with nil expression")
			return
		}
		v.validateExpression(pattern.Expression, false)
	case Group:
		v.validatePatterns(pattern.Patterns)
	case SubSelect:
		if pattern.Query != nil && pattern.Query.Type != SelectQuery {
			v.addProblem("sub-select of type %s", pattern.Query.Type)
		}
		v.validateQuery(pattern.Query)
	default:
		v.addProblem("unsupported pattern type: %T", p)
	}
}

func (v *validator) validateTriple(t TriplePattern) {
	if t.Subject == nil || t.Predicate == nil || t.Object == nil {
		v.addProblem("triple pattern with nil position")
		return
	}
	if term, ok := t.Predicate.(PathTerm); ok {
		if term.Term == nil {
			v.addProblem("triple pattern with nil predicate")
		}
		return
	}
	v.validatePath(t.Predicate)
}

// validatePath checks a compound path; leaves must be IRIs.
func (v *validator) validatePath(p PropertyPath) {
	switch path := p.(type) {
	case PathTerm:
		if _, ok := path.Term.(rdf.IRI); !ok {
			v.addProblem("property path leaf %v is not an IRI", path.Term)
		}
	case PathSequence:
		if len(path.Steps) == 0 {
			v.addProblem("empty path sequence")
		}
		for _, step := range path.Steps {
			v.validatePath(step)
		}
	case PathInverse:
		v.validatePath(path.Path)
	case PathZeroOrMore:
		v.validatePath(path.Path)
	case PathOneOrMore:
		v.validatePath(path.Path)
	default:
		v.addProblem("unsupported path type: %T", p)
	}
}

func (v *validator) validateExpression(e Expression, aggregatesAllowed bool) {
	switch expr := e.(type) {
	case TermExpr:
		if expr.Term == nil {
			v.addProblem("nil term expression")
		}
	case Operation:
		if expr.Operator == "" {
			v.addProblem("operation without operator")
		}
		for _, arg := range expr.Args {
			if arg == nil {
				v.addProblem("nil argument to %s", expr.Operator)
				continue
			}
			v.validateExpression(arg, aggregatesAllowed)
		}
	case ExistsExpr:
		v.validatePatterns(expr.Patterns)
	case Aggregate:
		if !aggregatesAllowed {
			v.addProblem("aggregate %s outside projection or ORDER BY", expr.Function)
		}
		if expr.Expression != nil {
			v.validateExpression(expr.Expression, false)
		}
	case nil:
		v.addProblem("nil expression")
	default:
		v.addProblem("unsupported expression type: %T", e)
	}
}

func (v *validator) validateUpdate(u *Update) {
	if u == nil {
		v.addProblem("nil update")
		return
	}
	for _, op := range u.Operations {
		switch operation := op.(type) {
		case InsertData:
			v.validateGroundQuads("INSERT DATA", operation.Quads, false)
		case DeleteData:
			v.validateGroundQuads("DELETE DATA", operation.Quads, true)
		case Modify:
			if len(operation.Delete) == 0 && len(operation.Insert) == 0 {
				v.addProblem("DELETE/INSERT with empty templates")
			}
			v.validatePatterns(operation.Where)
		case DropGraph:
			if operation.Graph == "" {
				v.addProblem("DROP GRAPH with empty graph")
			}
		default:
			v.addProblem("unsupported update operation: %T", op)
		}
	}
}

func (v *validator) validateGroundQuads(form string, quads []rdf.Quad, noBlanks bool) {
	for _, q := range quads {
		if q.Subject == nil || q.Predicate == nil || q.Object == nil {
			v.addProblem("%s quad with nil position", form)
			continue
		}
		if !q.IsGround() || rdf.IsVariable(q.Graph) {
			v.addProblem("%s quad %s contains a variable", form, q.String())
			continue
		}
		if noBlanks {
			if _, ok := q.Subject.(rdf.BlankNode); ok {
				v.addProblem("%s quad %s contains a blank node", form, q.String())
			} else if _, ok := q.Object.(rdf.BlankNode); ok {
				v.addProblem("%s quad %s contains a blank node", form, q.String())
			}
		}
	}
}
