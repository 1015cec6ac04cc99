package querysparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

const indentUnit = "  "

// SPARQLCompiler renders queryir documents as SPARQL 1.1 text.
//
// Output is deterministic: the same document always renders to the same
// text, one pattern per line with two-space indentation. Terms are written
// in full N-Triples form, so no PREFIX declarations are emitted.
type SPARQLCompiler struct{}

// NewSPARQLCompiler creates a new SPARQLCompiler.
func NewSPARQLCompiler() *SPARQLCompiler {
	return &SPARQLCompiler{}
}

// Compile converts a query document to SPARQL query text.
func (c *SPARQLCompiler) Compile(q *queryir.Query) (string, error) {
	if q == nil {
		return "", fmt.Errorf("cannot compile nil query")
	}
	w := &writer{}
	if err := c.writeQuery(w, q, 0); err != nil {
		return "", err
	}
	return w.String(), nil
}

// CompileUpdate converts an update document to SPARQL update text.
// Operations are separated by " ;" as the update grammar requires.
func (c *SPARQLCompiler) CompileUpdate(u *queryir.Update) (string, error) {
	if u == nil {
		return "", fmt.Errorf("cannot compile nil update")
	}
	if len(u.Operations) == 0 {
		return "", fmt.Errorf("cannot compile empty update")
	}

	parts := make([]string, 0, len(u.Operations))
	for _, op := range u.Operations {
		w := &writer{}
		if err := c.writeUpdateOperation(w, op); err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimRight(w.String(), "\n"))
	}
	return strings.Join(parts, " ;\n") + "\n", nil
}

// writer accumulates lines at an indentation depth.
type writer struct {
	b strings.Builder
}

func (w *writer) line(depth int, s string) {
	for i := 0; i < depth; i++ {
		w.b.WriteString(indentUnit)
	}
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *writer) String() string {
	return w.b.String()
}

func (c *SPARQLCompiler) writeQuery(w *writer, q *queryir.Query, depth int) error {
	switch q.Type {
	case queryir.SelectQuery:
		head, err := c.selectClause(q)
		if err != nil {
			return err
		}
		w.line(depth, head+" WHERE {")
	case queryir.ConstructQuery:
		w.line(depth, "CONSTRUCT {")
		for _, t := range q.Template {
			w.line(depth+1, t.String())
		}
		w.line(depth, "} WHERE {")
	case queryir.AskQuery:
		w.line(depth, "ASK {")
	default:
		return fmt.Errorf("unsupported query type: %q", q.Type)
	}

	if err := c.writePatterns(w, q.Where, depth+1); err != nil {
		return fmt.Errorf("compile where: %w", err)
	}
	w.line(depth, "}")

	return c.writeModifiers(w, q, depth)
}

// selectClause renders "SELECT [DISTINCT] <projection>".
func (c *SPARQLCompiler) selectClause(q *queryir.Query) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.Projection) == 0 {
		b.WriteString("*")
		return b.String(), nil
	}
	for i, p := range q.Projection {
		if i > 0 {
			b.WriteByte(' ')
		}
		if p.Expression == nil {
			b.WriteString(p.Variable.String())
			continue
		}
		expr, err := c.compileExpression(p.Expression, 0)
		if err != nil {
			return "", fmt.Errorf("compile projection %s: %w", p.Variable, err)
		}
		fmt.Fprintf(&b, "(%s AS %s)", expr, p.Variable.String())
	}
	return b.String(), nil
}

// writeModifiers renders GROUP BY, ORDER BY, LIMIT and OFFSET.
func (c *SPARQLCompiler) writeModifiers(w *writer, q *queryir.Query, depth int) error {
	if len(q.GroupBy) > 0 {
		vars := make([]string, len(q.GroupBy))
		for i, v := range q.GroupBy {
			vars[i] = v.String()
		}
		w.line(depth, "GROUP BY "+strings.Join(vars, " "))
	}
	if len(q.OrderBy) > 0 {
		keys := make([]string, len(q.OrderBy))
		for i, cond := range q.OrderBy {
			expr, err := c.compileExpression(cond.Expression, depth)
			if err != nil {
				return fmt.Errorf("compile order by: %w", err)
			}
			dir := "ASC"
			if cond.Descending {
				dir = "DESC"
			}
			keys[i] = dir + "(" + expr + ")"
		}
		w.line(depth, "ORDER BY "+strings.Join(keys, " "))
	}
	if q.Limit > 0 {
		w.line(depth, "LIMIT "+strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		w.line(depth, "OFFSET "+strconv.Itoa(q.Offset))
	}
	return nil
}

func (c *SPARQLCompiler) writePatterns(w *writer, patterns []queryir.Pattern, depth int) error {
	for _, p := range patterns {
		if err := c.writePattern(w, p, depth); err != nil {
			return err
		}
	}
	return nil
}

func (c *SPARQLCompiler) writePattern(w *writer, p queryir.Pattern, depth int) error {
	switch pattern := p.(type) {
	case queryir.BGP:
		for _, t := range pattern.Triples {
			s, err := c.compileTriple(t)
			if err != nil {
				return err
			}
			w.line(depth, s)
		}
		return nil

	case queryir.Graph:
		if pattern.Name == nil {
			return fmt.Errorf("GRAPH without name")
		}
		w.line(depth, "GRAPH "+pattern.Name.String()+" {")
		if err := c.writePatterns(w, pattern.Patterns, depth+1); err != nil {
			return err
		}
		w.line(depth, "}")
		return nil

	case queryir.Optional:
		w.line(depth, "OPTIONAL {")
		if err := c.writePatterns(w, pattern.Patterns, depth+1); err != nil {
			return err
		}
		w.line(depth, "}")
		return nil

	case queryir.Union:
		for i, alt := range pattern.Alternatives {
			if i == 0 {
				w.line(depth, "{")
			} else {
				w.line(depth, "} UNION {")
			}
			if err := c.writePatterns(w, alt, depth+1); err != nil {
				return err
			}
		}
		if len(pattern.Alternatives) > 0 {
			w.line(depth, "}")
		}
		return nil

	case queryir.Filter:
		expr, err := c.compileExpression(pattern.Expression, depth)
		if err != nil {
			return fmt.Errorf("compile filter: %w", err)
		}
		switch {
		case strings.HasPrefix(expr, "EXISTS") || strings.HasPrefix(expr, "NOT EXISTS"):
			w.line(depth, "FILTER "+expr)
		case strings.HasPrefix(expr, "(") && balanced(expr):
			w.line(depth, "FILTER"+expr)
		default:
			w.line(depth, "FILTER("+expr+")")
		}
		return nil

	case queryir.Values:
		s, err := compileValues(pattern)
		if err != nil {
			return err
		}
		w.line(depth, s)
		return nil

	case queryir.Bind:
		expr, err := c.compileExpression(pattern.Expression, depth)
		if err != nil {
			return fmt.Errorf("compile bind: %w", err)
		}
		w.line(depth, "BIND("+expr+" AS "+pattern.Variable.String()+")")
		return nil

	case queryir.Group:
		w.line(depth, "{")
		if err := c.writePatterns(w, pattern.Patterns, depth+1); err != nil {
			return err
		}
		w.line(depth, "}")
		return nil

	case queryir.SubSelect:
		if pattern.Query == nil {
			return fmt.Errorf("sub-select without query")
		}
		w.line(depth, "{")
		if err := c.writeQuery(w, pattern.Query, depth+1); err != nil {
			return fmt.Errorf("compile sub-select: %w", err)
		}
		w.line(depth, "}")
		return nil

	default:
		return fmt.Errorf("unsupported pattern type: %T", p)
	}
}

// balanced reports whether the opening parenthesis at s[0] closes at the
// last byte, so "(a) && (b)" is not mistaken for one parenthesized group.
func balanced(s string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func (c *SPARQLCompiler) compileTriple(t queryir.TriplePattern) (string, error) {
	if t.Subject == nil || t.Predicate == nil || t.Object == nil {
		return "", fmt.Errorf("triple pattern with nil position")
	}
	path, err := CompilePath(t.Predicate)
	if err != nil {
		return "", err
	}
	return t.Subject.String() + " " + path + " " + t.Object.String() + " .", nil
}

// CompilePath renders a property path.
func CompilePath(p queryir.PropertyPath) (string, error) {
	switch path := p.(type) {
	case queryir.PathTerm:
		if path.Term == nil {
			return "", fmt.Errorf("nil predicate")
		}
		return path.Term.String(), nil
	case queryir.PathSequence:
		if len(path.Steps) == 0 {
			return "", fmt.Errorf("empty path sequence")
		}
		steps := make([]string, len(path.Steps))
		for i, step := range path.Steps {
			s, err := compilePathElement(step)
			if err != nil {
				return "", err
			}
			steps[i] = s
		}
		return strings.Join(steps, "/"), nil
	case queryir.PathInverse:
		s, err := compilePathPrimary(path.Path)
		if err != nil {
			return "", err
		}
		return "^" + s, nil
	case queryir.PathZeroOrMore:
		s, err := compilePathPrimary(path.Path)
		if err != nil {
			return "", err
		}
		return s + "*", nil
	case queryir.PathOneOrMore:
		s, err := compilePathPrimary(path.Path)
		if err != nil {
			return "", err
		}
		return s + "+", nil
	default:
		return "", fmt.Errorf("unsupported path type: %T", p)
	}
}

// compilePathElement renders a sequence step; nested sequences need
// parentheses, everything else binds tighter than "/".
func compilePathElement(p queryir.PropertyPath) (string, error) {
	if _, ok := p.(queryir.PathSequence); ok {
		s, err := CompilePath(p)
		if err != nil {
			return "", err
		}
		return "(" + s + ")", nil
	}
	return CompilePath(p)
}

// compilePathPrimary renders the operand of ^, * or +.
func compilePathPrimary(p queryir.PropertyPath) (string, error) {
	s, err := CompilePath(p)
	if err != nil {
		return "", err
	}
	if queryir.IsSimple(p) {
		return s, nil
	}
	return "(" + s + ")", nil
}

func compileValues(v queryir.Values) (string, error) {
	if len(v.Variables) == 0 {
		return "", fmt.Errorf("VALUES without variables")
	}

	row := func(r []rdf.Term) (string, error) {
		if len(r) != len(v.Variables) {
			return "", fmt.Errorf("VALUES row has %d terms for %d variables", len(r), len(v.Variables))
		}
		parts := make([]string, len(r))
		for i, t := range r {
			if t == nil {
				parts[i] = "UNDEF"
			} else {
				parts[i] = t.String()
			}
		}
		return strings.Join(parts, " "), nil
	}

	var b strings.Builder
	b.WriteString("VALUES ")
	if len(v.Variables) == 1 {
		b.WriteString(v.Variables[0].String())
		b.WriteString(" {")
		for _, r := range v.Rows {
			s, err := row(r)
			if err != nil {
				return "", err
			}
			b.WriteByte(' ')
			b.WriteString(s)
		}
		b.WriteString(" }")
		return b.String(), nil
	}

	vars := make([]string, len(v.Variables))
	for i, variable := range v.Variables {
		vars[i] = variable.String()
	}
	b.WriteString("(" + strings.Join(vars, " ") + ") {")
	for _, r := range v.Rows {
		s, err := row(r)
		if err != nil {
			return "", err
		}
		b.WriteString(" (" + s + ")")
	}
	b.WriteString(" }")
	return b.String(), nil
}
