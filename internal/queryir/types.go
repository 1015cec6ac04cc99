package queryir

import "github.com/roach88/quadquery/internal/rdf"

// QueryType is the query form.
type QueryType string

const (
	SelectQuery    QueryType = "SELECT"
	ConstructQuery QueryType = "CONSTRUCT"
	AskQuery       QueryType = "ASK"
)

// Query is a read query document.
//
// Semantics:
//
//	SELECT [DISTINCT] <Projection> WHERE { <Where> }
//	GROUP BY <GroupBy> ORDER BY <OrderBy> LIMIT <Limit> OFFSET <Offset>
//
// CONSTRUCT uses Template instead of Projection; ASK uses neither.
// An empty Projection on a SELECT means SELECT *. Limit and Offset of 0
// are omitted.
type Query struct {
	Type       QueryType
	Distinct   bool
	Projection []Projection
	Template   []rdf.Triple
	Where      []Pattern
	GroupBy    []rdf.Variable
	OrderBy    []OrderCondition
	Limit      int
	Offset     int
}

// Projection is one entry of a SELECT clause. A nil Expression projects
// the variable itself; otherwise it renders as (Expression AS ?Variable).
type Projection struct {
	Variable   rdf.Variable
	Expression Expression
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expression Expression
	Descending bool
}

// ProjectedVariables returns the names of the variables a SELECT produces.
func (q *Query) ProjectedVariables() []string {
	names := make([]string, 0, len(q.Projection))
	for _, p := range q.Projection {
		names = append(names, string(p.Variable))
	}
	return names
}

// Pattern is a sealed interface over graph pattern elements.
//
// Pattern types:
//   - BGP: triple patterns joined together
//   - Graph: patterns evaluated inside a named graph
//   - Optional: left join with the preceding patterns
//   - Union: alternatives
//   - Filter: restriction over the group it appears in
//   - Values: inline data
//   - Bind: assignment of an expression to a variable
//   - Group: a nested { } group
//   - SubSelect: a nested SELECT joined with the group
type Pattern interface {
	patternNode() // Marker method - seals interface to this package
}

// TriplePattern is a triple whose predicate position is a property path.
type TriplePattern struct {
	Subject   rdf.Term
	Predicate PropertyPath
	Object    rdf.Term
}

// BGP is a basic graph pattern.
type BGP struct {
	Triples []TriplePattern
}

// Graph scopes Patterns to the graph named by Name (an IRI or variable).
type Graph struct {
	Name     rdf.Term
	Patterns []Pattern
}

// Optional is an OPTIONAL { } block.
type Optional struct {
	Patterns []Pattern
}

// Union is { A } UNION { B } UNION ...
type Union struct {
	Alternatives [][]Pattern
}

// Filter is a FILTER over the enclosing group.
type Filter struct {
	Expression Expression
}

// Values is an inline VALUES block. A nil term in a row is UNDEF.
type Values struct {
	Variables []rdf.Variable
	Rows      [][]rdf.Term
}

// Bind is BIND(Expression AS ?Variable).
type Bind struct {
	Expression Expression
	Variable   rdf.Variable
}

// Group is a nested group graph pattern.
type Group struct {
	Patterns []Pattern
}

// SubSelect is a nested SELECT query. Only its projected variables are
// visible to the enclosing group.
type SubSelect struct {
	Query *Query
}

func (BGP) patternNode()       {}
func (Graph) patternNode()     {}
func (Optional) patternNode()  {}
func (Union) patternNode()     {}
func (Filter) patternNode()    {}
func (Values) patternNode()    {}
func (Bind) patternNode()      {}
func (Group) patternNode()     {}
func (SubSelect) patternNode() {}

// T builds a triple pattern with a plain predicate term.
func T(s rdf.Term, p rdf.Term, o rdf.Term) TriplePattern {
	return TriplePattern{Subject: s, Predicate: PathTerm{Term: p}, Object: o}
}

// TP builds a triple pattern with a property path predicate.
func TP(s rdf.Term, p PropertyPath, o rdf.Term) TriplePattern {
	return TriplePattern{Subject: s, Predicate: p, Object: o}
}

// NewBGP wraps triple patterns in a BGP.
func NewBGP(triples ...TriplePattern) BGP {
	return BGP{Triples: triples}
}
