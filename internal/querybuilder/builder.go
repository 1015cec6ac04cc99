package querybuilder

import (
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// CountVariable is the projected variable of count queries.
const CountVariable = rdf.Variable("count")

// Builder compiles find specifications into query documents.
type Builder struct {
	vars     *VariableAllocator
	patterns *patternCompiler
}

// NewBuilder creates a Builder with a fresh variable allocator.
func NewBuilder() *Builder {
	vars := NewVariableAllocator()
	return &Builder{
		vars:     vars,
		patterns: &patternCompiler{vars: vars},
	}
}

// QueryData is the compiled form of a find specification, ready to be
// turned into the restriction, expansion, count or ask query.
type QueryData struct {
	// RestrictionPatterns bind ?entity to every matching entity.
	RestrictionPatterns []queryir.Pattern

	// OrderPatterns bind the variables OrderTerms sort on.
	OrderPatterns []queryir.Pattern
	OrderTerms    []queryir.OrderCondition

	// GroupKey is set when ordering aggregates over related entities and
	// the restriction has to group by the entity.
	GroupKey rdf.Variable

	// IDOnly is set when the restriction is nothing but a value binding
	// of ?entity, with no pattern proving the entity is stored.
	IDOnly bool

	Expansion Expansion
}

// Expansion describes the CONSTRUCT half of a find.
type Expansion struct {
	Patterns []queryir.Pattern

	// SelectionTriples is the CONSTRUCT template. It always contains the
	// marker triple identifying top-level entities.
	SelectionTriples []rdf.Triple

	// Frames tells reassembly which properties hold embedded entities.
	Frames []entity.Frame
}

// Ordered reports whether the data carries order terms.
func (d *QueryData) Ordered() bool {
	return len(d.OrderTerms) > 0
}

// BuildEntitySelectPatterns compiles opts into QueryData.
func (b *Builder) BuildEntitySelectPatterns(opts FindOptions) (*QueryData, error) {
	restriction, idOnly, err := b.buildRestriction(opts.Where, opts.SubQueries)
	if err != nil {
		return nil, err
	}

	orderPatterns, orderTerms, groupKey, err := b.buildOrder(opts.Order)
	if err != nil {
		return nil, err
	}

	expansion, err := b.buildExpansion(opts.Relations, opts.Select)
	if err != nil {
		return nil, err
	}

	return &QueryData{
		RestrictionPatterns: restriction,
		OrderPatterns:       orderPatterns,
		OrderTerms:          orderTerms,
		GroupKey:            groupKey,
		IDOnly:              idOnly,
		Expansion:           expansion,
	}, nil
}

// buildRestriction compiles where and subqueries and scopes the result to
// entities that own a graph.
func (b *Builder) buildRestriction(where map[string]any, subQueries []SubQuery) ([]queryir.Pattern, bool, error) {
	patterns, err := b.patterns.compileWhere(EntityVariable, where)
	if err != nil {
		return nil, false, err
	}

	for _, sq := range subQueries {
		sub, err := b.buildSubQuery(sq)
		if err != nil {
			return nil, false, err
		}
		patterns = append(patterns, sub)
	}

	_, hasID := where[FieldID]
	idOnly := hasID && len(where) == 1 && len(subQueries) == 0 && onlyValues(patterns)

	switch {
	case idOnly:
		// A plain identifier lookup binds ?entity directly; the expansion
		// produces nothing for identifiers without a graph.
	case bindsVariable(patterns, EntityVariable):
		patterns = append(patterns, queryir.Filter{Expression: queryir.Exists(b.entityGraph())})
	default:
		patterns = append([]queryir.Pattern{b.entityGraph()}, patterns...)
	}
	return patterns, idOnly, nil
}

// entityGraph matches any triple about ?entity inside its own graph.
func (b *Builder) entityGraph() queryir.Pattern {
	return queryir.Graph{
		Name: EntityVariable,
		Patterns: []queryir.Pattern{
			queryir.NewBGP(queryir.T(EntityVariable, b.vars.Next("p"), b.vars.Next("o"))),
		},
	}
}

func (b *Builder) buildSubQuery(sq SubQuery) (queryir.Pattern, error) {
	restriction, _, err := b.buildRestriction(sq.Where, nil)
	if err != nil {
		return nil, err
	}
	orderPatterns, orderTerms, groupKey, err := b.buildOrder(sq.Order)
	if err != nil {
		return nil, err
	}
	data := &QueryData{
		RestrictionPatterns: restriction,
		OrderPatterns:       orderPatterns,
		OrderTerms:          orderTerms,
		GroupKey:            groupKey,
	}
	return queryir.SubSelect{Query: b.BuildEntitySelectQuery(data, sq.Limit, sq.Offset)}, nil
}

// buildOrder compiles order terms. Terms apply exactly in the order given
// and no tie-breaker is added.
func (b *Builder) buildOrder(terms []OrderTerm) ([]queryir.Pattern, []queryir.OrderCondition, rdf.Variable, error) {
	var (
		patterns   []queryir.Pattern
		conditions []queryir.OrderCondition
		groupKey   rdf.Variable
		aggregated []bool
	)

	for _, term := range terms {
		dir := term.Direction
		if term.Inverse != nil && term.Inverse.Direction != "" {
			dir = term.Inverse.Direction
		}
		if dir == "" {
			dir = operator.Asc
		}
		if !dir.Valid() {
			return nil, nil, "", NewInvalidValueError(term.Field, "invalid sort direction %q", dir)
		}
		desc := dir == operator.Desc

		switch {
		case term.Inverse != nil:
			if !rdf.IsIdentifier(term.Field) {
				return nil, nil, "", NewInvalidPathError(term.Field, "inverse order field must be a predicate identifier")
			}
			if !rdf.IsIdentifier(term.Inverse.Predicate) {
				return nil, nil, "", NewInvalidPathError(term.Field, "inverse order predicate %q is not an identifier", term.Inverse.Predicate)
			}
			r := b.vars.Next("r")
			v := b.vars.Next("v")
			inner := []queryir.Pattern{queryir.NewBGP(
				queryir.T(r, rdf.IRI(term.Field), EntityVariable),
				queryir.T(r, rdf.IRI(term.Inverse.Predicate), v),
			)}
			constraints, err := b.patterns.compileWhere(r, term.Inverse.Where)
			if err != nil {
				return nil, nil, "", err
			}
			patterns = append(patterns, queryir.Optional{Patterns: mergeBGPs(append(inner, constraints...))})
			conditions = append(conditions, queryir.OrderCondition{
				Expression: queryir.Aggregate{Function: extremum(desc), Expression: queryir.V(v)},
				Descending: desc,
			})
			aggregated = append(aggregated, true)
			groupKey = EntityVariable

		case term.Field == FieldID:
			conditions = append(conditions, queryir.OrderCondition{Expression: queryir.V(EntityVariable), Descending: desc})
			aggregated = append(aggregated, false)

		default:
			var pred queryir.PropertyPath = queryir.PathTerm{Term: rdf.TypeIRI}
			if term.Field != FieldType {
				if !rdf.IsIdentifier(term.Field) {
					return nil, nil, "", NewInvalidPathError(term.Field, "order field must be a predicate identifier")
				}
				pred = queryir.PathTerm{Term: rdf.IRI(term.Field)}
			}
			v := b.vars.Next("v")
			patterns = append(patterns, queryir.Optional{Patterns: []queryir.Pattern{queryir.NewBGP(queryir.TP(EntityVariable, pred, v))}})
			conditions = append(conditions, queryir.OrderCondition{Expression: queryir.V(v), Descending: desc})
			aggregated = append(aggregated, false)
		}
	}

	// Once the restriction groups by the entity, every other sort key has
	// to be an aggregate too.
	if groupKey != "" {
		for i, cond := range conditions {
			if aggregated[i] {
				continue
			}
			if te, ok := cond.Expression.(queryir.TermExpr); ok && te.Term == EntityVariable {
				continue
			}
			conditions[i].Expression = queryir.Aggregate{Function: extremum(cond.Descending), Expression: cond.Expression}
		}
	}

	return patterns, conditions, groupKey, nil
}

func extremum(desc bool) string {
	if desc {
		return queryir.AggMax
	}
	return queryir.AggMin
}

// BuildEntitySelectQuery builds the restriction query returning the
// distinct matching entities in order.
func (b *Builder) BuildEntitySelectQuery(data *QueryData, limit, offset int) *queryir.Query {
	where := make([]queryir.Pattern, 0, len(data.RestrictionPatterns)+len(data.OrderPatterns))
	where = append(where, data.RestrictionPatterns...)
	where = append(where, data.OrderPatterns...)

	q := &queryir.Query{
		Type:       queryir.SelectQuery,
		Distinct:   true,
		Projection: []queryir.Projection{{Variable: EntityVariable}},
		Where:      where,
		OrderBy:    data.OrderTerms,
		Limit:      limit,
		Offset:     offset,
	}
	if data.GroupKey != "" {
		q.GroupBy = []rdf.Variable{data.GroupKey}
	}
	return q
}

// BuildConstructQuery builds the expansion query. When orderedIDs is
// non-nil the entities are bound with VALUES; otherwise the restriction is
// embedded as a sub-select with limit and offset applied.
func (b *Builder) BuildConstructQuery(data *QueryData, orderedIDs []string, limit, offset int) *queryir.Query {
	var where []queryir.Pattern
	if orderedIDs != nil {
		rows := make([][]rdf.Term, 0, len(orderedIDs))
		for _, id := range orderedIDs {
			rows = append(rows, []rdf.Term{rdf.IRI(id)})
		}
		where = append(where, queryir.Values{Variables: []rdf.Variable{EntityVariable}, Rows: rows})
	} else {
		where = append(where, queryir.SubSelect{Query: b.BuildEntitySelectQuery(data, limit, offset)})
	}
	if data.IDOnly {
		// Looked-up identifiers must own a graph, whatever the selection.
		where = append(where, queryir.Filter{Expression: queryir.Exists(b.entityGraph())})
	}
	where = append(where, data.Expansion.Patterns...)

	return &queryir.Query{
		Type:     queryir.ConstructQuery,
		Template: data.Expansion.SelectionTriples,
		Where:    where,
	}
}

// BuildCountQuery counts the distinct entities the restriction matches.
func (b *Builder) BuildCountQuery(data *QueryData) *queryir.Query {
	return &queryir.Query{
		Type: queryir.SelectQuery,
		Projection: []queryir.Projection{{
			Variable:   CountVariable,
			Expression: queryir.Aggregate{Function: queryir.AggCount, Distinct: true, Expression: queryir.V(EntityVariable)},
		}},
		Where: b.scopedRestriction(data),
	}
}

// BuildAskQuery asks whether any entity matches the restriction.
func (b *Builder) BuildAskQuery(data *QueryData) *queryir.Query {
	return &queryir.Query{
		Type:  queryir.AskQuery,
		Where: b.scopedRestriction(data),
	}
}

// scopedRestriction returns the restriction with identifier-only lookups
// scoped to stored entities, so unknown identifiers are neither counted
// nor reported as existing.
func (b *Builder) scopedRestriction(data *QueryData) []queryir.Pattern {
	if !data.IDOnly {
		return data.RestrictionPatterns
	}
	patterns := make([]queryir.Pattern, 0, len(data.RestrictionPatterns)+1)
	patterns = append(patterns, data.RestrictionPatterns...)
	return append(patterns, b.entityGraph())
}

func onlyValues(patterns []queryir.Pattern) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, p := range patterns {
		if _, ok := p.(queryir.Values); !ok {
			return false
		}
	}
	return true
}

// bindsVariable reports whether evaluating patterns always binds v.
func bindsVariable(patterns []queryir.Pattern, v rdf.Variable) bool {
	for _, p := range patterns {
		switch pattern := p.(type) {
		case queryir.BGP:
			for _, t := range pattern.Triples {
				if t.Subject == v || t.Object == v {
					return true
				}
			}
		case queryir.Values:
			for _, name := range pattern.Variables {
				if name == v {
					return true
				}
			}
		case queryir.Graph:
			if pattern.Name == v || bindsVariable(pattern.Patterns, v) {
				return true
			}
		case queryir.Group:
			if bindsVariable(pattern.Patterns, v) {
				return true
			}
		case queryir.Union:
			all := len(pattern.Alternatives) > 0
			for _, alt := range pattern.Alternatives {
				all = all && bindsVariable(alt, v)
			}
			if all {
				return true
			}
		case queryir.SubSelect:
			for _, proj := range pattern.Query.Projection {
				if proj.Variable == v {
					return true
				}
			}
		case queryir.Bind:
			if pattern.Variable == v {
				return true
			}
		}
	}
	return false
}
