package querybuilder

import (
	"strings"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// Fixed result variables of grouped aggregations.
const (
	EntityIDsVariable = rdf.Variable("entityIds")
	DateGroupVariable = rdf.Variable("dateGroup")
)

// PathSeparator separates the predicates of a multi-hop group path.
const PathSeparator = "~"

// GroupByQuery is a compiled grouped aggregation.
type GroupByQuery struct {
	Query *queryir.Query

	// VariableMapping maps each group variable to the group path or date
	// grouping it was generated for.
	VariableMapping map[string]string
}

// BuildGroupByQuery compiles a grouped aggregation. Every result row
// carries the group values, ?count (distinct entities in the group) and
// ?entityIds (their identifiers separated by single spaces). Rows are
// ordered by descending count and then by the group values.
func (b *Builder) BuildGroupByQuery(opts GroupByOptions) (*GroupByQuery, error) {
	if len(opts.GroupBy) == 0 && opts.DateGrouping == "" {
		return nil, NewInvalidValueError("groupBy", "at least one group path or a date grouping is required")
	}

	restriction, _, err := b.buildRestriction(opts.Where, nil)
	if err != nil {
		return nil, err
	}
	where := append([]queryir.Pattern(nil), restriction...)

	mapping := map[string]string{}
	var groupVars []rdf.Variable
	var triples []queryir.TriplePattern

	for _, path := range opts.GroupBy {
		steps := strings.Split(path, PathSeparator)
		paths := make([]queryir.PropertyPath, 0, len(steps))
		for _, step := range steps {
			if !rdf.IsIdentifier(step) {
				return nil, NewInvalidPathError(path, "group path step %q is not a predicate identifier", step)
			}
			paths = append(paths, queryir.PathTerm{Term: rdf.IRI(step)})
		}
		g := b.vars.Next("g")
		triples = append(triples, queryir.TP(EntityVariable, queryir.Seq(paths...), g))
		groupVars = append(groupVars, g)
		mapping[string(g)] = path
	}

	var filters []queryir.Expression
	var binds []queryir.Pattern
	if opts.DateRange != nil || opts.DateGrouping != "" {
		pred := opts.DatePredicate
		if pred == "" {
			pred = rdf.DCTermsCreated
		}
		if !rdf.IsIdentifier(pred) {
			return nil, NewInvalidPathError(pred, "date predicate is not an identifier")
		}
		d := b.vars.Next("d")
		triples = append(triples, queryir.T(EntityVariable, rdf.IRI(pred), d))

		if r := opts.DateRange; r != nil {
			if !r.Start.IsZero() {
				filters = append(filters, queryir.Op(queryir.OpGreaterEqual, queryir.V(d), queryir.C(rdf.DateTimeLiteral(r.Start))))
			}
			if !r.End.IsZero() {
				filters = append(filters, queryir.Op(queryir.OpLessEqual, queryir.V(d), queryir.C(rdf.DateTimeLiteral(r.End))))
			}
		}

		if opts.DateGrouping != "" {
			bucket, err := dateBucket(opts.DateGrouping, d)
			if err != nil {
				return nil, err
			}
			binds = append(binds, queryir.Bind{Expression: bucket, Variable: DateGroupVariable})
			groupVars = append(groupVars, DateGroupVariable)
			mapping[string(DateGroupVariable)] = string(opts.DateGrouping)
		}
	}

	if len(triples) > 0 {
		where = append(where, queryir.NewBGP(triples...))
	}
	if len(filters) > 0 {
		where = append(where, queryir.Filter{Expression: queryir.And(filters...)})
	}
	where = append(where, binds...)

	projection := make([]queryir.Projection, 0, len(groupVars)+2)
	order := []queryir.OrderCondition{{Expression: queryir.V(CountVariable), Descending: true}}
	for _, g := range groupVars {
		projection = append(projection, queryir.Projection{Variable: g})
		order = append(order, queryir.OrderCondition{Expression: queryir.V(g)})
	}
	projection = append(projection,
		queryir.Projection{
			Variable:   CountVariable,
			Expression: queryir.Aggregate{Function: queryir.AggCount, Distinct: true, Expression: queryir.V(EntityVariable)},
		},
		queryir.Projection{
			Variable: EntityIDsVariable,
			Expression: queryir.Aggregate{
				Function:   queryir.AggGroupConcat,
				Distinct:   true,
				Expression: queryir.Op(queryir.FuncStr, queryir.V(EntityVariable)),
				Separator:  " ",
			},
		},
	)

	return &GroupByQuery{
		Query: &queryir.Query{
			Type:       queryir.SelectQuery,
			Projection: projection,
			Where:      mergeBGPs(where),
			GroupBy:    groupVars,
			OrderBy:    order,
			Limit:      opts.Limit,
			Offset:     opts.Offset,
		},
		VariableMapping: mapping,
	}, nil
}

// dateBucket renders d as "YYYY-MM" or "YYYY-MM-DD".
func dateBucket(grouping DateGrouping, d rdf.Variable) (queryir.Expression, error) {
	year := queryir.Op(queryir.FuncStr, queryir.Op(queryir.FuncYear, queryir.V(d)))
	month := zeroPad(queryir.Op(queryir.FuncMonth, queryir.V(d)))
	dash := queryir.C(rdf.StringLiteral("-"))

	switch grouping {
	case GroupByMonth:
		return queryir.Op(queryir.FuncConcat, year, dash, month), nil
	case GroupByDay:
		day := zeroPad(queryir.Op(queryir.FuncDay, queryir.V(d)))
		return queryir.Op(queryir.FuncConcat, year, dash, month, dash, day), nil
	default:
		return nil, NewInvalidValueError("dateGrouping", "unknown date grouping %q", grouping)
	}
}

func zeroPad(e queryir.Expression) queryir.Expression {
	return queryir.Op(queryir.FuncIf,
		queryir.Op(queryir.OpLess, e, queryir.C(rdf.IntegerLiteral(10))),
		queryir.Op(queryir.FuncConcat, queryir.C(rdf.StringLiteral("0")), queryir.Op(queryir.FuncStr, e)),
		queryir.Op(queryir.FuncStr, e),
	)
}
