package engine

import (
	"context"
	"strings"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// aggregate computes an aggregate over the solutions of the current group.
// Solutions whose argument fails to evaluate are ignored. MIN, MAX and
// SAMPLE over no values leave their variable unbound.
func (ev *evaluation) aggregate(ctx context.Context, agg queryir.Aggregate, en env) (rdf.Term, error) {
	if agg.Function == queryir.AggCount && agg.Expression == nil {
		if !agg.Distinct {
			return rdf.IntegerLiteral(int64(len(en.group))), nil
		}
		seen := make(map[string]struct{})
		for _, b := range en.group {
			seen[bindingKey(b, allVariables([]rdf.Binding{b}))] = struct{}{}
		}
		return rdf.IntegerLiteral(int64(len(seen))), nil
	}

	inner := env{scope: en.scope}
	var values []rdf.Term
	seen := make(map[rdf.Term]struct{})
	for _, b := range en.group {
		v, err := ev.eval(ctx, agg.Expression, b, inner)
		if err != nil {
			if isExprError(err) {
				continue
			}
			return nil, err
		}
		if agg.Distinct {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		values = append(values, v)
	}

	switch agg.Function {
	case queryir.AggCount:
		return rdf.IntegerLiteral(int64(len(values))), nil

	case queryir.AggMin, queryir.AggMax:
		if len(values) == 0 {
			return nil, errExpr("%s over no values", agg.Function)
		}
		best := values[0]
		for _, v := range values[1:] {
			c := compareOrder(v, best)
			if (agg.Function == queryir.AggMin && c < 0) || (agg.Function == queryir.AggMax && c > 0) {
				best = v
			}
		}
		return best, nil

	case queryir.AggSample:
		if len(values) == 0 {
			return nil, errExpr("SAMPLE over no values")
		}
		return values[0], nil

	case queryir.AggGroupConcat:
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			switch t := v.(type) {
			case rdf.Literal:
				parts = append(parts, t.Value)
			case rdf.IRI:
				parts = append(parts, string(t))
			default:
				return nil, errExpr("GROUP_CONCAT of %v", v)
			}
		}
		return rdf.StringLiteral(strings.Join(parts, sep)), nil

	default:
		return nil, newUnsupportedError("unsupported aggregate %s", agg.Function)
	}
}
