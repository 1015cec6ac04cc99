package adapter

import (
	"context"
	"strings"

	"github.com/roach88/quadquery/internal/querybuilder"
	"github.com/roach88/quadquery/internal/rdf"
)

// GroupResult is one group of a grouped aggregation.
type GroupResult struct {
	// Groups maps each requested group path, or the date grouping, to
	// the group's value.
	Groups map[string]rdf.Term

	// Count is the number of distinct entities in the group.
	Count int

	// EntityIDs lists the group's entities.
	EntityIDs []string
}

// GroupBy runs a grouped aggregation. Groups are ordered by descending
// count.
func (a *Adapter) GroupBy(ctx context.Context, opts querybuilder.GroupByOptions) ([]GroupResult, error) {
	gq, err := querybuilder.NewBuilder().BuildGroupByQuery(opts)
	if err != nil {
		return nil, err
	}
	rows, err := a.exec.ExecuteSelect(ctx, gq.Query)
	if err != nil {
		return nil, err
	}

	out := make([]GroupResult, 0, len(rows))
	for _, row := range rows {
		r := GroupResult{Groups: make(map[string]rdf.Term, len(gq.VariableMapping))}
		for v, label := range gq.VariableMapping {
			if t, ok := row[v]; ok {
				r.Groups[label] = t
			}
		}
		if lit, ok := row[string(querybuilder.CountVariable)].(rdf.Literal); ok {
			if n, ok := lit.Int(); ok {
				r.Count = int(n)
			}
		}
		if lit, ok := row[string(querybuilder.EntityIDsVariable)].(rdf.Literal); ok {
			r.EntityIDs = strings.Fields(lit.Value)
		}
		out = append(out, r)
	}
	return out, nil
}
