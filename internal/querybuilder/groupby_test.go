package querybuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupByQuery(t *testing.T) {
	q, err := NewBuilder().BuildGroupByQuery(GroupByOptions{
		Where:   map[string]any{"type": "https://schema.org/Order"},
		GroupBy: []string{"https://schema.org/customer~https://schema.org/name"},
		DateRange: &DateRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		DateGrouping: GroupByMonth,
		Limit:        5,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"g0":        "https://schema.org/customer~https://schema.org/name",
		"dateGroup": "month",
	}, q.VariableMapping)
	assert.Equal(t, []string{"g0", "dateGroup", "count", "entityIds"}, q.Query.ProjectedVariables())

	out := compileSPARQL(t, q.Query)
	assert.Contains(t, out, "?entity <https://schema.org/customer>/<https://schema.org/name> ?g0 .")
	assert.Contains(t, out, "?entity <http://purl.org/dc/terms/created> ?d0 .")
	assert.Contains(t, out, `(?d0 >= "2024-01-01T00:00:00Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>)`)
	assert.Contains(t, out, "BIND(CONCAT(STR(YEAR(?d0)), \"-\", IF((MONTH(?d0) < ")
	assert.Contains(t, out, `(COUNT(DISTINCT ?entity) AS ?count)`)
	assert.Contains(t, out, `(GROUP_CONCAT(DISTINCT STR(?entity); SEPARATOR=" ") AS ?entityIds)`)
	assert.Contains(t, out, "GROUP BY ?g0 ?dateGroup")
	assert.Contains(t, out, "ORDER BY DESC(?count) ASC(?g0) ASC(?dateGroup)")
	assert.Contains(t, out, "LIMIT 5")
}

func TestBuildGroupByQuery_Errors(t *testing.T) {
	testCases := []struct {
		name string
		opts GroupByOptions
		code CompilationErrorCode
	}{
		{"no group keys", GroupByOptions{}, ErrCodeInvalidValue},
		{"bad path step", GroupByOptions{GroupBy: []string{"https://schema.org/a~name"}}, ErrCodeInvalidPath},
		{"unknown date grouping", GroupByOptions{DateGrouping: "week"}, ErrCodeInvalidValue},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder().BuildGroupByQuery(tc.opts)
			var ce *CompilationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.code, ce.Code)
		})
	}
}
