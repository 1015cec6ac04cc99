package querybuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/querysparql"
	"github.com/roach88/quadquery/internal/rdf"
)

const (
	name  = "https://schema.org/name"
	age   = "https://schema.org/age"
	knows = "https://schema.org/knows"
	org   = "https://schema.org/worksFor"
)

func compileSPARQL(t *testing.T, q *queryir.Query) string {
	t.Helper()
	require.NoError(t, queryir.Validate(q).Err())
	out, err := querysparql.NewSPARQLCompiler().Compile(q)
	require.NoError(t, err)
	return out
}

// countPatterns counts patterns of type T at the top level of patterns.
func countPatterns[T queryir.Pattern](patterns []queryir.Pattern) int {
	n := 0
	for _, p := range patterns {
		if _, ok := p.(T); ok {
			n++
		}
	}
	return n
}

func TestBuildEntitySelectPatterns_IDOnlyBindsValues(t *testing.T) {
	data, err := NewBuilder().BuildEntitySelectPatterns(FindOptions{
		Where: map[string]any{"id": "urn:a"},
	})
	require.NoError(t, err)

	assert.True(t, data.IDOnly)
	require.Len(t, data.RestrictionPatterns, 1)
	assert.Equal(t, queryir.Values{
		Variables: []rdf.Variable{EntityVariable},
		Rows:      [][]rdf.Term{{rdf.IRI("urn:a")}},
	}, data.RestrictionPatterns[0])
	assert.Zero(t, countPatterns[queryir.BGP](data.RestrictionPatterns))
}

func TestBuildEntitySelectPatterns_IDForms(t *testing.T) {
	testCases := []struct {
		name     string
		id       any
		contains []string
		absent   []string
	}{
		{
			name:     "plain identifier",
			id:       "urn:a",
			contains: []string{"VALUES ?entity { <urn:a> }"},
			absent:   []string{"FILTER"},
		},
		{
			name:     "identifier list",
			id:       []any{"urn:a", "urn:b"},
			contains: []string{"VALUES ?entity { <urn:a> <urn:b> }"},
		},
		{
			name:     "in operator",
			id:       operator.In{Values: []any{"urn:a", "urn:b"}},
			contains: []string{"VALUES ?entity { <urn:a> <urn:b> }"},
		},
		{
			name:     "equal operator",
			id:       operator.Equal{Value: "urn:a"},
			contains: []string{"FILTER(?entity = <urn:a>)", "GRAPH ?entity {"},
			absent:   []string{"VALUES"},
		},
		{
			name:     "not in",
			id:       operator.Not{Value: operator.In{Values: []any{"urn:a", "urn:b"}}},
			contains: []string{"FILTER(?entity NOT IN (<urn:a>, <urn:b>))"},
			absent:   []string{"VALUES", "NOT EXISTS"},
		},
		{
			name:     "not equal",
			id:       operator.Not{Value: "urn:a"},
			contains: []string{"FILTER(?entity != <urn:a>)"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			data, err := b.BuildEntitySelectPatterns(FindOptions{Where: map[string]any{"id": tc.id}})
			require.NoError(t, err)

			out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0))
			for _, s := range tc.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestBuildEntitySelectPatterns_NotInOnIDIsSingleFilter(t *testing.T) {
	data, err := NewBuilder().BuildEntitySelectPatterns(FindOptions{
		Where: map[string]any{"id": operator.Not{Value: operator.In{Values: []any{"urn:a", "urn:b"}}}},
	})
	require.NoError(t, err)

	assert.False(t, data.IDOnly)
	assert.Equal(t, 1, countPatterns[queryir.Filter](data.RestrictionPatterns))
	assert.Zero(t, countPatterns[queryir.Values](data.RestrictionPatterns))
}

func TestBuildEntitySelectPatterns_MultipleOperatorsShareOneFilter(t *testing.T) {
	b := NewBuilder()
	data, err := b.BuildEntitySelectPatterns(FindOptions{
		Where: map[string]any{
			age: []any{
				operator.GreaterThanOrEqual{Value: 18},
				operator.LessThan{Value: 65},
				operator.In{Values: []any{20, 30, 40}},
				operator.Not{Value: operator.Equal{Value: 30}},
			},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, countPatterns[queryir.Values](data.RestrictionPatterns))

	out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0))
	assert.Equal(t, 1, strings.Count(out, "FILTER("), out)
	assert.Contains(t, out, " && ")
	assert.Contains(t, out, "?entity <https://schema.org/age> ?o0 .")
	assert.Contains(t, out, `(?o0 >= "18"^^<http://www.w3.org/2001/XMLSchema#integer>)`)
	assert.Contains(t, out, "?o0 IN (")
	assert.Contains(t, out, `!(?o0 = "30"^^<http://www.w3.org/2001/XMLSchema#integer>)`)
	assert.Equal(t, 1, strings.Count(out, "<https://schema.org/age>"), out)
	assert.NotContains(t, out, "NOT EXISTS")
	assert.NotContains(t, out, "VALUES")
}

func TestBuildEntitySelectPatterns_NegationsJoinSharedFilter(t *testing.T) {
	testCases := []struct {
		name     string
		ops      []any
		contains []string
	}{
		{
			name:     "negated scalar",
			ops:      []any{operator.GreaterThan{Value: 18}, operator.Not{Value: 30}},
			contains: []string{`!(?o0 = "30"^^<http://www.w3.org/2001/XMLSchema#integer>)`},
		},
		{
			name:     "negated in",
			ops:      []any{operator.Exists{}, operator.Not{Value: operator.In{Values: []any{20, 30}}}},
			contains: []string{"?o0 NOT IN ("},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			data, err := b.BuildEntitySelectPatterns(FindOptions{Where: map[string]any{age: tc.ops}})
			require.NoError(t, err)

			out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0))
			assert.Equal(t, 1, strings.Count(out, "FILTER("), out)
			assert.Equal(t, 1, strings.Count(out, "<https://schema.org/age>"), out)
			for _, want := range tc.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestBuildEntitySelectPatterns_Fields(t *testing.T) {
	testCases := []struct {
		name     string
		where    map[string]any
		contains []string
	}{
		{
			name:     "scalar literal",
			where:    map[string]any{name: "Alice"},
			contains: []string{`?entity <https://schema.org/name> "Alice" .`},
		},
		{
			name:     "identifier value",
			where:    map[string]any{knows: "urn:bob"},
			contains: []string{"?entity <https://schema.org/knows> <urn:bob> ."},
		},
		{
			name:  "type closure",
			where: map[string]any{"type": "https://schema.org/Person"},
			contains: []string{
				"?entity <http://www.w3.org/1999/02/22-rdf-syntax-ns#type>/<http://www.w3.org/2000/01/rdf-schema#subClassOf>* <https://schema.org/Person> .",
			},
		},
		{
			name:     "scalar alternatives",
			where:    map[string]any{name: []any{"Alice", "Bob"}},
			contains: []string{"?entity <https://schema.org/name> ?o0 .", `VALUES ?o0 { "Alice" "Bob" }`},
		},
		{
			name:     "nested specification",
			where:    map[string]any{org: map[string]any{name: "Acme"}},
			contains: []string{"?entity <https://schema.org/worksFor> ?o0 .", `?o0 <https://schema.org/name> "Acme" .`},
		},
		{
			name:     "contains is case insensitive",
			where:    map[string]any{name: operator.Contains{Value: "Jo"}},
			contains: []string{`FILTER(CONTAINS(LCASE(STR(?o0)), LCASE("Jo")))`},
		},
		{
			name:     "exists",
			where:    map[string]any{knows: operator.Exists{}},
			contains: []string{"FILTER EXISTS {", "?entity <https://schema.org/knows> ?o0 ."},
		},
		{
			name:     "not exists",
			where:    map[string]any{knows: operator.Not{Value: operator.Exists{}}},
			contains: []string{"FILTER NOT EXISTS {", "?entity <https://schema.org/knows> ?o0 ."},
		},
		{
			name:     "negated comparison",
			where:    map[string]any{age: operator.Not{Value: operator.GreaterThan{Value: 30}}},
			contains: []string{"FILTER NOT EXISTS {", "?entity <https://schema.org/age> ?o0 .", "FILTER(?o0 > "},
		},
		{
			name:     "inverse scalar",
			where:    map[string]any{knows: operator.Inverse{Value: "urn:bob"}},
			contains: []string{"<urn:bob> <https://schema.org/knows> ?entity ."},
		},
		{
			name:     "inverse nested",
			where:    map[string]any{knows: operator.Inverse{Value: map[string]any{name: "Bob"}}},
			contains: []string{"?o0 <https://schema.org/knows> ?entity .", `?o0 <https://schema.org/name> "Bob" .`},
		},
		{
			name:     "sequence",
			where:    map[string]any{org: operator.Sequence{Predicates: []string{name}, Value: "Acme"}},
			contains: []string{`?entity <https://schema.org/worksFor>/<https://schema.org/name> "Acme" .`},
		},
		{
			name: "one or more path",
			where: map[string]any{knows: operator.OneOrMorePath{
				SubPath: operator.Predicate(knows),
				Value:   "urn:carol",
			}},
			contains: []string{"?entity <https://schema.org/knows>/<https://schema.org/knows>+ <urn:carol> ."},
		},
		{
			name:     "union of nested alternatives",
			where:    map[string]any{org: []any{map[string]any{name: "Acme"}, "urn:globex"}},
			contains: []string{"UNION", "?entity <https://schema.org/worksFor> <urn:globex> ."},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			data, err := b.BuildEntitySelectPatterns(FindOptions{Where: tc.where})
			require.NoError(t, err)

			out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0))
			for _, s := range tc.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestBuildEntitySelectPatterns_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		where map[string]any
		code  CompilationErrorCode
	}{
		{"inverse relation in where", map[string]any{knows: operator.InverseRelation{ResolvedName: knows}}, ErrCodeUnsupportedOperator},
		{"inverse relation order in where", map[string]any{knows: operator.InverseRelationOrder{Predicate: name}}, ErrCodeUnsupportedOperator},
		{"inverse on id", map[string]any{"id": operator.Inverse{Value: "urn:a"}}, ErrCodeUnsupportedOperator},
		{"nested spec on id", map[string]any{"id": map[string]any{name: "x"}}, ErrCodeInvalidValue},
		{"literal id", map[string]any{"id": 42}, ErrCodeInvalidValue},
		{"empty array", map[string]any{name: []any{}}, ErrCodeInvalidValue},
		{"operators mixed with values", map[string]any{age: []any{operator.GreaterThan{Value: 1}, 5}}, ErrCodeInvalidValue},
		{"field not an identifier", map[string]any{"name": "Alice"}, ErrCodeInvalidPath},
		{"empty sequence path", map[string]any{knows: operator.SequencePath{}}, ErrCodeInvalidPath},
		{"null value", map[string]any{name: nil}, ErrCodeInvalidValue},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder().BuildEntitySelectPatterns(FindOptions{Where: tc.where})
			require.Error(t, err)

			var ce *CompilationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.code, ce.Code)
			assert.Equal(t, tc.code == ErrCodeUnsupportedOperator, IsUnsupportedOperator(err))
		})
	}
}

func TestBuildEntitySelectPatterns_Scoping(t *testing.T) {
	t.Run("empty where matches every entity graph", func(t *testing.T) {
		data, err := NewBuilder().BuildEntitySelectPatterns(FindOptions{})
		require.NoError(t, err)
		require.Len(t, data.RestrictionPatterns, 1)
		assert.IsType(t, queryir.Graph{}, data.RestrictionPatterns[0])
	})

	t.Run("bound entity gets an existence filter", func(t *testing.T) {
		data, err := NewBuilder().BuildEntitySelectPatterns(FindOptions{Where: map[string]any{name: "Alice"}})
		require.NoError(t, err)
		last := data.RestrictionPatterns[len(data.RestrictionPatterns)-1]
		filter, ok := last.(queryir.Filter)
		require.True(t, ok)
		exists, ok := filter.Expression.(queryir.ExistsExpr)
		require.True(t, ok)
		assert.False(t, exists.Negated)
	})
}

func TestBuildOrder_ExactTermsWithoutTieBreaker(t *testing.T) {
	b := NewBuilder()
	data, err := b.BuildEntitySelectPatterns(FindOptions{
		Order: []OrderTerm{Desc(age), Asc(name)},
	})
	require.NoError(t, err)

	require.Len(t, data.OrderTerms, 2)
	assert.True(t, data.OrderTerms[0].Descending)
	assert.False(t, data.OrderTerms[1].Descending)
	assert.Equal(t, rdf.Variable(""), data.GroupKey)

	out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 10, 0))
	assert.Contains(t, out, "ORDER BY DESC(?v0) ASC(?v1)")
	assert.NotContains(t, out, "ASC(?entity)")
	assert.Contains(t, out, "LIMIT 10")
}

func TestBuildOrder_InverseRelationOrder(t *testing.T) {
	b := NewBuilder()
	data, err := b.BuildEntitySelectPatterns(FindOptions{
		Order: []OrderTerm{
			{Field: org, Inverse: &operator.InverseRelationOrder{Predicate: name, Direction: operator.Desc}},
			Asc(age),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, EntityVariable, data.GroupKey)
	require.Len(t, data.OrderTerms, 2)
	assert.Equal(t, queryir.AggMax, data.OrderTerms[0].Expression.(queryir.Aggregate).Function)
	assert.Equal(t, queryir.AggMin, data.OrderTerms[1].Expression.(queryir.Aggregate).Function)

	out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0))
	assert.Contains(t, out, "?r0 <https://schema.org/worksFor> ?entity .")
	assert.Contains(t, out, "GROUP BY ?entity")
	assert.Contains(t, out, "ORDER BY DESC(MAX(?v0)) ASC(MIN(?v1))")
}

func TestBuildOrder_InvalidDirection(t *testing.T) {
	_, err := NewBuilder().BuildEntitySelectPatterns(FindOptions{
		Order: []OrderTerm{{Field: name, Direction: "sideways"}},
	})
	assert.True(t, IsCompilationError(err))
}

func TestBuildConstructQuery(t *testing.T) {
	t.Run("ordered identifiers bind the expansion", func(t *testing.T) {
		b := NewBuilder()
		data, err := b.BuildEntitySelectPatterns(FindOptions{Relations: map[string]any{knows: true}})
		require.NoError(t, err)

		q := b.BuildConstructQuery(data, []string{"urn:b", "urn:a"}, 0, 0)
		out := compileSPARQL(t, q)
		assert.Contains(t, out, "VALUES ?entity { <urn:b> <urn:a> }")
		assert.Contains(t, out, "?entity <urn:quadquery:matched>")
		assert.Contains(t, out, "?entity <https://schema.org/knows> ?r0 .")
		assert.NotContains(t, out, "SELECT")
	})

	t.Run("unordered restriction is a sub-select", func(t *testing.T) {
		b := NewBuilder()
		data, err := b.BuildEntitySelectPatterns(FindOptions{Where: map[string]any{name: "Alice"}})
		require.NoError(t, err)

		out := compileSPARQL(t, b.BuildConstructQuery(data, nil, 5, 10))
		assert.Contains(t, out, "SELECT DISTINCT ?entity WHERE {")
		assert.Contains(t, out, "LIMIT 5")
		assert.Contains(t, out, "OFFSET 10")
	})

	t.Run("selection only returns selected properties", func(t *testing.T) {
		b := NewBuilder()
		data, err := b.BuildEntitySelectPatterns(FindOptions{
			Select: map[string]any{name: true, org: []string{name}},
		})
		require.NoError(t, err)

		require.Len(t, data.Expansion.Frames, 1)
		assert.Equal(t, entity.Frame{Predicate: org}, data.Expansion.Frames[0])

		out := compileSPARQL(t, b.BuildConstructQuery(data, nil, 0, 0))
		assert.Contains(t, out, "OPTIONAL {")
		assert.Contains(t, out, "?entity <https://schema.org/name> ?v0 .")
		assert.NotContains(t, out, "?s0")
	})

	t.Run("inverse relation reverses the link", func(t *testing.T) {
		b := NewBuilder()
		data, err := b.BuildEntitySelectPatterns(FindOptions{
			Relations: map[string]any{"employees": operator.InverseRelation{ResolvedName: org}},
		})
		require.NoError(t, err)

		require.Len(t, data.Expansion.Frames, 1)
		assert.Equal(t, entity.Frame{Predicate: org, Inverse: true, Name: "employees"}, data.Expansion.Frames[0])

		out := compileSPARQL(t, b.BuildConstructQuery(data, nil, 0, 0))
		assert.Contains(t, out, "?r0 <https://schema.org/worksFor> ?entity .")
	})
}

func TestBuildCountAndAsk_ScopeIdentifierLookups(t *testing.T) {
	b := NewBuilder()
	data, err := b.BuildEntitySelectPatterns(FindOptions{Where: map[string]any{"id": "urn:a"}})
	require.NoError(t, err)

	count := compileSPARQL(t, b.BuildCountQuery(data))
	assert.Contains(t, count, "SELECT (COUNT(DISTINCT ?entity) AS ?count) WHERE {")
	assert.Contains(t, count, "GRAPH ?entity {")

	ask := compileSPARQL(t, b.BuildAskQuery(data))
	assert.True(t, strings.HasPrefix(ask, "ASK {"))
	assert.Contains(t, ask, "GRAPH ?entity {")
}

func TestBuildEntitySelectPatterns_SubQuery(t *testing.T) {
	b := NewBuilder()
	data, err := b.BuildEntitySelectPatterns(FindOptions{
		Where: map[string]any{name: operator.Exists{}},
		SubQueries: []SubQuery{{
			Where: map[string]any{age: operator.GreaterThan{Value: 21}},
			Order: []OrderTerm{Desc(age)},
			Limit: 3,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countPatterns[queryir.SubSelect](data.RestrictionPatterns))

	out := compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0))
	assert.Contains(t, out, "LIMIT 3")
}

func TestCompilationIsDeterministic(t *testing.T) {
	opts := FindOptions{
		Where: map[string]any{
			"type": "https://schema.org/Person",
			name:   operator.Contains{Value: "a"},
			age:    []any{operator.GreaterThan{Value: 1}, operator.LessThan{Value: 99}},
			org:    map[string]any{name: []any{"Acme", "Globex"}},
		},
		Order:     []OrderTerm{Asc(name)},
		Relations: map[string]any{knows: map[string]any{org: true}},
	}

	render := func() string {
		b := NewBuilder()
		data, err := b.BuildEntitySelectPatterns(opts)
		require.NoError(t, err)
		return compileSPARQL(t, b.BuildEntitySelectQuery(data, 0, 0)) +
			compileSPARQL(t, b.BuildConstructQuery(data, []string{"urn:a"}, 0, 0))
	}
	assert.Equal(t, render(), render())
}
