package executor

import (
	"context"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/engine"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

const seed = `
PREFIX s: <https://schema.org/>
INSERT DATA {
	GRAPH <urn:alice> { <urn:alice> s:name "Alice" ; s:knows <urn:bob> . }
	GRAPH <urn:bob> { <urn:bob> s:name "Bob" . }
}`

func newMemory(t *testing.T, opts ...Option) *MemoryExecutor {
	t.Helper()
	m, err := NewMemoryExecutor(store.MemoryPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.ExecuteRawUpdate(context.Background(), seed))
	return m
}

func namesQuery() *queryir.Query {
	return &queryir.Query{
		Type:       queryir.SelectQuery,
		Projection: []queryir.Projection{{Variable: "n"}},
		Where: []queryir.Pattern{queryir.NewBGP(
			queryir.T(rdf.Variable("s"), rdf.IRI("https://schema.org/name"), rdf.Variable("n")),
		)},
		OrderBy: []queryir.OrderCondition{{Expression: queryir.V("n")}},
	}
}

func TestMemoryExecutor_Documents(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	rows, err := m.ExecuteSelect(ctx, namesQuery())
	require.NoError(t, err)
	assert.Equal(t, []rdf.Binding{
		{"n": rdf.StringLiteral("Alice")},
		{"n": rdf.StringLiteral("Bob")},
	}, rows)

	count := &queryir.Query{
		Type: queryir.SelectQuery,
		Projection: []queryir.Projection{{
			Variable:   "count",
			Expression: queryir.Aggregate{Function: queryir.AggCount, Distinct: true, Expression: queryir.V("s")},
		}},
		Where: namesQuery().Where,
	}
	n, err := m.ExecuteSelectCount(ctx, count)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ask := &queryir.Query{Type: queryir.AskQuery, Where: []queryir.Pattern{queryir.NewBGP(
		queryir.T(rdf.IRI("urn:bob"), rdf.IRI("https://schema.org/knows"), rdf.Variable("x")),
	)}}
	ok, err := m.ExecuteAsk(ctx, ask)
	require.NoError(t, err)
	assert.False(t, ok)

	construct := &queryir.Query{
		Type:     queryir.ConstructQuery,
		Template: []rdf.Triple{{Subject: rdf.Variable("o"), Predicate: rdf.IRI("urn:knownBy"), Object: rdf.Variable("s")}},
		Where: []queryir.Pattern{queryir.NewBGP(
			queryir.T(rdf.Variable("s"), rdf.IRI("https://schema.org/knows"), rdf.Variable("o")),
		)},
	}
	triples, err := m.ExecuteConstruct(ctx, construct)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Triple{{Subject: rdf.IRI("urn:bob"), Predicate: rdf.IRI("urn:knownBy"), Object: rdf.IRI("urn:alice")}}, triples)

	require.NoError(t, m.ExecuteUpdate(ctx, &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.DropGraph{Graph: "urn:bob"},
	}}))
	rows, err = m.ExecuteSelect(ctx, namesQuery())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryExecutor_RawQuery(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	testCases := []struct {
		name  string
		text  string
		check func(t *testing.T, res *RawResult)
	}{
		{
			name: "select",
			text: `SELECT ?s WHERE { ?s <https://schema.org/knows> ?o }`,
			check: func(t *testing.T, res *RawResult) {
				assert.Equal(t, queryir.SelectQuery, res.Form)
				assert.Equal(t, []string{"s"}, res.Variables)
				assert.Equal(t, []rdf.Binding{{"s": rdf.IRI("urn:alice")}}, res.Bindings)
			},
		},
		{
			name: "ask",
			text: `ASK { GRAPH <urn:bob> { ?s ?p ?o } }`,
			check: func(t *testing.T, res *RawResult) {
				assert.Equal(t, queryir.AskQuery, res.Form)
				assert.True(t, res.Boolean)
			},
		},
		{
			name: "construct",
			text: `CONSTRUCT { ?s <urn:label> ?n } WHERE { GRAPH <urn:alice> { ?s <https://schema.org/name> ?n } }`,
			check: func(t *testing.T, res *RawResult) {
				assert.Equal(t, queryir.ConstructQuery, res.Form)
				assert.Equal(t, []rdf.Triple{{Subject: rdf.IRI("urn:alice"), Predicate: rdf.IRI("urn:label"), Object: rdf.StringLiteral("Alice")}}, res.Triples)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := m.ExecuteRawQuery(ctx, tc.text)
			require.NoError(t, err)
			tc.check(t, res)
		})
	}
}

func TestMemoryExecutor_Errors(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t, WithEngineOptions(engine.WithMaxSolutions(1)))

	_, err := m.ExecuteRawQuery(ctx, "SELECT ?s WHERE { ?s }")
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.Contains(t, err.Error(), "memory raw_query")

	_, err = m.ExecuteSelect(ctx, namesQuery())
	require.Error(t, err)
	assert.True(t, engine.IsQuotaError(err))
	assert.True(t, IsExecutionError(err))

	err = m.ExecuteRawUpdate(ctx, "DROP GRAPH <urn:missing>")
	require.Error(t, err)
	assert.True(t, engine.IsGraphNotFound(err))
	assert.Zero(t, StatusCode(err))
}

func TestMemoryExecutor_Metrics(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	ok := metrics.requests.WithLabelValues(string(BackendMemory), "ask", "ok")
	failed := metrics.requests.WithLabelValues(string(BackendMemory), "ask", "error")
	beforeOK, beforeFailed := prom.ToFloat64(ok), prom.ToFloat64(failed)

	_, err := m.ExecuteAsk(ctx, &queryir.Query{Type: queryir.AskQuery})
	require.NoError(t, err)
	_, err = m.ExecuteAsk(ctx, namesQuery())
	require.Error(t, err)

	assert.Equal(t, beforeOK+1, prom.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, prom.ToFloat64(failed))
}

func TestMemoryExecutor_StoreSizeGauge(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)
	assert.Equal(t, float64(3), prom.ToFloat64(metrics.storeQuads))

	require.NoError(t, m.ExecuteUpdate(ctx, &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.DropGraph{Graph: rdf.IRI("urn:bob"), Silent: true},
	}}))
	assert.Equal(t, float64(2), prom.ToFloat64(metrics.storeQuads))

	require.Error(t, m.ExecuteRawUpdate(ctx, "not an update"))
	assert.Equal(t, float64(2), prom.ToFloat64(metrics.storeQuads), "failed updates leave the gauge alone")
}
