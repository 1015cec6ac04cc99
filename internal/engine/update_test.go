package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

func countQuads(t *testing.T, e *Engine, p store.Pattern) int {
	t.Helper()
	quads, err := e.Store().Match(context.Background(), p)
	require.NoError(t, err)
	return len(quads)
}

func TestUpdate_InsertAndDeleteData(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	q := own(ex+"alice", name, rdf.StringLiteral("Alice"))

	require.NoError(t, e.Update(ctx, &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.InsertData{Quads: []rdf.Quad{q}},
	}}))
	assert.Equal(t, 1, countQuads(t, e, store.Pattern{}))

	require.NoError(t, e.Update(ctx, &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.DeleteData{Quads: []rdf.Quad{q}},
	}}))
	assert.Equal(t, 0, countQuads(t, e, store.Pattern{}))
}

func TestUpdate_InsertDataRelabelsBlankNodes(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	g := rdf.IRI(ex + "alice")
	insert := func() {
		require.NoError(t, e.Update(ctx, &queryir.Update{Operations: []queryir.UpdateOperation{
			queryir.InsertData{Quads: []rdf.Quad{
				rdf.NewQuad(g, rdf.IRI(ex+"address"), rdf.BlankNode("b0"), g),
				rdf.NewQuad(rdf.BlankNode("b0"), rdf.IRI(ex+"city"), rdf.StringLiteral("Oslo"), g),
			}},
		}}))
	}
	insert()
	insert()

	quads, err := e.Store().Match(ctx, store.Pattern{Predicate: rdf.IRI(ex + "address")})
	require.NoError(t, err)
	require.Len(t, quads, 2, "each request gets fresh blank nodes")
	assert.NotEqual(t, quads[0].Object, quads[1].Object)

	// Within one request the label denotes one node.
	cities, err := e.Store().Match(ctx, store.Pattern{Subject: quads[0].Object})
	require.NoError(t, err)
	assert.Len(t, cities, 1)
}

func TestUpdate_Modify(t *testing.T) {
	e := newTestEngine(t, people())
	ctx := context.Background()
	s, a := rdf.Variable("s"), rdf.Variable("a")

	// Replace every age with a birthday marker in the same graph.
	err := e.Update(ctx, &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.Modify{
			Delete: []rdf.Quad{rdf.NewQuad(s, rdf.IRI(age), a, rdf.Variable("g"))},
			Insert: []rdf.Quad{rdf.NewQuad(s, rdf.IRI(ex+"celebrated"), rdf.True, rdf.Variable("g"))},
			Where: []queryir.Pattern{queryir.Graph{
				Name:     rdf.Variable("g"),
				Patterns: []queryir.Pattern{queryir.NewBGP(queryir.T(s, rdf.IRI(age), a))},
			}},
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, 0, countQuads(t, e, store.Pattern{Predicate: rdf.IRI(age)}))
	assert.Equal(t, 2, countQuads(t, e, store.Pattern{Predicate: rdf.IRI(ex + "celebrated")}))
	assert.Equal(t, 1, countQuads(t, e, store.Pattern{Predicate: rdf.IRI(ex + "celebrated"), Graph: rdf.IRI(ex + "bob")}))
}

func TestUpdate_ModifyWithoutSolutionsIsNoop(t *testing.T) {
	e := newTestEngine(t, people())
	before := countQuads(t, e, store.Pattern{})

	err := e.Update(context.Background(), &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.Modify{
			Insert: []rdf.Quad{rdf.NewQuad(rdf.Variable("s"), rdf.IRI(name), rdf.StringLiteral("x"), nil)},
			Where:  []queryir.Pattern{queryir.NewBGP(queryir.T(rdf.Variable("s"), rdf.IRI(ex+"missing"), rdf.Variable("o")))},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, before, countQuads(t, e, store.Pattern{}))
}

func TestUpdate_DropGraph(t *testing.T) {
	testCases := []struct {
		name    string
		graph   string
		silent  bool
		wantErr bool
		remain  int
	}{
		{name: "existing graph", graph: ex + "alice", remain: 6},
		{name: "missing graph silent", graph: ex + "nobody", silent: true, remain: 10},
		{name: "missing graph", graph: ex + "nobody", wantErr: true, remain: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, people())
			err := e.Update(context.Background(), &queryir.Update{Operations: []queryir.UpdateOperation{
				queryir.DropGraph{Graph: rdf.IRI(tc.graph), Silent: tc.silent},
			}})
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsGraphNotFound(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.remain, countQuads(t, e, store.Pattern{}))
		})
	}
}

func TestUpdate_StopsAtFirstFailure(t *testing.T) {
	e := newTestEngine(t, nil)

	err := e.Update(context.Background(), &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.InsertData{Quads: []rdf.Quad{own(ex+"a", name, rdf.StringLiteral("A"))}},
		queryir.DropGraph{Graph: rdf.IRI(ex + "nobody")},
		queryir.InsertData{Quads: []rdf.Quad{own(ex+"b", name, rdf.StringLiteral("B"))}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 1")
	assert.Equal(t, 1, countQuads(t, e, store.Pattern{}))
}
