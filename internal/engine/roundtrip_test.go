package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/engine"
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/operator"
	"github.com/roach88/quadquery/internal/querybuilder"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

const (
	schema   = "https://schema.org/"
	person   = schema + "Person"
	employee = schema + "Employee"
	manager  = schema + "Manager"
	org      = schema + "Organization"
	name     = schema + "name"
	knows    = schema + "knows"
)

func str(s string) entity.Value {
	return entity.Literal(rdf.StringLiteral(s))
}

func ref(id string) entity.Value {
	return entity.Reference(id)
}

// newCompany saves a small class hierarchy and five entities, four of
// which are people of some kind.
func newCompany(t *testing.T) *engine.Engine {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	e := engine.New(s)

	entities := []*entity.Entity{
		entity.New(employee).Add(rdf.RDFSSubClassOf, ref(person)),
		entity.New(manager).Add(rdf.RDFSSubClassOf, ref(employee)),
		entity.New("urn:ex:john").Add(rdf.RDFType, ref(person)).Add(name, str("John")).Add(knows, ref("urn:ex:amy")),
		entity.New("urn:ex:jonas").Add(rdf.RDFType, ref(employee)).Add(name, str("jonas")),
		entity.New("urn:ex:amy").Add(rdf.RDFType, ref(manager)).Add(name, str("Amy")),
		entity.New("urn:ex:kim").Add(rdf.RDFType, ref(person)).Add(name, str("Kim")),
		entity.New("urn:ex:acme").Add(rdf.RDFType, ref(org)).Add(name, str("Acme Joinery")),
	}
	upd, _, err := (&querybuilder.UpdateBuilder{}).BuildSave(entities)
	require.NoError(t, err)
	require.NoError(t, e.Update(context.Background(), upd))
	return e
}

// find runs a find the way the adapter does: restrict, then expand.
func find(t *testing.T, e *engine.Engine, opts querybuilder.FindOptions) []*entity.Entity {
	t.Helper()
	ctx := context.Background()
	b := querybuilder.NewBuilder()
	data, err := b.BuildEntitySelectPatterns(opts)
	require.NoError(t, err)

	if data.Ordered() && opts.Limit != 1 {
		res, err := e.Select(ctx, b.BuildEntitySelectQuery(data, opts.Limit, opts.Offset))
		require.NoError(t, err)
		ids := make([]string, 0, len(res.Bindings))
		for _, row := range res.Bindings {
			ids = append(ids, string(row[string(querybuilder.EntityVariable)].(rdf.IRI)))
		}
		if len(ids) == 0 {
			return nil
		}
		triples, err := e.Construct(ctx, b.BuildConstructQuery(data, ids, 0, 0))
		require.NoError(t, err)
		return entity.Reassemble(triples, data.Expansion.Frames, ids)
	}

	triples, err := e.Construct(ctx, b.BuildConstructQuery(data, nil, opts.Limit, opts.Offset))
	require.NoError(t, err)
	return entity.Reassemble(triples, data.Expansion.Frames, nil)
}

func ids(entities []*entity.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func TestFind_TypeIncludesSubclasses(t *testing.T) {
	e := newCompany(t)

	got := find(t, e, querybuilder.FindOptions{Where: map[string]any{"type": person}})
	assert.ElementsMatch(t, []string{"urn:ex:amy", "urn:ex:john", "urn:ex:jonas", "urn:ex:kim"}, ids(got))

	got = find(t, e, querybuilder.FindOptions{Where: map[string]any{"type": employee}})
	assert.ElementsMatch(t, []string{"urn:ex:amy", "urn:ex:jonas"}, ids(got))
}

func TestFind_ContainsIgnoresCase(t *testing.T) {
	e := newCompany(t)

	got := find(t, e, querybuilder.FindOptions{Where: map[string]any{
		"type": person,
		name:   operator.Contains{Value: "Jo"},
	}})
	assert.ElementsMatch(t, []string{"urn:ex:john", "urn:ex:jonas"}, ids(got))
}

func TestFind_OrderedPage(t *testing.T) {
	e := newCompany(t)

	got := find(t, e, querybuilder.FindOptions{
		Where: map[string]any{"type": person},
		Order: []querybuilder.OrderTerm{querybuilder.Desc(name)},
		Limit: 2,
	})
	// Lexical order puts lower-case "jonas" after the capitalized names.
	assert.Equal(t, []string{"urn:ex:jonas", "urn:ex:kim"}, ids(got))

	got = find(t, e, querybuilder.FindOptions{
		Where:  map[string]any{"type": person},
		Order:  []querybuilder.OrderTerm{querybuilder.Asc(name)},
		Limit:  2,
		Offset: 10,
	})
	assert.Empty(t, got)
}

func TestFind_ExpandsRelations(t *testing.T) {
	e := newCompany(t)

	got := find(t, e, querybuilder.FindOptions{
		Where:     map[string]any{"id": "urn:ex:john"},
		Relations: map[string]any{knows: true},
	})
	require.Len(t, got, 1)

	friend, ok := got[0].First(knows).(*entity.Entity)
	require.True(t, ok, "related entity is embedded")
	assert.Equal(t, "urn:ex:amy", friend.ID)
	assert.Equal(t, str("Amy"), friend.First(name))
}

func TestFind_SelectLimitsProperties(t *testing.T) {
	e := newCompany(t)

	got := find(t, e, querybuilder.FindOptions{
		Where:  map[string]any{"id": "urn:ex:john"},
		Select: []string{name},
	})
	require.Len(t, got, 1)
	assert.Equal(t, []string{name}, got[0].Predicates())
}

func TestCountAndExists(t *testing.T) {
	e := newCompany(t)
	ctx := context.Background()

	b := querybuilder.NewBuilder()
	data, err := b.BuildEntitySelectPatterns(querybuilder.FindOptions{Where: map[string]any{"type": person}})
	require.NoError(t, err)
	res, err := e.Select(ctx, b.BuildCountQuery(data))
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	assert.Equal(t, rdf.IntegerLiteral(4), res.Bindings[0][string(querybuilder.CountVariable)])

	b = querybuilder.NewBuilder()
	data, err = b.BuildEntitySelectPatterns(querybuilder.FindOptions{Where: map[string]any{"id": "urn:ex:nobody"}})
	require.NoError(t, err)
	ok, err := e.Ask(ctx, b.BuildAskQuery(data))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDestroyRemovesReferences(t *testing.T) {
	e := newCompany(t)
	ctx := context.Background()

	upd, err := (&querybuilder.UpdateBuilder{}).BuildDestroy([]string{"urn:ex:amy"})
	require.NoError(t, err)
	require.NoError(t, e.Update(ctx, upd))

	got := find(t, e, querybuilder.FindOptions{Where: map[string]any{"id": "urn:ex:john"}})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Get(knows))

	got = find(t, e, querybuilder.FindOptions{Where: map[string]any{"id": "urn:ex:amy"}})
	assert.Empty(t, got)
}
