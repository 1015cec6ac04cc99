package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/rdf"
)

const (
	name   = "https://schema.org/name"
	knows  = "https://schema.org/knows"
	author = "https://schema.org/author"
	age    = "https://schema.org/age"
)

func triple(s rdf.Term, p string, o rdf.Term) rdf.Triple {
	return rdf.Triple{Subject: s, Predicate: rdf.IRI(p), Object: o}
}

func marker(id string) rdf.Triple {
	return triple(rdf.IRI(id), rdf.MatchedEntity, rdf.True)
}

func TestReassemble_RootsAndOrder(t *testing.T) {
	triples := []rdf.Triple{
		marker("urn:b"),
		marker("urn:a"),
		triple(rdf.IRI("urn:a"), name, rdf.StringLiteral("Alice")),
		triple(rdf.IRI("urn:b"), name, rdf.StringLiteral("Bob")),
		triple(rdf.IRI("urn:c"), name, rdf.StringLiteral("Carol")),
	}

	t.Run("sorted by identifier without order", func(t *testing.T) {
		got := Reassemble(triples, nil, nil)
		require.Len(t, got, 2)
		assert.Equal(t, "urn:a", got[0].ID)
		assert.Equal(t, "urn:b", got[1].ID)
		assert.NotContains(t, got[0].Properties, rdf.MatchedEntity)
	})

	t.Run("follows explicit order and skips missing", func(t *testing.T) {
		got := Reassemble(triples, nil, []string{"urn:b", "urn:x", "urn:a", "urn:b"})
		require.Len(t, got, 2)
		assert.Equal(t, "urn:b", got[0].ID)
		assert.Equal(t, "urn:a", got[1].ID)
	})

	t.Run("empty", func(t *testing.T) {
		got := Reassemble(nil, nil, nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestReassemble_MultiValuedProperties(t *testing.T) {
	a := rdf.IRI("urn:a")
	triples := []rdf.Triple{
		marker("urn:a"),
		triple(a, knows, rdf.IRI("urn:c")),
		triple(a, knows, rdf.IRI("urn:b")),
		triple(a, knows, rdf.IRI("urn:b")),
		triple(a, age, rdf.IntegerLiteral(30)),
	}

	got := Reassemble(triples, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, []Value{Reference("urn:b"), Reference("urn:c")}, got[0].Get(knows))
	assert.Equal(t, []Value{Literal(rdf.IntegerLiteral(30))}, got[0].Get(age))
}

func TestReassemble_ForwardFrames(t *testing.T) {
	a, b, c := rdf.IRI("urn:a"), rdf.IRI("urn:b"), rdf.IRI("urn:c")
	triples := []rdf.Triple{
		marker("urn:a"),
		triple(a, knows, b),
		triple(b, name, rdf.StringLiteral("Bob")),
		triple(b, knows, c),
		triple(c, name, rdf.StringLiteral("Carol")),
		triple(c, knows, a),
	}

	t.Run("one level", func(t *testing.T) {
		got := Reassemble(triples, []Frame{{Predicate: knows}}, nil)
		require.Len(t, got, 1)

		bob, ok := got[0].First(knows).(*Entity)
		require.True(t, ok)
		assert.Equal(t, "urn:b", bob.ID)
		assert.Equal(t, Literal(rdf.StringLiteral("Bob")), bob.First(name))
		assert.Equal(t, Reference("urn:c"), bob.First(knows))
	})

	t.Run("cycle stays a reference", func(t *testing.T) {
		frames := []Frame{{Predicate: knows, Children: []Frame{{Predicate: knows, Children: []Frame{{Predicate: knows}}}}}}
		got := Reassemble(triples, frames, nil)
		require.Len(t, got, 1)

		bob := got[0].First(knows).(*Entity)
		carol := bob.First(knows).(*Entity)
		assert.Equal(t, "urn:c", carol.ID)
		assert.Equal(t, Reference("urn:a"), carol.First(knows))
	})

	t.Run("framed object without triples stays a reference", func(t *testing.T) {
		got := Reassemble([]rdf.Triple{marker("urn:a"), triple(a, knows, rdf.IRI("urn:z"))}, []Frame{{Predicate: knows}}, nil)
		assert.Equal(t, Reference("urn:z"), got[0].First(knows))
	})
}

func TestReassemble_InverseFrames(t *testing.T) {
	a := rdf.IRI("urn:a")
	triples := []rdf.Triple{
		marker("urn:a"),
		triple(a, name, rdf.StringLiteral("Alice")),
		triple(rdf.IRI("urn:post2"), author, a),
		triple(rdf.IRI("urn:post2"), name, rdf.StringLiteral("Second")),
		triple(rdf.IRI("urn:post1"), author, a),
		triple(rdf.IRI("urn:post1"), name, rdf.StringLiteral("First")),
	}

	got := Reassemble(triples, []Frame{{Predicate: author, Inverse: true, Name: "posts"}}, nil)
	require.Len(t, got, 1)

	posts := got[0].Get("posts")
	require.Len(t, posts, 2)
	assert.Equal(t, "urn:post1", posts[0].(*Entity).ID)
	assert.Equal(t, "urn:post2", posts[1].(*Entity).ID)
	assert.Equal(t, Reference("urn:a"), posts[0].(*Entity).First(author))
}

func TestReassemble_BlankNodesAreEmbedded(t *testing.T) {
	a := rdf.IRI("urn:a")
	addr := rdf.BlankNode("b0")
	triples := []rdf.Triple{
		marker("urn:a"),
		triple(a, "https://schema.org/address", addr),
		triple(addr, "https://schema.org/city", rdf.StringLiteral("Paris")),
	}

	got := Reassemble(triples, nil, nil)
	nested, ok := got[0].First("https://schema.org/address").(*Entity)
	require.True(t, ok)
	assert.Empty(t, nested.ID)
	assert.Equal(t, Literal(rdf.StringLiteral("Paris")), nested.First("https://schema.org/city"))
}

func TestFromMap(t *testing.T) {
	e, err := FromMap(map[string]any{
		"@id":  "urn:a",
		"type": "https://schema.org/Person",
		name:   "Alice",
		age:    30,
		knows:  []any{"urn:b", map[string]any{name: "Anon"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "urn:a", e.ID)
	assert.Equal(t, []string{"https://schema.org/Person"}, e.Types())
	assert.Equal(t, Literal(rdf.StringLiteral("Alice")), e.First(name))
	assert.Equal(t, Literal(rdf.IntegerLiteral(30)), e.First(age))
	require.Len(t, e.Get(knows), 2)
	assert.Equal(t, Reference("urn:b"), e.Get(knows)[0])
	assert.Empty(t, e.Get(knows)[1].(*Entity).ID)

	_, err = FromMap(map[string]any{"@id": 7})
	assert.Error(t, err)
}

func TestStamp(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	child := New("urn:child")
	anon := New("")
	e := New("urn:a").Set(rdf.DCTermsCreated, Literal(rdf.DateTimeLiteral(created))).Add(knows, child, anon)

	Stamp(e, now)

	assert.Equal(t, Literal(rdf.DateTimeLiteral(created)), e.First(rdf.DCTermsCreated))
	assert.Equal(t, Literal(rdf.DateTimeLiteral(now)), e.First(rdf.DCTermsModified))
	assert.Equal(t, Literal(rdf.DateTimeLiteral(now)), child.First(rdf.DCTermsCreated))
	assert.Empty(t, anon.Get(rdf.DCTermsModified))
}

func TestClone(t *testing.T) {
	e := New("urn:a").Add(knows, New("urn:b").Add(name, Literal(rdf.StringLiteral("Bob"))))
	c := e.Clone()
	c.First(knows).(*Entity).Set(name, Literal(rdf.StringLiteral("Robert")))

	assert.Equal(t, Literal(rdf.StringLiteral("Bob")), e.First(knows).(*Entity).First(name))
}

func TestMarshalJSON(t *testing.T) {
	e := New("urn:a").
		Add(name, Literal(rdf.StringLiteral("Alice"))).
		Add(age, Literal(rdf.IntegerLiteral(30))).
		Add(knows, Reference("urn:b"), Reference("urn:c")).
		Add("https://schema.org/label", Literal(rdf.Literal{Value: "chat", Language: "fr"}))

	data, err := json.Marshal(e)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"@id": "urn:a",
		"https://schema.org/name": "Alice",
		"https://schema.org/age": 30,
		"https://schema.org/knows": [{"@id": "urn:b"}, {"@id": "urn:c"}],
		"https://schema.org/label": {"@value": "chat", "@language": "fr"}
	}`, string(data))
}
