package querysparql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

var (
	entity = rdf.Variable("entity")
	a      = rdf.IRI("urn:a")
	b      = rdf.IRI("urn:b")
)

func compileWhere(t *testing.T, patterns ...queryir.Pattern) string {
	t.Helper()
	q := &queryir.Query{Type: queryir.AskQuery, Where: patterns}
	out, err := NewSPARQLCompiler().Compile(q)
	require.NoError(t, err)
	return out
}

func TestCompile_Patterns(t *testing.T) {
	testCases := []struct {
		name    string
		pattern queryir.Pattern
		want    string
	}{
		{
			name:    "single variable values",
			pattern: queryir.Values{Variables: []rdf.Variable{entity}, Rows: [][]rdf.Term{{a}, {b}}},
			want:    "  VALUES ?entity { <urn:a> <urn:b> }\n",
		},
		{
			name: "multi variable values with undef",
			pattern: queryir.Values{
				Variables: []rdf.Variable{entity, "x"},
				Rows:      [][]rdf.Term{{a, nil}},
			},
			want: "  VALUES (?entity ?x) { (<urn:a> UNDEF) }\n",
		},
		{
			name:    "equality filter",
			pattern: queryir.Filter{Expression: queryir.Op(queryir.OpEqual, queryir.V(entity), queryir.C(a))},
			want:    "  FILTER(?entity = <urn:a>)\n",
		},
		{
			name: "negated membership",
			pattern: queryir.Filter{Expression: queryir.Op(queryir.OpNotIn,
				queryir.V(entity), queryir.C(a), queryir.C(b))},
			want: "  FILTER(?entity NOT IN (<urn:a>, <urn:b>))\n",
		},
		{
			name: "case-insensitive contains",
			pattern: queryir.Filter{Expression: queryir.Op(queryir.FuncContains,
				queryir.Op(queryir.FuncLCase, queryir.Op(queryir.FuncStr, queryir.V("o"))),
				queryir.Op(queryir.FuncLCase, queryir.C(rdf.StringLiteral("Jo"))))},
			want: "  FILTER(CONTAINS(LCASE(STR(?o)), LCASE(\"Jo\")))\n",
		},
		{
			name: "conjunction",
			pattern: queryir.Filter{Expression: queryir.And(
				queryir.Op(queryir.OpGreater, queryir.V("o"), queryir.C(rdf.IntegerLiteral(1))),
				queryir.Op(queryir.OpLess, queryir.V("o"), queryir.C(rdf.IntegerLiteral(9))),
			)},
			want: "  FILTER((?o > \"1\"^^<http://www.w3.org/2001/XMLSchema#integer>) && (?o < \"9\"^^<http://www.w3.org/2001/XMLSchema#integer>))\n",
		},
		{
			name:    "negation",
			pattern: queryir.Filter{Expression: queryir.Not(queryir.Op(queryir.OpEqual, queryir.V("o"), queryir.C(a)))},
			want:    "  FILTER(!(?o = <urn:a>))\n",
		},
		{
			name: "subclass path",
			pattern: queryir.NewBGP(queryir.TP(entity,
				queryir.Seq(queryir.PathTerm{Term: rdf.TypeIRI}, queryir.PathZeroOrMore{Path: queryir.PathTerm{Term: rdf.SubClassOfIRI}}),
				rdf.IRI("urn:Employee"))),
			want: "  ?entity <http://www.w3.org/1999/02/22-rdf-syntax-ns#type>/<http://www.w3.org/2000/01/rdf-schema#subClassOf>* <urn:Employee> .\n",
		},
		{
			name: "inverse of sequence",
			pattern: queryir.NewBGP(queryir.TP(entity,
				queryir.PathInverse{Path: queryir.Seq(queryir.PathTerm{Term: a}, queryir.PathOneOrMore{Path: queryir.PathTerm{Term: b}})},
				rdf.Variable("o"))),
			want: "  ?entity ^(<urn:a>/<urn:b>+) ?o .\n",
		},
		{
			name: "not exists",
			pattern: queryir.Filter{Expression: queryir.NotExists(
				queryir.NewBGP(queryir.T(entity, a, rdf.Variable("o"))),
				queryir.Filter{Expression: queryir.Op(queryir.OpEqual, queryir.V("o"), queryir.C(b))},
			)},
			want: "  FILTER NOT EXISTS {\n    ?entity <urn:a> ?o .\n    FILTER(?o = <urn:b>)\n  }\n",
		},
		{
			name: "union",
			pattern: queryir.Union{Alternatives: [][]queryir.Pattern{
				{queryir.NewBGP(queryir.T(entity, a, rdf.Variable("o")))},
				{queryir.NewBGP(queryir.T(entity, b, rdf.Variable("o")))},
			}},
			want: "  {\n    ?entity <urn:a> ?o .\n  } UNION {\n    ?entity <urn:b> ?o .\n  }\n",
		},
		{
			name:    "bind",
			pattern: queryir.Bind{Expression: queryir.Op(queryir.FuncStr, queryir.V(entity)), Variable: "id"},
			want:    "  BIND(STR(?entity) AS ?id)\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := compileWhere(t, tc.pattern)
			assert.Equal(t, "ASK {\n"+tc.want+"}\n", got)
		})
	}
}

func TestCompile_Aggregates(t *testing.T) {
	q := &queryir.Query{
		Type: queryir.SelectQuery,
		Projection: []queryir.Projection{
			{Variable: "g0"},
			{Variable: "count", Expression: queryir.Aggregate{Function: queryir.AggCount, Distinct: true, Expression: queryir.V(entity)}},
			{Variable: "entityIds", Expression: queryir.Aggregate{
				Function:   queryir.AggGroupConcat,
				Distinct:   true,
				Expression: queryir.Op(queryir.FuncStr, queryir.V(entity)),
				Separator:  " ",
			}},
		},
		Where:   []queryir.Pattern{queryir.NewBGP(queryir.T(entity, a, rdf.Variable("g0")))},
		GroupBy: []rdf.Variable{"g0"},
	}

	got, err := NewSPARQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT ?g0 (COUNT(DISTINCT ?entity) AS ?count) (GROUP_CONCAT(DISTINCT STR(?entity); SEPARATOR=" ") AS ?entityIds) WHERE {
  ?entity <urn:a> ?g0 .
}
GROUP BY ?g0
`, got)
}

func TestCompile_CountStar(t *testing.T) {
	q := &queryir.Query{
		Type:       queryir.SelectQuery,
		Projection: []queryir.Projection{{Variable: "count", Expression: queryir.Aggregate{Function: queryir.AggCount}}},
	}

	got, err := NewSPARQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT (COUNT(*) AS ?count) WHERE {\n}\n", got)
}

func TestCompile_Errors(t *testing.T) {
	compiler := NewSPARQLCompiler()

	_, err := compiler.Compile(nil)
	assert.Error(t, err)

	_, err = compiler.Compile(&queryir.Query{Type: "DESCRIBE"})
	assert.ErrorContains(t, err, "unsupported query type")

	_, err = compiler.Compile(&queryir.Query{Type: queryir.AskQuery, Where: []queryir.Pattern{
		queryir.Values{Variables: []rdf.Variable{entity}, Rows: [][]rdf.Term{{a, b}}},
	}})
	assert.ErrorContains(t, err, "VALUES row has 2 terms for 1 variables")

	_, err = compiler.CompileUpdate(&queryir.Update{})
	assert.Error(t, err)

	_, err = compiler.Compile(&queryir.Query{Type: queryir.SelectQuery, Projection: []queryir.Projection{
		{Variable: "m", Expression: queryir.Aggregate{Function: queryir.AggMax}},
	}})
	assert.ErrorContains(t, err, "MAX requires an argument")
}

func TestCompile_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	compiler := NewSPARQLCompiler()

	t.Run("construct_expansion", func(t *testing.T) {
		q := &queryir.Query{
			Type: queryir.ConstructQuery,
			Template: []rdf.Triple{
				{Subject: entity, Predicate: rdf.IRI(rdf.MatchedEntity), Object: rdf.True},
				{Subject: rdf.Variable("s"), Predicate: rdf.Variable("p"), Object: rdf.Variable("o")},
			},
			Where: []queryir.Pattern{
				queryir.Values{Variables: []rdf.Variable{entity}, Rows: [][]rdf.Term{{a}, {b}}},
				queryir.Graph{Name: entity, Patterns: []queryir.Pattern{
					queryir.NewBGP(queryir.T(rdf.Variable("s"), rdf.Variable("p"), rdf.Variable("o"))),
				}},
				queryir.Optional{Patterns: []queryir.Pattern{
					queryir.NewBGP(queryir.T(entity, rdf.IRI("urn:knows"), rdf.Variable("r"))),
					queryir.Graph{Name: rdf.Variable("r"), Patterns: []queryir.Pattern{
						queryir.NewBGP(queryir.T(rdf.Variable("rs"), rdf.Variable("rp"), rdf.Variable("ro"))),
					}},
				}},
			},
		}

		out, err := compiler.Compile(q)
		require.NoError(t, err)
		g.Assert(t, "construct_expansion", []byte(out))
	})

	t.Run("ordered_selection", func(t *testing.T) {
		r := rdf.Variable("r")
		v0 := rdf.Variable("v0")
		q := &queryir.Query{
			Type:       queryir.SelectQuery,
			Distinct:   true,
			Projection: []queryir.Projection{{Variable: entity}},
			Where: []queryir.Pattern{
				queryir.NewBGP(queryir.T(entity, rdf.TypeIRI, rdf.IRI("https://schema.org/Person"))),
				queryir.Optional{Patterns: []queryir.Pattern{
					queryir.NewBGP(
						queryir.T(r, rdf.IRI("urn:author"), entity),
						queryir.T(r, rdf.IRI("urn:date"), v0),
					),
				}},
			},
			GroupBy: []rdf.Variable{entity},
			OrderBy: []queryir.OrderCondition{{
				Expression: queryir.Aggregate{Function: queryir.AggMax, Expression: queryir.V(v0)},
				Descending: true,
			}},
			Limit:  10,
			Offset: 20,
		}

		out, err := compiler.Compile(q)
		require.NoError(t, err)
		g.Assert(t, "ordered_selection", []byte(out))
	})

	t.Run("save_update", func(t *testing.T) {
		u := &queryir.Update{Operations: []queryir.UpdateOperation{
			queryir.Modify{
				Delete: []rdf.Quad{rdf.NewQuad(a, rdf.Variable("p"), rdf.Variable("o"), a)},
				Where: []queryir.Pattern{queryir.Graph{Name: a, Patterns: []queryir.Pattern{
					queryir.NewBGP(queryir.T(a, rdf.Variable("p"), rdf.Variable("o"))),
				}}},
			},
			queryir.InsertData{Quads: []rdf.Quad{
				rdf.NewQuad(a, rdf.IRI("https://schema.org/name"), rdf.StringLiteral("Ada"), a),
				rdf.NewQuad(a, rdf.TypeIRI, rdf.IRI("https://schema.org/Person"), a),
			}},
		}}

		out, err := compiler.CompileUpdate(u)
		require.NoError(t, err)
		g.Assert(t, "save_update", []byte(out))
	})
}
