package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/querybuilder"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

// Vocabulary of the fixture datasets.
const (
	Schema       = "https://schema.org/"
	Person       = Schema + "Person"
	Employee     = Schema + "Employee"
	Manager      = Schema + "Manager"
	Organization = Schema + "Organization"
	Name         = Schema + "name"
	Knows        = Schema + "knows"
	WorksFor     = Schema + "worksFor"
	BirthDate    = Schema + "birthDate"
)

// Str is a plain string property value.
func Str(s string) entity.Value {
	return entity.Literal(rdf.StringLiteral(s))
}

// Ref is a reference property value.
func Ref(id string) entity.Value {
	return entity.Reference(id)
}

// Company returns a small class hierarchy and five entities.
//
// Employee is a subclass of Person and Manager a subclass of Employee.
// John (Person), jonas (Employee), Amy (Manager) and Kim (Person) are
// people; Acme Joinery is an Organization. John knows Amy, and jonas and
// Amy work for Acme.
func Company() []*entity.Entity {
	return []*entity.Entity{
		entity.New(Employee).Add(rdf.RDFSSubClassOf, Ref(Person)),
		entity.New(Manager).Add(rdf.RDFSSubClassOf, Ref(Employee)),
		entity.New("urn:ex:john").
			Add(rdf.RDFType, Ref(Person)).
			Add(Name, Str("John")).
			Add(Knows, Ref("urn:ex:amy")).
			Add(BirthDate, entity.Literal(rdf.Literal{Value: "1980-04-02", Datatype: rdf.XSDDate})),
		entity.New("urn:ex:jonas").
			Add(rdf.RDFType, Ref(Employee)).
			Add(Name, Str("jonas")).
			Add(WorksFor, Ref("urn:ex:acme")),
		entity.New("urn:ex:amy").
			Add(rdf.RDFType, Ref(Manager)).
			Add(Name, Str("Amy")).
			Add(WorksFor, Ref("urn:ex:acme")),
		entity.New("urn:ex:kim").
			Add(rdf.RDFType, Ref(Person)).
			Add(Name, Str("Kim")),
		entity.New("urn:ex:acme").
			Add(rdf.RDFType, Ref(Organization)).
			Add(Name, Str("Acme Joinery")),
	}
}

// People lists the identifiers of the Company people.
var People = []string{"urn:ex:amy", "urn:ex:john", "urn:ex:jonas", "urn:ex:kim"}

// NewMemoryExecutor returns an in-memory executor holding entities. It is
// closed when the test ends.
func NewMemoryExecutor(t testing.TB, entities ...*entity.Entity) *executor.MemoryExecutor {
	t.Helper()
	m, err := executor.NewMemoryExecutor(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	if len(entities) > 0 {
		u, _, err := (&querybuilder.UpdateBuilder{}).BuildSave(entities)
		require.NoError(t, err)
		require.NoError(t, m.ExecuteUpdate(context.Background(), u))
	}
	return m
}
