package queryir

import "github.com/roach88/quadquery/internal/rdf"

// Update is an ordered list of update operations executed as one request.
// Operations run in order; there is no atomicity across them.
type Update struct {
	Operations []UpdateOperation
}

// UpdateOperation is a sealed interface over update operations.
type UpdateOperation interface {
	updateNode() // Marker method - seals interface to this package
}

// InsertData is INSERT DATA { ... }. Quads must be ground.
type InsertData struct {
	Quads []rdf.Quad
}

// DeleteData is DELETE DATA { ... }. Quads must be ground.
type DeleteData struct {
	Quads []rdf.Quad
}

// Modify is DELETE { Delete } INSERT { Insert } WHERE { Where }. Either
// template may be empty. Quad templates may contain variables bound by
// Where, including in the graph position.
type Modify struct {
	Delete []rdf.Quad
	Insert []rdf.Quad
	Where  []Pattern
}

// DropGraph is DROP [SILENT] GRAPH <Graph>.
type DropGraph struct {
	Graph  rdf.IRI
	Silent bool
}

func (InsertData) updateNode() {}
func (DeleteData) updateNode() {}
func (Modify) updateNode()     {}
func (DropGraph) updateNode()  {}
