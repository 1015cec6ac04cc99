package querysparql

import (
	"fmt"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

func (c *SPARQLCompiler) writeUpdateOperation(w *writer, op queryir.UpdateOperation) error {
	switch operation := op.(type) {
	case queryir.InsertData:
		w.line(0, "INSERT DATA {")
		writeQuads(w, operation.Quads, 1)
		w.line(0, "}")
		return nil

	case queryir.DeleteData:
		w.line(0, "DELETE DATA {")
		writeQuads(w, operation.Quads, 1)
		w.line(0, "}")
		return nil

	case queryir.Modify:
		if len(operation.Delete) == 0 && len(operation.Insert) == 0 {
			return fmt.Errorf("DELETE/INSERT with empty templates")
		}
		if len(operation.Delete) > 0 {
			w.line(0, "DELETE {")
			writeQuads(w, operation.Delete, 1)
			w.line(0, "}")
		}
		if len(operation.Insert) > 0 {
			w.line(0, "INSERT {")
			writeQuads(w, operation.Insert, 1)
			w.line(0, "}")
		}
		w.line(0, "WHERE {")
		if err := c.writePatterns(w, operation.Where, 1); err != nil {
			return fmt.Errorf("compile update where: %w", err)
		}
		w.line(0, "}")
		return nil

	case queryir.DropGraph:
		if operation.Silent {
			w.line(0, "DROP SILENT GRAPH "+operation.Graph.String())
		} else {
			w.line(0, "DROP GRAPH "+operation.Graph.String())
		}
		return nil

	default:
		return fmt.Errorf("unsupported update operation: %T", op)
	}
}

// writeQuads renders quads grouped into GRAPH blocks. Graphs appear in the
// order they are first used; default-graph triples come first.
func writeQuads(w *writer, quads []rdf.Quad, depth int) {
	var graphs []rdf.Term
	byGraph := map[rdf.Term][]rdf.Triple{}
	for _, q := range quads {
		if q.Graph == nil {
			w.line(depth, q.Triple.String())
			continue
		}
		if _, seen := byGraph[q.Graph]; !seen {
			graphs = append(graphs, q.Graph)
		}
		byGraph[q.Graph] = append(byGraph[q.Graph], q.Triple)
	}
	for _, g := range graphs {
		w.line(depth, "GRAPH "+g.String()+" {")
		for _, t := range byGraph[g] {
			w.line(depth+1, t.String())
		}
		w.line(depth, "}")
	}
}
