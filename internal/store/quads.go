package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/quadquery/internal/rdf"
)

// Pattern selects quads. A nil position matches anything.
//
// A nil Graph matches every graph including the default graph. Set
// NamedOnly to exclude the default graph.
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Graph     rdf.Term
	NamedOnly bool
}

// Match returns the quads matching p, ordered deterministically.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Match(ctx context.Context, p Pattern) ([]rdf.Quad, error) {
	var (
		conds []string
		args  []any
	)

	if p.Graph != nil {
		g, err := encodeGraph(p.Graph)
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		conds = append(conds, "graph = ?")
		args = append(args, g)
	} else if p.NamedOnly {
		conds = append(conds, "graph <> ''")
	}

	if p.Subject != nil {
		enc, err := encodeTerm(p.Subject)
		if err != nil {
			return nil, fmt.Errorf("match subject: %w", err)
		}
		if enc.kind == kindLiteral {
			return []rdf.Quad{}, nil
		}
		conds = append(conds, "subject_kind = ?", "subject = ?")
		args = append(args, enc.kind, enc.value)
	}

	if p.Predicate != nil {
		iri, ok := p.Predicate.(rdf.IRI)
		if !ok {
			return []rdf.Quad{}, nil
		}
		conds = append(conds, "predicate = ?")
		args = append(args, string(iri))
	}

	if p.Object != nil {
		enc, err := encodeTerm(p.Object)
		if err != nil {
			return nil, fmt.Errorf("match object: %w", err)
		}
		conds = append(conds, "object_kind = ?", "object_value = ?", "object_datatype = ?", "object_lang = ?")
		args = append(args, enc.kind, enc.value, enc.datatype, enc.lang)
	}

	query := `
		SELECT graph, subject_kind, subject, predicate, object_kind, object_value, object_datatype, object_lang
		FROM quads`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += `
		ORDER BY graph COLLATE BINARY, subject COLLATE BINARY, predicate COLLATE BINARY,
		         object_kind, object_value COLLATE BINARY, object_datatype, object_lang`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quads: %w", err)
	}
	defer rows.Close()

	quads := []rdf.Quad{}
	for rows.Next() {
		q, err := scanQuad(rows)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quads: %w", err)
	}

	return quads, nil
}

func scanQuad(rows *sql.Rows) (rdf.Quad, error) {
	var (
		graph, subject, predicate   string
		objectValue, datatype, lang string
		subjectKind, objectKind     int
	)
	if err := rows.Scan(&graph, &subjectKind, &subject, &predicate, &objectKind, &objectValue, &datatype, &lang); err != nil {
		return rdf.Quad{}, fmt.Errorf("scan quad: %w", err)
	}
	s, err := decodeTerm(subjectKind, subject, "", "")
	if err != nil {
		return rdf.Quad{}, err
	}
	o, err := decodeTerm(objectKind, objectValue, datatype, lang)
	if err != nil {
		return rdf.Quad{}, err
	}
	return rdf.NewQuad(s, rdf.IRI(predicate), o, decodeGraph(graph)), nil
}

// Insert adds quads. Quads already present are ignored.
func (s *Store) Insert(ctx context.Context, quads []rdf.Quad) error {
	return s.Apply(ctx, nil, quads)
}

// Delete removes quads. Quads not present are ignored.
func (s *Store) Delete(ctx context.Context, quads []rdf.Quad) error {
	return s.Apply(ctx, quads, nil)
}

// Apply removes deletes and then adds inserts in one transaction.
func (s *Store) Apply(ctx context.Context, deletes, inserts []rdf.Quad) error {
	if len(deletes) == 0 && len(inserts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(deletes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			DELETE FROM quads
			WHERE graph = ? AND subject_kind = ? AND subject = ? AND predicate = ?
			  AND object_kind = ? AND object_value = ? AND object_datatype = ? AND object_lang = ?
		`)
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, q := range deletes {
			enc, err := encodeQuad(q)
			if err != nil {
				return fmt.Errorf("delete %s: %w", q, err)
			}
			if _, err := stmt.ExecContext(ctx, enc.args()...); err != nil {
				return fmt.Errorf("delete quad: %w", err)
			}
		}
	}

	if len(inserts) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO quads
			(graph, subject_kind, subject, predicate, object_kind, object_value, object_datatype, object_lang)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, q := range inserts {
			enc, err := encodeQuad(q)
			if err != nil {
				return fmt.Errorf("insert %s: %w", q, err)
			}
			if _, err := stmt.ExecContext(ctx, enc.args()...); err != nil {
				return fmt.Errorf("insert quad: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (q encodedQuad) args() []any {
	return []any{
		q.graph,
		q.subject.kind, q.subject.value,
		q.pred,
		q.object.kind, q.object.value, q.object.datatype, q.object.lang,
	}
}

// DropGraph removes every quad in the named graph and returns how many
// were removed.
func (s *Store) DropGraph(ctx context.Context, graph rdf.IRI) (int64, error) {
	if graph == "" {
		return 0, fmt.Errorf("drop graph: empty graph name")
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM quads WHERE graph = ?", string(graph))
	if err != nil {
		return 0, fmt.Errorf("drop graph: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("drop graph: %w", err)
	}
	return n, nil
}

// Graphs returns the names of all non-empty named graphs in lexical order.
func (s *Store) Graphs(ctx context.Context) ([]rdf.IRI, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT graph FROM quads
		WHERE graph <> ''
		ORDER BY graph COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	graphs := []rdf.IRI{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan graph: %w", err)
		}
		graphs = append(graphs, rdf.IRI(g))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	return graphs, nil
}

// Nodes returns every distinct subject and object in the selected graph
// (nil for all graphs). Used to evaluate zero-length paths with no bound
// end.
func (s *Store) Nodes(ctx context.Context, graph rdf.Term, namedOnly bool) ([]rdf.Term, error) {
	cond := ""
	var args []any
	if graph != nil {
		g, err := encodeGraph(graph)
		if err != nil {
			return nil, fmt.Errorf("nodes: %w", err)
		}
		cond = "WHERE graph = ?"
		args = []any{g, g}
	} else if namedOnly {
		cond = "WHERE graph <> ''"
	}

	query := fmt.Sprintf(`
		SELECT subject_kind, subject, '', '' FROM quads %s
		UNION
		SELECT object_kind, object_value, object_datatype, object_lang FROM quads %s
		ORDER BY 1, 2 COLLATE BINARY, 3, 4
	`, cond, cond)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []rdf.Term{}
	for rows.Next() {
		var (
			kind                  int
			value, datatype, lang string
		)
		if err := rows.Scan(&kind, &value, &datatype, &lang); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		t, err := decodeTerm(kind, value, datatype, lang)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}
