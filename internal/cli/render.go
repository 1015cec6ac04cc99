package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// writeEntities writes entities as an indented property listing.
func writeEntities(f *OutputFormatter, entities []*entity.Entity) {
	for i, e := range entities {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		f.Heading("%s", e.ID)
		writeProperties(f.Writer, e, "  ", map[*entity.Entity]bool{})
	}
}

func writeProperties(w io.Writer, e *entity.Entity, indent string, seen map[*entity.Entity]bool) {
	if seen[e] {
		return
	}
	seen[e] = true
	defer delete(seen, e)

	for _, pred := range e.Predicates() {
		for _, v := range e.Get(pred) {
			switch val := v.(type) {
			case *entity.Entity:
				fmt.Fprintf(w, "%s%s: <%s>\n", indent, pred, val.ID)
				writeProperties(w, val, indent+"  ", seen)
			case entity.Reference:
				fmt.Fprintf(w, "%s%s: <%s>\n", indent, pred, string(val))
			case entity.Literal:
				fmt.Fprintf(w, "%s%s: %s\n", indent, pred, val.Term().String())
			}
		}
	}
}

// writeTable renders rows under header with pterm.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func termText(t rdf.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// writeRawResult writes raw query results: a table for SELECT,
// N-Triples for CONSTRUCT and true/false for ASK.
func writeRawResult(w io.Writer, res *executor.RawResult) error {
	switch res.Form {
	case queryir.SelectQuery:
		rows := make([][]string, 0, len(res.Bindings))
		for _, b := range res.Bindings {
			row := make([]string, len(res.Variables))
			for i, name := range res.Variables {
				if t, ok := b.Get(name); ok {
					row[i] = termText(t)
				}
			}
			rows = append(rows, row)
		}
		header := make([]string, len(res.Variables))
		for i, name := range res.Variables {
			header[i] = "?" + name
		}
		return writeTable(w, header, rows)
	case queryir.ConstructQuery:
		for _, t := range res.Triples {
			if _, err := fmt.Fprintln(w, t.String()); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, res.Boolean)
		return err
	}
}

// rawResultJSON converts raw results into JSON-friendly values with terms
// in their SPARQL text form.
func rawResultJSON(res *executor.RawResult) map[string]any {
	out := map[string]any{"form": res.Form}
	switch res.Form {
	case queryir.SelectQuery:
		rows := make([]map[string]string, 0, len(res.Bindings))
		for _, b := range res.Bindings {
			row := make(map[string]string, len(b))
			for name, t := range b {
				row[name] = termText(t)
			}
			rows = append(rows, row)
		}
		out["variables"] = res.Variables
		out["bindings"] = rows
	case queryir.ConstructQuery:
		triples := make([]string, 0, len(res.Triples))
		for _, t := range res.Triples {
			triples = append(triples, t.String())
		}
		out["triples"] = triples
	default:
		out["boolean"] = res.Boolean
	}
	return out
}

// groupRow is the JSON form of a group.
type groupRow struct {
	Groups    map[string]string `json:"groups"`
	Count     int               `json:"count"`
	EntityIDs []string          `json:"entityIds"`
}

func groupRows(groups []adapter.GroupResult) []groupRow {
	rows := make([]groupRow, 0, len(groups))
	for _, g := range groups {
		values := make(map[string]string, len(g.Groups))
		for path, t := range g.Groups {
			values[path] = termValue(t)
		}
		rows = append(rows, groupRow{Groups: values, Count: g.Count, EntityIDs: g.EntityIDs})
	}
	return rows
}

// termValue is the bare value of a term: the IRI or the lexical form.
func termValue(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return string(v)
	case rdf.Literal:
		return v.Value
	default:
		return termText(t)
	}
}

func writeGroups(w io.Writer, groups []adapter.GroupResult) error {
	var paths []string
	seen := map[string]bool{}
	for _, g := range groups {
		for path := range g.Groups {
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}
	sort.Strings(paths)

	header := append(append([]string(nil), paths...), "count", "entities")
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		row := make([]string, 0, len(header))
		for _, path := range paths {
			row = append(row, termValue(g.Groups[path]))
		}
		row = append(row, fmt.Sprint(g.Count), strings.Join(g.EntityIDs, " "))
		rows = append(rows, row)
	}
	return writeTable(w, header, rows)
}
