// Package dataset reads dataset files and loads them into an adapter.
//
// N-Quads (.nq) and N-Triples (.nt) files are written as raw quads.
// N-Triples are placed in the graph named by their subject, the graph an
// entity owns. YAML and JSON files (.yaml, .yml, .json) hold entity
// documents, a list of objects or an object with an "entities" list,
// saved through the adapter.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/sparqlparser"
)

// Dataset is the content of one dataset file: raw quads from N-Quads or
// N-Triples, or entity documents from YAML or JSON.
type Dataset struct {
	Path     string
	Quads    []rdf.Quad
	Entities []*entity.Entity
}

// Stats summarises a load.
type Stats struct {
	Files    int `json:"files"`
	Quads    int `json:"quads"`
	Entities int `json:"entities"`
}

// Read parses a dataset file by extension.
func Read(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Path: path}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".nq":
		ds.Quads, err = sparqlparser.ParseNQuads(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".nt":
		triples, err := sparqlparser.ParseNTriples(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for i, t := range triples {
			g, ok := t.Subject.(rdf.IRI)
			if !ok {
				return nil, fmt.Errorf("%s: triple %d: subject %s has no graph of its own; use N-Quads", path, i+1, t.Subject)
			}
			ds.Quads = append(ds.Quads, rdf.Quad{Triple: t, Graph: g})
		}
	case ".yaml", ".yml", ".json":
		ds.Entities, err = DecodeEntities(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unknown dataset extension %q (expected .nq, .nt, .yaml, .yml or .json)", path, filepath.Ext(path))
	}
	return ds, nil
}

// DecodeEntities reads entity documents. JSON is decoded as YAML so
// integers stay integers.
func DecodeEntities(data []byte) ([]*entity.Entity, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if m, ok := raw.(map[string]any); ok {
		raw = m["entities"]
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of entities, got %T", raw)
	}

	maps := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entity %d: expected an object, got %T", i, item)
		}
		maps = append(maps, m)
	}
	return FromMaps(maps)
}

// FromMaps converts entity objects with entity.FromMap.
func FromMaps(maps []map[string]any) ([]*entity.Entity, error) {
	out := make([]*entity.Entity, 0, len(maps))
	for i, m := range maps {
		e, err := entity.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Write stores one dataset: quads as a single INSERT DATA, entities with
// the adapter's save.
func Write(ctx context.Context, a *adapter.Adapter, ds *Dataset) error {
	if len(ds.Quads) > 0 {
		u := &queryir.Update{Operations: []queryir.UpdateOperation{queryir.InsertData{Quads: ds.Quads}}}
		if err := a.Executor().ExecuteUpdate(ctx, u); err != nil {
			return fmt.Errorf("%s: %w", ds.Path, err)
		}
	}
	if len(ds.Entities) > 0 {
		if _, err := a.Save(ctx, ds.Entities...); err != nil {
			return fmt.Errorf("%s: %w", ds.Path, err)
		}
	}
	return nil
}

// Load reads and writes dataset files concurrently, at most parallel at
// a time. Each file is written as its own update.
func Load(ctx context.Context, a *adapter.Adapter, paths []string, parallel int) (Stats, error) {
	var quads, entities atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, path := range paths {
		g.Go(func() error {
			ds, err := Read(path)
			if err != nil {
				return err
			}
			if err := Write(gctx, a, ds); err != nil {
				return err
			}
			quads.Add(int64(len(ds.Quads)))
			entities.Add(int64(len(ds.Entities)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return Stats{Files: len(paths), Quads: int(quads.Load()), Entities: int(entities.Load())}, nil
}
