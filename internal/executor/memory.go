package executor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/roach88/quadquery/internal/engine"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/querysparql"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/sparqlparser"
	"github.com/roach88/quadquery/internal/store"
)

// MemoryExecutor evaluates documents with the embedded engine.
//
// Thread-safety: safe for concurrent use. The store serializes
// statements; the engine holds no state between calls.
type MemoryExecutor struct {
	store    *store.Store
	engine   *engine.Engine
	compiler *querysparql.SPARQLCompiler
	log      *logrus.Entry
}

var _ Executor = (*MemoryExecutor)(nil)

// NewMemoryExecutor opens the store at path and returns an executor over
// it. Use store.MemoryPath for a private in-memory store.
func NewMemoryExecutor(path string, opts ...Option) (*MemoryExecutor, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, &ExecutionError{Backend: BackendMemory, Operation: "open", Err: err}
	}
	return NewMemoryExecutorForStore(s, opts...), nil
}

// NewMemoryExecutorForStore returns an executor over an open store. The
// executor takes ownership of s: Close closes it.
func NewMemoryExecutorForStore(s *store.Store, opts ...Option) *MemoryExecutor {
	o := newOptions(opts)
	engineOpts := append([]engine.Option{engine.WithLogger(o.log)}, o.engineOpts...)
	return &MemoryExecutor{
		store:    s,
		engine:   engine.New(s, engineOpts...),
		compiler: querysparql.NewSPARQLCompiler(),
		log:      o.log,
	}
}

// Store returns the underlying quad store.
func (m *MemoryExecutor) Store() *store.Store {
	return m.store
}

// Close closes the store.
func (m *MemoryExecutor) Close() error {
	return m.store.Close()
}

// queryText renders q for the debug log.
func (m *MemoryExecutor) queryText(q *queryir.Query) func() string {
	return func() string {
		text, err := m.compiler.Compile(q)
		if err != nil {
			return "<" + err.Error() + ">"
		}
		return text
	}
}

func (m *MemoryExecutor) updateText(u *queryir.Update) func() string {
	return func() string {
		text, err := m.compiler.CompileUpdate(u)
		if err != nil {
			return "<" + err.Error() + ">"
		}
		return text
	}
}

func (m *MemoryExecutor) run(ctx context.Context, op string, text func() string, fn func(ctx context.Context) error) error {
	return wrap(BackendMemory, op, instrument(ctx, m.log, BackendMemory, op, text, fn))
}

// ExecuteSelect implements Executor.
func (m *MemoryExecutor) ExecuteSelect(ctx context.Context, q *queryir.Query) ([]rdf.Binding, error) {
	var rows []rdf.Binding
	err := m.run(ctx, "select", m.queryText(q), func(ctx context.Context) error {
		res, err := m.engine.Select(ctx, q)
		if err != nil {
			return err
		}
		rows = res.Bindings
		return nil
	})
	return rows, err
}

// ExecuteConstruct implements Executor.
func (m *MemoryExecutor) ExecuteConstruct(ctx context.Context, q *queryir.Query) ([]rdf.Triple, error) {
	var triples []rdf.Triple
	err := m.run(ctx, "construct", m.queryText(q), func(ctx context.Context) error {
		var err error
		triples, err = m.engine.Construct(ctx, q)
		return err
	})
	return triples, err
}

// ExecuteAsk implements Executor.
func (m *MemoryExecutor) ExecuteAsk(ctx context.Context, q *queryir.Query) (bool, error) {
	var ok bool
	err := m.run(ctx, "ask", m.queryText(q), func(ctx context.Context) error {
		var err error
		ok, err = m.engine.Ask(ctx, q)
		return err
	})
	return ok, err
}

// ExecuteSelectCount implements Executor.
func (m *MemoryExecutor) ExecuteSelectCount(ctx context.Context, q *queryir.Query) (int, error) {
	var n int
	err := m.run(ctx, "count", m.queryText(q), func(ctx context.Context) error {
		res, err := m.engine.Select(ctx, q)
		if err != nil {
			return err
		}
		n, err = countOf(q, res.Bindings)
		return err
	})
	return n, err
}

// ExecuteUpdate implements Executor.
func (m *MemoryExecutor) ExecuteUpdate(ctx context.Context, u *queryir.Update) error {
	err := m.run(ctx, "update", m.updateText(u), func(ctx context.Context) error {
		return m.engine.Update(ctx, u)
	})
	if err == nil {
		m.recordSize(ctx)
	}
	return err
}

// recordSize publishes the store size. A failed count only logs.
func (m *MemoryExecutor) recordSize(ctx context.Context) {
	n, err := m.store.Count(ctx)
	if err != nil {
		m.log.WithError(err).Warn("counting stored quads")
		return
	}
	metrics.storeQuads.Set(float64(n))
}

// ExecuteRawQuery parses text and evaluates it. Only the SPARQL subset
// sparqlparser accepts is supported.
func (m *MemoryExecutor) ExecuteRawQuery(ctx context.Context, text string) (*RawResult, error) {
	var out *RawResult
	err := m.run(ctx, "raw_query", func() string { return text }, func(ctx context.Context) error {
		q, err := sparqlparser.ParseQuery(text)
		if err != nil {
			return err
		}
		out = &RawResult{Form: q.Type}
		switch q.Type {
		case queryir.SelectQuery:
			res, err := m.engine.Select(ctx, q)
			if err != nil {
				return err
			}
			out.Variables, out.Bindings = res.Variables, res.Bindings
		case queryir.ConstructQuery:
			out.Triples, err = m.engine.Construct(ctx, q)
		case queryir.AskQuery:
			out.Boolean, err = m.engine.Ask(ctx, q)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteRawUpdate parses text and applies it.
func (m *MemoryExecutor) ExecuteRawUpdate(ctx context.Context, text string) error {
	err := m.run(ctx, "raw_update", func() string { return text }, func(ctx context.Context) error {
		u, err := sparqlparser.ParseUpdate(text)
		if err != nil {
			return err
		}
		return m.engine.Update(ctx, u)
	})
	if err == nil {
		m.recordSize(ctx)
	}
	return err
}
