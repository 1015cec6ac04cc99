package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/store"
)

// DefaultMaxSolutions is the default solution budget of one query or
// update. It bounds the total number of intermediate solutions produced
// while evaluating patterns.
const DefaultMaxSolutions = 5_000_000

// Engine evaluates query documents against a quad store.
//
// Thread-safety: Engine holds no mutable state of its own; every call
// creates its own evaluation. Concurrent reads are safe. Concurrent reads
// racing updates see either the state before or after each store
// statement, never a partial statement.
type Engine struct {
	store        *store.Store
	maxSolutions int
	log          *logrus.Entry
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxSolutions sets the solution budget per call.
//
// Default: 5,000,000 (DefaultMaxSolutions)
// Use a small value in tests to exercise quota enforcement.
func WithMaxSolutions(n int) Option {
	return func(e *Engine) {
		e.maxSolutions = n
	}
}

// WithLogger sets the logger used for evaluation diagnostics.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		maxSolutions: DefaultMaxSolutions,
		log:          logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying quad store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Results is the buffered result of a SELECT query.
type Results struct {
	// Variables are the projected variable names in projection order.
	Variables []string

	// Bindings holds one entry per solution. Unbound variables are absent.
	Bindings []rdf.Binding
}

// Select evaluates a SELECT query.
func (e *Engine) Select(ctx context.Context, q *queryir.Query) (*Results, error) {
	if err := e.check(q, queryir.SelectQuery); err != nil {
		return nil, err
	}
	ev := e.newEvaluation()
	res, err := ev.selectQuery(ctx, q, unionScope)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"form":      "select",
		"solutions": len(res.Bindings),
		"evaluated": ev.quota.current,
	}).Debug("query evaluated")
	return res, nil
}

// Construct evaluates a CONSTRUCT query and returns the distinct triples
// instantiated from its template, in first-produced order.
func (e *Engine) Construct(ctx context.Context, q *queryir.Query) ([]rdf.Triple, error) {
	if err := e.check(q, queryir.ConstructQuery); err != nil {
		return nil, err
	}
	ev := e.newEvaluation()
	sols, err := ev.evalGroup(ctx, q.Where, []rdf.Binding{{}}, unionScope)
	if err != nil {
		return nil, err
	}
	sols, err = ev.orderAndSlice(ctx, q, sols)
	if err != nil {
		return nil, err
	}
	triples := instantiate(q.Template, sols)
	e.log.WithFields(logrus.Fields{
		"form":      "construct",
		"solutions": len(sols),
		"triples":   len(triples),
	}).Debug("query evaluated")
	return triples, nil
}

// Ask evaluates an ASK query.
func (e *Engine) Ask(ctx context.Context, q *queryir.Query) (bool, error) {
	if err := e.check(q, queryir.AskQuery); err != nil {
		return false, err
	}
	ev := e.newEvaluation()
	sols, err := ev.evalGroup(ctx, q.Where, []rdf.Binding{{}}, unionScope)
	if err != nil {
		return false, err
	}
	return len(sols) > 0, nil
}

func (e *Engine) check(q *queryir.Query, want queryir.QueryType) error {
	if q == nil {
		return &EvaluationError{Code: ErrCodeInvalidQuery, Message: "nil query"}
	}
	if q.Type != want {
		return &EvaluationError{Code: ErrCodeInvalidQuery, Message: fmt.Sprintf("expected %s query, got %s", want, q.Type)}
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return &EvaluationError{Code: ErrCodeInvalidQuery, Message: err.Error()}
	}
	return nil
}

// evaluation is the state of one call.
type evaluation struct {
	store *store.Store
	quota *solutionQuota
	log   *logrus.Entry

	// graphs caches the named graph list for variable GRAPH patterns.
	graphs []rdf.IRI
}

func (e *Engine) newEvaluation() *evaluation {
	return &evaluation{
		store: e.store,
		quota: newSolutionQuota(e.maxSolutions),
		log:   e.log,
	}
}

func (ev *evaluation) namedGraphs(ctx context.Context) ([]rdf.IRI, error) {
	if ev.graphs == nil {
		graphs, err := ev.store.Graphs(ctx)
		if err != nil {
			return nil, err
		}
		ev.graphs = graphs
	}
	return ev.graphs, nil
}

// solutionQuota tracks the number of intermediate solutions produced by
// one evaluation and enforces the budget.
type solutionQuota struct {
	limit   int
	current int
}

func newSolutionQuota(limit int) *solutionQuota {
	return &solutionQuota{limit: limit}
}

// add records n more solutions. Returns a quota error once the budget is
// exceeded. A limit of zero or less disables the budget.
func (q *solutionQuota) add(n int) error {
	q.current += n
	if q.limit > 0 && q.current > q.limit {
		return NewQuotaError(q.current, q.limit)
	}
	return nil
}
