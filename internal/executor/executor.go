// Package executor runs query and update documents against a backend.
//
// Two backends are provided. MemoryExecutor evaluates documents with the
// embedded engine over a SQLite quad store. RemoteExecutor sends compiled
// SPARQL text to an HTTP endpoint speaking the SPARQL 1.1 protocol.
//
// Both buffer results fully; no call streams. Every call is counted and
// timed in Prometheus metrics and wrapped in an opentracing span.
package executor

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/quadquery/internal/engine"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// Executor runs query documents and raw SPARQL text.
type Executor interface {
	// ExecuteSelect returns one binding per solution of a SELECT query.
	ExecuteSelect(ctx context.Context, q *queryir.Query) ([]rdf.Binding, error)

	// ExecuteConstruct returns the triples a CONSTRUCT query produces.
	ExecuteConstruct(ctx context.Context, q *queryir.Query) ([]rdf.Triple, error)

	// ExecuteAsk evaluates an ASK query.
	ExecuteAsk(ctx context.Context, q *queryir.Query) (bool, error)

	// ExecuteSelectCount runs a SELECT query projecting a single count and
	// returns it. A query with no solutions counts zero.
	ExecuteSelectCount(ctx context.Context, q *queryir.Query) (int, error)

	// ExecuteUpdate applies an update document.
	ExecuteUpdate(ctx context.Context, u *queryir.Update) error

	// ExecuteRawQuery runs SPARQL query text.
	ExecuteRawQuery(ctx context.Context, text string) (*RawResult, error)

	// ExecuteRawUpdate runs SPARQL update text.
	ExecuteRawUpdate(ctx context.Context, text string) error

	// Close releases the backend.
	Close() error
}

// Backend names an executor implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRemote Backend = "remote"
)

// RawResult is the result of raw query text. Form says which of the
// other fields is populated.
type RawResult struct {
	Form queryir.QueryType

	// Variables and Bindings hold SELECT results.
	Variables []string
	Bindings  []rdf.Binding

	// Triples holds CONSTRUCT results.
	Triples []rdf.Triple

	// Boolean holds the ASK result.
	Boolean bool
}

// Option configures an executor.
type Option func(*options)

type options struct {
	log            *logrus.Entry
	engineOpts     []engine.Option
	updateEndpoint string
	client         *http.Client
	timeout        time.Duration
	headers        map[string]string
}

func newOptions(opts []Option) *options {
	o := &options{
		log:     logrus.NewEntry(logrus.StandardLogger()),
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithEngineOptions passes options to the embedded engine of a
// MemoryExecutor.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// WithUpdateEndpoint sets the update endpoint of a RemoteExecutor.
//
// Default: the query endpoint
func WithUpdateEndpoint(endpoint string) Option {
	return func(o *options) {
		o.updateEndpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client of a RemoteExecutor.
//
// Default: a new http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithTimeout bounds each call of a RemoteExecutor. Zero means the
// caller's context is the only bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHeader adds a header to every request of a RemoteExecutor.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers[key] = value
	}
}

// countOf reads the count a count query projects from its first
// solution.
func countOf(q *queryir.Query, rows []rdf.Binding) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vars := q.ProjectedVariables()
	if len(vars) == 0 {
		return 0, errorf("count query projects no variable")
	}
	t, ok := rows[0].Get(vars[0])
	if !ok {
		return 0, nil
	}
	lit, ok := t.(rdf.Literal)
	if !ok {
		return 0, errorf("count variable ?%s is bound to %s", vars[0], t)
	}
	n, ok := lit.Int()
	if !ok {
		return 0, errorf("count variable ?%s is not an integer: %s", vars[0], lit)
	}
	return int(n), nil
}
