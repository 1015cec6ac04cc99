package harness

import (
	"context"
	"sync"

	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/querysparql"
	"github.com/roach88/quadquery/internal/rdf"
)

// recorder is an executor that records the SPARQL text of every document
// before passing it on.
//
// Thread-safety: safe for concurrent use; events are appended under mu.
type recorder struct {
	inner  executor.Executor
	sparql *querysparql.SPARQLCompiler

	mu     sync.Mutex
	step   string
	seq    int64
	events []TraceEvent
}

var _ executor.Executor = (*recorder)(nil)

func newRecorder(inner executor.Executor) *recorder {
	return &recorder{inner: inner, sparql: querysparql.NewSPARQLCompiler()}
}

// begin attributes subsequent documents to step.
func (r *recorder) begin(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = step
}

// trace returns a copy of the recorded events.
func (r *recorder) trace() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent(nil), r.events...)
}

func (r *recorder) record(form, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.events = append(r.events, TraceEvent{Step: r.step, Form: form, SPARQL: text, Seq: r.seq})
}

func (r *recorder) recordQuery(form string, q *queryir.Query) {
	text, err := r.sparql.Compile(q)
	if err != nil {
		text = "# " + err.Error()
	}
	r.record(form, text)
}

func (r *recorder) ExecuteSelect(ctx context.Context, q *queryir.Query) ([]rdf.Binding, error) {
	r.recordQuery(FormSelect, q)
	return r.inner.ExecuteSelect(ctx, q)
}

func (r *recorder) ExecuteConstruct(ctx context.Context, q *queryir.Query) ([]rdf.Triple, error) {
	r.recordQuery(FormConstruct, q)
	return r.inner.ExecuteConstruct(ctx, q)
}

func (r *recorder) ExecuteAsk(ctx context.Context, q *queryir.Query) (bool, error) {
	r.recordQuery(FormAsk, q)
	return r.inner.ExecuteAsk(ctx, q)
}

func (r *recorder) ExecuteSelectCount(ctx context.Context, q *queryir.Query) (int, error) {
	r.recordQuery(FormCount, q)
	return r.inner.ExecuteSelectCount(ctx, q)
}

func (r *recorder) ExecuteUpdate(ctx context.Context, u *queryir.Update) error {
	text, err := r.sparql.CompileUpdate(u)
	if err != nil {
		text = "# " + err.Error()
	}
	r.record(FormUpdate, text)
	return r.inner.ExecuteUpdate(ctx, u)
}

func (r *recorder) ExecuteRawQuery(ctx context.Context, text string) (*executor.RawResult, error) {
	r.record(FormRaw, text)
	return r.inner.ExecuteRawQuery(ctx, text)
}

func (r *recorder) ExecuteRawUpdate(ctx context.Context, text string) error {
	r.record(FormRaw, text)
	return r.inner.ExecuteRawUpdate(ctx, text)
}

func (r *recorder) Close() error {
	return r.inner.Close()
}
