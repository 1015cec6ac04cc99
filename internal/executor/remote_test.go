package executor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// fakeEndpoint records protocol requests and answers with canned bodies.
type fakeEndpoint struct {
	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string][]string

	status int
	body   string
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.forms = append(f.forms, r.PostForm)
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeEndpoint) respond(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func (f *fakeEndpoint) last(t *testing.T) (*http.Request, map[string][]string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1], f.forms[len(f.forms)-1]
}

func newRemote(t *testing.T, f *fakeEndpoint, opts ...Option) (*RemoteExecutor, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	r, err := NewRemoteExecutor(srv.URL+"/sparql", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, srv
}

const selectJSON = `{
  "head": {"vars": ["s", "n", "b"]},
  "results": {"bindings": [
    {"s": {"type": "uri", "value": "urn:alice"}, "n": {"type": "literal", "value": "Alice", "xml:lang": "en"}},
    {"s": {"type": "uri", "value": "urn:bob"}, "n": {"type": "literal", "value": "42", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}, "b": {"type": "bnode", "value": "x1"}},
    {"n": {"type": "typed-literal", "value": "plain", "datatype": "http://www.w3.org/2001/XMLSchema#string"}}
  ]}
}`

func TestRemoteExecutor_Select(t *testing.T) {
	f := &fakeEndpoint{body: selectJSON}
	r, _ := newRemote(t, f, WithHeader("Authorization", "Bearer token"))

	rows, err := r.ExecuteSelect(context.Background(), namesQuery())
	require.NoError(t, err)
	assert.Equal(t, []rdf.Binding{
		{"s": rdf.IRI("urn:alice"), "n": rdf.Literal{Value: "Alice", Language: "en"}},
		{"s": rdf.IRI("urn:bob"), "n": rdf.IntegerLiteral(42), "b": rdf.BlankNode("x1")},
		{"n": rdf.StringLiteral("plain")},
	}, rows)

	req, form := f.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/sparql", req.URL.Path)
	assert.Equal(t, mediaForm, req.Header.Get("Content-Type"))
	assert.Equal(t, mediaResultsJSON, req.Header.Get("Accept"))
	assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
	require.Len(t, form["query"], 1)
	assert.True(t, strings.HasPrefix(form["query"][0], "SELECT ?n WHERE {"), form["query"][0])
}

func TestRemoteExecutor_AskAndCount(t *testing.T) {
	ctx := context.Background()
	f := &fakeEndpoint{body: `{"head": {}, "boolean": true}`}
	r, _ := newRemote(t, f)

	ok, err := r.ExecuteAsk(ctx, &queryir.Query{Type: queryir.AskQuery})
	require.NoError(t, err)
	assert.True(t, ok)

	f.respond(`{"head": {"vars": ["count"]}, "results": {"bindings": [{"count": {"type": "literal", "value": "7", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}}]}}`)
	count := &queryir.Query{
		Type:       queryir.SelectQuery,
		Projection: []queryir.Projection{{Variable: "count", Expression: queryir.Aggregate{Function: queryir.AggCount}}},
		Where:      namesQuery().Where,
	}
	n, err := r.ExecuteSelectCount(ctx, count)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	f.respond(`{"head": {"vars": ["count"]}, "results": {"bindings": []}}`)
	n, err = r.ExecuteSelectCount(ctx, count)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.respond(`{"head": {}, "results": {"bindings": []}}`)
	_, err = r.ExecuteAsk(ctx, &queryir.Query{Type: queryir.AskQuery})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no boolean")
}

func TestRemoteExecutor_Construct(t *testing.T) {
	f := &fakeEndpoint{body: "<urn:a> <urn:p> \"x\" .\n<urn:a> <urn:q> <urn:b> .\n"}
	r, _ := newRemote(t, f)

	triples, err := r.ExecuteConstruct(context.Background(), &queryir.Query{
		Type:     queryir.ConstructQuery,
		Template: []rdf.Triple{{Subject: rdf.Variable("s"), Predicate: rdf.Variable("p"), Object: rdf.Variable("o")}},
		Where:    []queryir.Pattern{queryir.NewBGP(queryir.T(rdf.Variable("s"), rdf.Variable("p"), rdf.Variable("o")))},
	})
	require.NoError(t, err)
	assert.Equal(t, []rdf.Triple{
		{Subject: rdf.IRI("urn:a"), Predicate: rdf.IRI("urn:p"), Object: rdf.StringLiteral("x")},
		{Subject: rdf.IRI("urn:a"), Predicate: rdf.IRI("urn:q"), Object: rdf.IRI("urn:b")},
	}, triples)

	req, _ := f.last(t)
	assert.Equal(t, mediaNTriples, req.Header.Get("Accept"))
}

func TestRemoteExecutor_Update(t *testing.T) {
	f := &fakeEndpoint{status: http.StatusNoContent}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	r, err := NewRemoteExecutor(srv.URL+"/query", WithUpdateEndpoint(srv.URL+"/update"))
	require.NoError(t, err)

	err = r.ExecuteUpdate(context.Background(), &queryir.Update{Operations: []queryir.UpdateOperation{
		queryir.DropGraph{Graph: "urn:g", Silent: true},
	}})
	require.NoError(t, err)

	req, form := f.last(t)
	assert.Equal(t, "/update", req.URL.Path)
	assert.Equal(t, []string{"DROP SILENT GRAPH <urn:g>\n"}, form["update"])
	assert.Empty(t, req.Header.Get("Accept"))

	require.NoError(t, r.ExecuteRawUpdate(context.Background(), "CLEAR ALL"))
	_, form = f.last(t)
	assert.Equal(t, []string{"CLEAR ALL"}, form["update"])
}

func TestRemoteExecutor_RawQuery(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name   string
		text   string
		body   string
		accept string
		check  func(t *testing.T, res *RawResult)
	}{
		{
			name:   "select",
			text:   "SELECT * { ?s ?p ?o }",
			body:   selectJSON,
			accept: mediaResultsJSON,
			check: func(t *testing.T, res *RawResult) {
				assert.Equal(t, []string{"s", "n", "b"}, res.Variables)
				assert.Len(t, res.Bindings, 3)
			},
		},
		{
			name:   "ask",
			text:   "# probe\nASK { ?s ?p ?o }",
			body:   `{"boolean": false}`,
			accept: mediaResultsJSON,
			check: func(t *testing.T, res *RawResult) {
				assert.Equal(t, queryir.AskQuery, res.Form)
				assert.False(t, res.Boolean)
			},
		},
		{
			name:   "construct",
			text:   "PREFIX ex: <urn:ex#>\nCONSTRUCT WHERE { ?s ex:p ?o }",
			body:   "<urn:a> <urn:ex#p> <urn:b> .\n",
			accept: mediaNTriples,
			check: func(t *testing.T, res *RawResult) {
				assert.Len(t, res.Triples, 1)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeEndpoint{body: tc.body}
			r, _ := newRemote(t, f)

			res, err := r.ExecuteRawQuery(ctx, tc.text)
			require.NoError(t, err)
			tc.check(t, res)

			req, form := f.last(t)
			assert.Equal(t, tc.accept, req.Header.Get("Accept"))
			assert.Equal(t, []string{tc.text}, form["query"])
		})
	}

	r, _ := newRemote(t, &fakeEndpoint{})
	_, err := r.ExecuteRawQuery(ctx, "DESCRIBE <urn:a>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported query form")
}

func TestRemoteExecutor_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("non-2xx status", func(t *testing.T) {
		r, _ := newRemote(t, &fakeEndpoint{status: http.StatusBadRequest, body: "Parse error: line 1"})
		_, err := r.ExecuteSelect(ctx, namesQuery())
		require.Error(t, err)

		var ee *ExecutionError
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, BackendRemote, ee.Backend)
		assert.Equal(t, "select", ee.Operation)
		assert.Equal(t, http.StatusBadRequest, ee.StatusCode)
		assert.Equal(t, "Parse error: line 1", ee.Message)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	})

	t.Run("empty error body", func(t *testing.T) {
		r, _ := newRemote(t, &fakeEndpoint{status: http.StatusServiceUnavailable})
		err := r.ExecuteRawUpdate(ctx, "DROP GRAPH <urn:g>")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 503: Service Unavailable")
	})

	t.Run("malformed results", func(t *testing.T) {
		r, _ := newRemote(t, &fakeEndpoint{body: "<html>"})
		_, err := r.ExecuteSelect(ctx, namesQuery())
		require.Error(t, err)
		assert.True(t, IsExecutionError(err))
		assert.Contains(t, err.Error(), "decode results")
	})

	t.Run("unknown term type", func(t *testing.T) {
		r, _ := newRemote(t, &fakeEndpoint{body: `{"head": {"vars": ["x"]}, "results": {"bindings": [{"x": {"type": "triple", "value": ""}}]}}`})
		_, err := r.ExecuteSelect(ctx, namesQuery())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown result term type")
	})

	t.Run("canceled context", func(t *testing.T) {
		r, _ := newRemote(t, &fakeEndpoint{body: selectJSON})
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.ExecuteSelect(canceled, namesQuery())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(block)
			srv.Close()
		})
		r, err := NewRemoteExecutor(srv.URL, WithTimeout(20*time.Millisecond))
		require.NoError(t, err)
		_, err = r.ExecuteAsk(ctx, &queryir.Query{Type: queryir.AskQuery})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewRemoteExecutor_InvalidEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
		opts     []Option
	}{
		{name: "empty", endpoint: ""},
		{name: "no scheme", endpoint: "localhost:3030/ds"},
		{name: "bad update endpoint", endpoint: "http://localhost:3030/ds", opts: []Option{WithUpdateEndpoint("ftp://x")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRemoteExecutor(tc.endpoint, tc.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid endpoint")
		})
	}
}
