package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/querysparql"
	"github.com/roach88/quadquery/internal/rdf"
	"github.com/roach88/quadquery/internal/sparqlparser"
)

const (
	mediaForm        = "application/x-www-form-urlencoded"
	mediaResultsJSON = "application/sparql-results+json"
	mediaNTriples    = "application/n-triples"

	// maxErrorBody bounds how much of a failed response is kept in the
	// error message.
	maxErrorBody = 512
)

// RemoteExecutor sends compiled SPARQL text to a SPARQL 1.1 protocol
// endpoint. Requests are not retried.
//
// Thread-safety: safe for concurrent use.
type RemoteExecutor struct {
	queryEndpoint  string
	updateEndpoint string
	client         *http.Client
	timeout        time.Duration
	headers        map[string]string
	compiler       *querysparql.SPARQLCompiler
	log            *logrus.Entry
}

var _ Executor = (*RemoteExecutor)(nil)

// NewRemoteExecutor returns an executor for the endpoint at queryEndpoint.
func NewRemoteExecutor(queryEndpoint string, opts ...Option) (*RemoteExecutor, error) {
	o := newOptions(opts)
	if o.updateEndpoint == "" {
		o.updateEndpoint = queryEndpoint
	}
	for _, endpoint := range []string{queryEndpoint, o.updateEndpoint} {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ExecutionError{
				Backend:   BackendRemote,
				Operation: "open",
				Message:   fmt.Sprintf("invalid endpoint %q", endpoint),
				Err:       err,
			}
		}
	}
	client := o.client
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteExecutor{
		queryEndpoint:  queryEndpoint,
		updateEndpoint: o.updateEndpoint,
		client:         client,
		timeout:        o.timeout,
		headers:        o.headers,
		compiler:       querysparql.NewSPARQLCompiler(),
		log:            o.log,
	}, nil
}

// Close releases idle connections.
func (r *RemoteExecutor) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// post sends one protocol request and returns the response body of a
// successful response.
func (r *RemoteExecutor) post(ctx context.Context, op, endpoint, field, text, accept string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	form := url.Values{field: {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mediaForm)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ExecutionError{
			Backend:    BackendRemote,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	return body, nil
}

func (r *RemoteExecutor) run(ctx context.Context, op string, text string, fn func(ctx context.Context) error) error {
	return wrap(BackendRemote, op, instrument(ctx, r.log, BackendRemote, op, func() string { return text }, fn))
}

// selectText posts a SELECT or ASK query and decodes the JSON results.
func (r *RemoteExecutor) selectText(ctx context.Context, op, text string) (*sparqlResults, error) {
	body, err := r.post(ctx, op, r.queryEndpoint, "query", text, mediaResultsJSON)
	if err != nil {
		return nil, err
	}
	return decodeResults(body)
}

func (r *RemoteExecutor) constructText(ctx context.Context, op, text string) ([]rdf.Triple, error) {
	body, err := r.post(ctx, op, r.queryEndpoint, "query", text, mediaNTriples)
	if err != nil {
		return nil, err
	}
	return sparqlparser.ParseNTriples(bytes.NewReader(body))
}

// ExecuteSelect implements Executor.
func (r *RemoteExecutor) ExecuteSelect(ctx context.Context, q *queryir.Query) ([]rdf.Binding, error) {
	text, err := r.compiler.Compile(q)
	if err != nil {
		return nil, wrap(BackendRemote, "select", err)
	}
	var rows []rdf.Binding
	err = r.run(ctx, "select", text, func(ctx context.Context) error {
		res, err := r.selectText(ctx, "select", text)
		if err != nil {
			return err
		}
		rows, err = res.bindings()
		return err
	})
	return rows, err
}

// ExecuteConstruct implements Executor.
func (r *RemoteExecutor) ExecuteConstruct(ctx context.Context, q *queryir.Query) ([]rdf.Triple, error) {
	text, err := r.compiler.Compile(q)
	if err != nil {
		return nil, wrap(BackendRemote, "construct", err)
	}
	var triples []rdf.Triple
	err = r.run(ctx, "construct", text, func(ctx context.Context) error {
		var err error
		triples, err = r.constructText(ctx, "construct", text)
		return err
	})
	return triples, err
}

// ExecuteAsk implements Executor.
func (r *RemoteExecutor) ExecuteAsk(ctx context.Context, q *queryir.Query) (bool, error) {
	text, err := r.compiler.Compile(q)
	if err != nil {
		return false, wrap(BackendRemote, "ask", err)
	}
	var ok bool
	err = r.run(ctx, "ask", text, func(ctx context.Context) error {
		res, err := r.selectText(ctx, "ask", text)
		if err != nil {
			return err
		}
		if res.Boolean == nil {
			return errorf("ask response carries no boolean")
		}
		ok = *res.Boolean
		return nil
	})
	return ok, err
}

// ExecuteSelectCount implements Executor.
func (r *RemoteExecutor) ExecuteSelectCount(ctx context.Context, q *queryir.Query) (int, error) {
	text, err := r.compiler.Compile(q)
	if err != nil {
		return 0, wrap(BackendRemote, "count", err)
	}
	var n int
	err = r.run(ctx, "count", text, func(ctx context.Context) error {
		res, err := r.selectText(ctx, "count", text)
		if err != nil {
			return err
		}
		rows, err := res.bindings()
		if err != nil {
			return err
		}
		n, err = countOf(q, rows)
		return err
	})
	return n, err
}

// ExecuteUpdate implements Executor.
func (r *RemoteExecutor) ExecuteUpdate(ctx context.Context, u *queryir.Update) error {
	text, err := r.compiler.CompileUpdate(u)
	if err != nil {
		return wrap(BackendRemote, "update", err)
	}
	return r.run(ctx, "update", text, func(ctx context.Context) error {
		_, err := r.post(ctx, "update", r.updateEndpoint, "update", text, "")
		return err
	})
}

// ExecuteRawQuery sends text unchanged. The query form is read from its
// first keyword to pick the response format.
func (r *RemoteExecutor) ExecuteRawQuery(ctx context.Context, text string) (*RawResult, error) {
	var out *RawResult
	err := r.run(ctx, "raw_query", text, func(ctx context.Context) error {
		form := sparqlparser.QueryForm(text)
		out = &RawResult{Form: form}
		switch form {
		case queryir.SelectQuery, queryir.AskQuery:
			res, err := r.selectText(ctx, "raw_query", text)
			if err != nil {
				return err
			}
			if form == queryir.AskQuery {
				if res.Boolean == nil {
					return errorf("ask response carries no boolean")
				}
				out.Boolean = *res.Boolean
				return nil
			}
			out.Variables = res.Head.Vars
			out.Bindings, err = res.bindings()
			return err
		case queryir.ConstructQuery:
			var err error
			out.Triples, err = r.constructText(ctx, "raw_query", text)
			return err
		default:
			return errorf("unsupported query form; expected SELECT, CONSTRUCT or ASK")
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteRawUpdate sends text unchanged to the update endpoint.
func (r *RemoteExecutor) ExecuteRawUpdate(ctx context.Context, text string) error {
	return r.run(ctx, "raw_update", text, func(ctx context.Context) error {
		_, err := r.post(ctx, "raw_update", r.updateEndpoint, "update", text, "")
		return err
	})
}
