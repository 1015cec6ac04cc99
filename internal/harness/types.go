package harness

// Query forms recorded in the trace.
const (
	FormSelect    = "select"
	FormConstruct = "construct"
	FormAsk       = "ask"
	FormCount     = "count"
	FormUpdate    = "update"
	FormRaw       = "raw"
)

// TraceEvent is one document the adapter sent to the executor.
type TraceEvent struct {
	Step   string `json:"step"`
	Form   string `json:"form"`
	SPARQL string `json:"sparql"`
	Seq    int64  `json:"seq"`
}

// StepOutcome is what a step produced.
type StepOutcome struct {
	Name    string         `json:"name"`
	Op      string         `json:"op"`
	IDs     []string       `json:"ids,omitempty"`
	Count   *int           `json:"count,omitempty"`
	Exists  *bool          `json:"exists,omitempty"`
	Groups  []GroupOutcome `json:"groups,omitempty"`
	Error   string         `json:"error,omitempty"`
	Queries int            `json:"queries"`
}

// GroupOutcome is one group of a groupBy step.
type GroupOutcome struct {
	Values map[string]string `json:"values"`
	Count  int               `json:"count"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every document sent to the executor, in order.
	Trace []TraceEvent `json:"trace"`

	// Outcomes holds one entry per step.
	Outcomes []StepOutcome `json:"outcomes"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Outcomes: []StepOutcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// StepTrace returns the trace events of step.
func (r *Result) StepTrace(step string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Step == step {
			out = append(out, e)
		}
	}
	return out
}
