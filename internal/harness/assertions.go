package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/rdf"
)

// AssertionError is returned when an expectation or assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Step     string       // Step the assertion concerns, if any
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Queries of the step for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Step != "" {
		fmt.Fprintf(&buf, " (step %q)", e.Step)
	}
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nQueries:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Form)
			for _, line := range strings.Split(event.SPARQL, "\n") {
				fmt.Fprintf(&buf, "      %s\n", line)
			}
		}
	}
	return buf.String()
}

// checkExpect compares a step outcome against its expect clause.
func checkExpect(step string, want *ExpectClause, got *StepOutcome, found []*entity.Entity) []error {
	var errs []error
	fail := func(kind, expected, actual string) {
		errs = append(errs, &AssertionError{Type: kind, Step: step, Expected: expected, Actual: actual})
	}

	if want.IDs != nil {
		gotIDs, wantIDs := got.IDs, want.IDs
		if want.Unordered {
			gotIDs, wantIDs = sortedCopy(gotIDs), sortedCopy(wantIDs)
		}
		if !slices.Equal(gotIDs, wantIDs) {
			fail("expect.ids", fmt.Sprint(want.IDs), fmt.Sprint(got.IDs))
		}
	}
	if want.Count != nil && (got.Count == nil || *got.Count != *want.Count) {
		fail("expect.count", fmt.Sprint(*want.Count), formatPtr(got.Count))
	}
	if want.Exists != nil && (got.Exists == nil || *got.Exists != *want.Exists) {
		fail("expect.exists", fmt.Sprint(*want.Exists), formatPtr(got.Exists))
	}

	for _, id := range sortedKeys(want.Properties) {
		e := findEntity(found, id)
		if e == nil {
			fail("expect.properties", fmt.Sprintf("entity %s in the result", id), "not found")
			continue
		}
		actual := e.ToMap()
		props := want.Properties[id]
		for _, key := range sortedKeys(props) {
			value, ok := actual[key]
			if !ok {
				fail("expect.properties", fmt.Sprintf("%s %s = %v", id, key, props[key]), "property missing")
				continue
			}
			if !valuesEqual(value, props[key]) {
				fail("expect.properties", fmt.Sprintf("%s %s = %v", id, key, props[key]), fmt.Sprint(value))
			}
		}
	}

	if want.Groups != nil {
		if len(got.Groups) != len(want.Groups) {
			fail("expect.groups", fmt.Sprintf("%d groups", len(want.Groups)), fmt.Sprintf("%d groups: %v", len(got.Groups), got.Groups))
		} else {
			for i, g := range want.Groups {
				actual := got.Groups[i]
				if g.Count != actual.Count || !valuesEqual(actual.Values, g.Values) {
					fail("expect.groups", fmt.Sprintf("group %d = %v count %d", i, g.Values, g.Count),
						fmt.Sprintf("%v count %d", actual.Values, actual.Count))
				}
			}
		}
	}
	return errs
}

// assertQueryCount checks that a step sent exactly the expected number
// of documents.
func assertQueryCount(result *Result, assertion Assertion) error {
	events := result.StepTrace(assertion.Step)
	if len(events) != assertion.Count {
		return &AssertionError{
			Type:     AssertQueryCount,
			Step:     assertion.Step,
			Expected: fmt.Sprintf("%d queries", assertion.Count),
			Actual:   fmt.Sprintf("%d queries", len(events)),
			Trace:    events,
		}
	}
	return nil
}

// assertQueryContains checks that some query of the step, of the given
// form if one is named, contains the text.
func assertQueryContains(result *Result, assertion Assertion) error {
	events := result.StepTrace(assertion.Step)
	for _, event := range events {
		if assertion.Form != "" && event.Form != assertion.Form {
			continue
		}
		if strings.Contains(event.SPARQL, assertion.Text) {
			return nil
		}
	}

	form := "query"
	if assertion.Form != "" {
		form = assertion.Form + " query"
	}
	return &AssertionError{
		Type:     AssertQueryContains,
		Step:     assertion.Step,
		Expected: fmt.Sprintf("a %s containing %q", form, assertion.Text),
		Actual:   "not found",
		Trace:    events,
	}
}

// assertQueryOrder checks that the step's query forms match the expected
// sequence exactly.
func assertQueryOrder(result *Result, assertion Assertion) error {
	events := result.StepTrace(assertion.Step)
	forms := make([]string, len(events))
	for i, event := range events {
		forms[i] = event.Form
	}
	if !slices.Equal(forms, assertion.Forms) {
		return &AssertionError{
			Type:     AssertQueryOrder,
			Step:     assertion.Step,
			Expected: fmt.Sprintf("queries in order: %v", assertion.Forms),
			Actual:   fmt.Sprintf("%v", forms),
			Trace:    events,
		}
	}
	return nil
}

// assertFinalState runs a SELECT against the final store and checks its
// single row using subset semantics. Values compare in bare form: the
// IRI or the lexical form of a literal.
func assertFinalState(ctx context.Context, a *adapter.Adapter, assertion Assertion) error {
	res, err := a.ExecuteRawQuery(ctx, assertion.Query)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query %q to run", assertion.Query),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if res.Form != queryir.SelectQuery {
		return fmt.Errorf("final_state assertion requires a SELECT query, got %s", res.Form)
	}

	switch len(res.Bindings) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("one row for %q", assertion.Query),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row for %q", assertion.Query),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(res.Bindings)),
		}
	}

	row := res.Bindings[0]
	for _, name := range sortedKeys(assertion.Expect) {
		t, ok := row.Get(name)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("variable ?%s to be bound", name),
				Actual:   fmt.Sprintf("unbound; result variables: %v", res.Variables),
			}
		}
		if got := bareValue(t); got != assertion.Expect[name] {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("?%s = %s", name, assertion.Expect[name]),
				Actual:   fmt.Sprintf("?%s = %s", name, got),
			}
		}
	}
	return nil
}

// bareValue is the IRI of an IRI and the lexical form of a literal.
func bareValue(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.IRI:
		return string(v)
	case rdf.Literal:
		return v.Value
	default:
		return t.String()
	}
}

// valuesEqual compares values by their JSON encoding, so integer types
// and map key order do not matter.
func valuesEqual(actual, expected any) bool {
	a, errA := json.Marshal(actual)
	b, errB := json.Marshal(expected)
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

func findEntity(found []*entity.Entity, id string) *entity.Entity {
	for _, e := range found {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func formatPtr[T any](p *T) string {
	if p == nil {
		return "nothing"
	}
	return fmt.Sprint(*p)
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Adapter *adapter.Adapter
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertQueryCount:
			err = assertQueryCount(result, assertion)
		case AssertQueryContains:
			err = assertQueryContains(result, assertion)
		case AssertQueryOrder:
			err = assertQueryOrder(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Adapter == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires store context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Adapter, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
