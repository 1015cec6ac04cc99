package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/compiler"
	"github.com/roach88/quadquery/internal/dataset"
	"github.com/roach88/quadquery/internal/entity"
	"github.com/roach88/quadquery/internal/executor"
	"github.com/roach88/quadquery/internal/querybuilder"
	"github.com/roach88/quadquery/internal/testutil"
)

// SetupStep names the trace events of dataset loading.
const SetupStep = "setup"

// Harness is the test execution engine.
// It runs scenarios with a fixed clock and fixed entity identifiers.
type Harness struct {
	adapter  *adapter.Adapter
	recorder *recorder
	logger   *logrus.Entry
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory store for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory store
// 2. Load datasets, one file at a time so the trace is stable
// 3. Execute steps with expect validation
// 4. Evaluate assertions
//
// Errors returned are harness failures (bad dataset, broken store).
// Failed expectations are reported in the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	logger := logrus.NewEntry(log).WithField("scenario", scenario.Name)

	mem, err := executor.NewMemoryExecutor(":memory:", executor.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	rec := newRecorder(mem)
	a := adapter.NewWithExecutor(rec,
		adapter.WithClock(testutil.NewFixedClock(time.Time{})),
		adapter.WithIDGenerator(adapter.NewFixedGenerator(scenario.IDs...)),
		adapter.WithLogger(logger))
	defer a.Close()

	h := &Harness{adapter: a, recorder: rec, logger: logger}

	rec.begin(SetupStep)
	if _, err := dataset.Load(ctx, a, scenario.Datasets, 1); err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	result := NewResult()
	for _, step := range scenario.Steps {
		h.executeStep(ctx, step, result)
	}
	result.Trace = rec.trace()
	for i := range result.Outcomes {
		result.Outcomes[i].Queries = len(result.StepTrace(result.Outcomes[i].Name))
	}

	actx := &AssertionContext{Adapter: a, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) {
	h.recorder.begin(step.Name)
	outcome := StepOutcome{Name: step.Name, Op: step.Op}

	found, err := h.runStep(ctx, step, &outcome)
	want := step.Expect
	if want != nil && want.Unordered {
		sort.Strings(outcome.IDs)
	}

	switch {
	case err != nil:
		outcome.Error = errorKind(err)
		if want == nil || want.Error == "" {
			result.AddError(fmt.Sprintf("step %q: unexpected error: %v", step.Name, err))
		} else if want.Error != outcome.Error {
			result.AddError((&AssertionError{
				Type:     "expect.error",
				Step:     step.Name,
				Expected: want.Error,
				Actual:   fmt.Sprintf("%s (%v)", outcome.Error, err),
			}).Error())
		}
	case want != nil:
		if want.Error != "" {
			result.AddError((&AssertionError{
				Type:     "expect.error",
				Step:     step.Name,
				Expected: want.Error,
				Actual:   "no error",
			}).Error())
		}
		for _, aerr := range checkExpect(step.Name, want, &outcome, found) {
			result.AddError(aerr.Error())
		}
	}

	h.logger.WithFields(logrus.Fields{
		"step":  step.Name,
		"op":    step.Op,
		"error": outcome.Error,
	}).Debug("step completed")
	result.Outcomes = append(result.Outcomes, outcome)
}

// runStep performs the step's operation, filling outcome. Find steps
// also return the entities found.
func (h *Harness) runStep(ctx context.Context, step Step, outcome *StepOutcome) ([]*entity.Entity, error) {
	a := h.adapter

	switch step.Op {
	case OpSave:
		entities, err := dataset.FromMaps(step.Entities)
		if err != nil {
			return nil, err
		}
		saved, err := a.Save(ctx, entities...)
		if err != nil {
			return nil, err
		}
		outcome.IDs = entityIDs(saved)
		return saved, nil
	case OpUpdate:
		return nil, a.ExecuteRawUpdate(ctx, step.SPARQL)
	case OpDelete:
		return nil, a.Delete(ctx, step.IDs...)
	case OpDestroy:
		return nil, a.Destroy(ctx, step.IDs...)
	}

	doc, err := compileStepSpec(step)
	if err != nil {
		return nil, err
	}

	switch step.Op {
	case OpFind:
		e, err := a.Find(ctx, doc.Find)
		if err != nil {
			return nil, err
		}
		outcome.IDs = []string{e.ID}
		return []*entity.Entity{e}, nil
	case OpFindAll:
		found, err := a.FindAll(ctx, doc.Find)
		if err != nil {
			return nil, err
		}
		outcome.IDs = entityIDs(found)
		return found, nil
	case OpCount:
		n, err := a.Count(ctx, doc.Find)
		if err != nil {
			return nil, err
		}
		outcome.Count = &n
		return nil, nil
	case OpExists:
		ok, err := a.Exists(ctx, doc.Find)
		if err != nil {
			return nil, err
		}
		outcome.Exists = &ok
		return nil, nil
	case OpGroupBy:
		groups, err := a.GroupBy(ctx, doc.GroupBy)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			values := make(map[string]string, len(g.Groups))
			for path, t := range g.Groups {
				values[path] = bareValue(t)
			}
			outcome.Groups = append(outcome.Groups, GroupOutcome{Values: values, Count: g.Count})
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// compileStepSpec compiles the step's find-spec and checks that its kind
// fits the operation.
func compileStepSpec(step Step) (*compiler.Document, error) {
	var (
		doc *compiler.Document
		err error
	)
	if step.SpecFile != "" {
		doc, err = compiler.CompileFile(step.SpecFile)
	} else {
		var data []byte
		data, err = yaml.Marshal(step.Spec)
		if err != nil {
			return nil, fmt.Errorf("step %q: encode spec: %w", step.Name, err)
		}
		doc, err = compiler.Compile(data, compiler.FormatYAML, step.Name)
	}
	if err != nil {
		return nil, err
	}

	want := compiler.KindFind
	if step.Op == OpGroupBy {
		want = compiler.KindGroupBy
	}
	if doc.Kind != want {
		return nil, &compiler.CompileError{
			Field:   "document",
			Message: fmt.Sprintf("%s needs a %s document, got %s", step.Op, want, doc.Kind),
		}
	}
	return doc, nil
}

// errorKind classifies err with the names used in expect clauses.
func errorKind(err error) string {
	var (
		specErr *compiler.CompileError
		compErr *querybuilder.CompilationError
	)
	switch {
	case adapter.IsNotFound(err):
		return ErrorNotFound
	case errors.As(err, &specErr):
		return ErrorSpec
	case errors.As(err, &compErr):
		return ErrorCompilation
	case executor.IsExecutionError(err):
		return ErrorExecution
	default:
		return err.Error()
	}
}

func entityIDs(entities []*entity.Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}
