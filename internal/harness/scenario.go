package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios load datasets into a fresh store, run a sequence of adapter
// operations with expected outcomes and assert on the queries the
// operations sent and on the final store contents.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Datasets lists N-Quads, N-Triples or entity document files loaded
	// before the first step. Paths are relative to the scenario file.
	Datasets []string `yaml:"datasets"`

	// Steps run in order against the loaded store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the query trace and final store contents.
	// Supported types: query_count, query_contains, query_order, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// IDs are handed out, in order, to entities saved without one.
	IDs []string `yaml:"ids,omitempty"`
}

// Step is one adapter operation.
type Step struct {
	// Name identifies the step in the trace and in assertions.
	Name string `yaml:"name"`

	// Op is the operation: find, findAll, count, exists, groupBy, save,
	// update, delete or destroy.
	Op string `yaml:"op"`

	// Spec is an inline find-spec document (find, findAll, count, exists,
	// groupBy).
	Spec map[string]any `yaml:"spec,omitempty"`

	// SpecFile is a find-spec file relative to the scenario file, used
	// instead of Spec.
	SpecFile string `yaml:"specFile,omitempty"`

	// Entities are the entity documents of a save.
	Entities []map[string]any `yaml:"entities,omitempty"`

	// IDs are the entities a delete or destroy removes.
	IDs []string `yaml:"ids,omitempty"`

	// SPARQL is the update text of an update step.
	SPARQL string `yaml:"sparql,omitempty"`

	// Expect specifies the expected outcome. If nil, the step only has
	// to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// IDs are the expected entity identifiers, in order unless
	// Unordered is set.
	IDs []string `yaml:"ids,omitempty"`

	// Unordered compares IDs as a set.
	Unordered bool `yaml:"unordered,omitempty"`

	// Count is the expected count.
	Count *int `yaml:"count,omitempty"`

	// Exists is the expected existence result.
	Exists *bool `yaml:"exists,omitempty"`

	// Error is the expected error kind: notFound, spec, compilation or
	// execution.
	Error string `yaml:"error,omitempty"`

	// Properties maps entity identifiers to expected property values in
	// the entity's JSON form. This is a subset match.
	Properties map[string]map[string]any `yaml:"properties,omitempty"`

	// Groups are the expected groups of a groupBy, in order.
	Groups []ExpectedGroup `yaml:"groups,omitempty"`
}

// ExpectedGroup is one expected groupBy row.
type ExpectedGroup struct {
	// Values maps group paths to the group's bare value.
	Values map[string]string `yaml:"values"`

	// Count is the number of entities in the group.
	Count int `yaml:"count"`
}

// Assertion validates the query trace or the final store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "query_count": Check a step sent exactly Count queries
	// - "query_contains": Check a query of a step contains Text
	// - "query_order": Check a step's query forms appear in order
	// - "final_state": Run a SELECT and check its single row
	Type string `yaml:"type"`

	// Step names the step (query_count, query_contains, query_order).
	Step string `yaml:"step,omitempty"`

	// Form restricts query_contains to one query form.
	Form string `yaml:"form,omitempty"`

	// Text is the expected SPARQL fragment (query_contains).
	Text string `yaml:"text,omitempty"`

	// Count is the expected number of queries (query_count).
	Count int `yaml:"count,omitempty"`

	// Forms is the expected query form order (query_order).
	Forms []string `yaml:"forms,omitempty"`

	// Query is a SPARQL SELECT (final_state).
	Query string `yaml:"query,omitempty"`

	// Expect maps variables of the single result row to their bare
	// values (final_state). Subset match.
	Expect map[string]string `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpFind    = "find"
	OpFindAll = "findAll"
	OpCount   = "count"
	OpExists  = "exists"
	OpGroupBy = "groupBy"
	OpSave    = "save"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpDestroy = "destroy"
)

// Expected error kinds.
const (
	ErrorNotFound    = "notFound"
	ErrorSpec        = "spec"
	ErrorCompilation = "compilation"
	ErrorExecution   = "execution"
)

// Assertion type constants.
const (
	AssertQueryCount    = "query_count"
	AssertQueryContains = "query_contains"
	AssertQueryOrder    = "query_order"
	AssertFinalState    = "final_state"
)

var (
	specOps    = []string{OpFind, OpFindAll, OpCount, OpExists, OpGroupBy}
	errorKinds = []string{ErrorNotFound, ErrorSpec, ErrorCompilation, ErrorExecution}
)

// LoadScenario reads and parses a scenario YAML file. Dataset and spec
// file paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Datasets {
		scenario.Datasets[i] = resolve(base, p)
	}
	for i := range scenario.Steps {
		if scenario.Steps[i].SpecFile != "" {
			scenario.Steps[i].SpecFile = resolve(base, scenario.Steps[i].SpecFile)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, path := range s.Datasets {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("dataset file not found: %s", path)
		}
	}

	names := make(map[string]bool, len(s.Steps))
	for i := range s.Steps {
		step := &s.Steps[i]
		if err := validateStep(i, step); err != nil {
			return err
		}
		if names[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		names[step.Name] = true
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], names); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	if step.Name == "" {
		return fmt.Errorf("steps[%d]: name is required", i)
	}
	if step.Name == SetupStep {
		return fmt.Errorf("steps[%d]: step name %q is reserved for dataset loading", i, SetupStep)
	}

	switch {
	case slices.Contains(specOps, step.Op):
		if step.Spec == nil && step.SpecFile == "" {
			return fmt.Errorf("steps[%d]: %s requires spec or specFile", i, step.Op)
		}
		if step.Spec != nil && step.SpecFile != "" {
			return fmt.Errorf("steps[%d]: spec and specFile are mutually exclusive", i)
		}
		if step.SpecFile != "" {
			if _, err := os.Stat(step.SpecFile); os.IsNotExist(err) {
				return fmt.Errorf("steps[%d]: spec file not found: %s", i, step.SpecFile)
			}
		}
	case step.Op == OpSave:
		if len(step.Entities) == 0 {
			return fmt.Errorf("steps[%d]: save requires entities", i)
		}
	case step.Op == OpUpdate:
		if step.SPARQL == "" {
			return fmt.Errorf("steps[%d]: update requires sparql", i)
		}
	case step.Op == OpDelete || step.Op == OpDestroy:
		if len(step.IDs) == 0 {
			return fmt.Errorf("steps[%d]: %s requires ids", i, step.Op)
		}
	case step.Op == "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.Expect != nil && step.Expect.Error != "" && !slices.Contains(errorKinds, step.Expect.Error) {
		return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertQueryCount, AssertQueryContains, AssertQueryOrder:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for %s", index, a.Type)
		}
		if !steps[a.Step] {
			return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
		}
	case AssertFinalState:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	switch a.Type {
	case AssertQueryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for query_count", index)
		}
	case AssertQueryContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for query_contains", index)
		}
	case AssertQueryOrder:
		if len(a.Forms) == 0 {
			return fmt.Errorf("assertions[%d]: forms list is required for query_order", index)
		}
	}
	return nil
}
