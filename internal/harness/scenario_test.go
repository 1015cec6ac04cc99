package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario and a small dataset beside it.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	data := `<urn:a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <urn:T> <urn:a> .` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.nq"), []byte(data), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "find.yaml"), []byte("where: {type: \"urn:T\"}\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
datasets:
  - data.nq
ids: [urn:new]
steps:
  - name: all
    op: findAll
    spec:
      where: { type: "urn:T" }
    expect:
      ids: [urn:a]
  - name: from file
    op: count
    specFile: find.yaml
    expect:
      count: 1
assertions:
  - type: query_order
    step: all
    forms: [construct]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "data.nq")}, scenario.Datasets)
	assert.Equal(t, []string{"urn:new"}, scenario.IDs)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, map[string]any{"type": "urn:T"}, scenario.Steps[0].Spec["where"])
	assert.Equal(t, []string{"urn:a"}, scenario.Steps[0].Expect.IDs)
	assert.Equal(t, filepath.Join(dir, "find.yaml"), scenario.Steps[1].SpecFile)
	require.NotNil(t, scenario.Steps[1].Expect.Count)
	assert.Equal(t, 1, *scenario.Steps[1].Expect.Count)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown field",
			content: `
name: x
description: y
step:
  - name: a
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing name",
			content: `
description: y
steps:
  - { name: a, op: count, spec: {} }
`,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nsteps:\n  - { name: a, op: count, spec: {} }\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: x\ndescription: y\n",
			wantErr: "steps list is required",
		},
		{
			name: "missing dataset",
			content: `
name: x
description: y
datasets: [gone.nq]
steps:
  - { name: a, op: count, spec: {} }
`,
			wantErr: "dataset file not found",
		},
		{
			name: "unknown op",
			content: `
name: x
description: y
steps:
  - { name: a, op: explode }
`,
			wantErr: `unknown op "explode"`,
		},
		{
			name: "missing op",
			content: `
name: x
description: y
steps:
  - { name: a }
`,
			wantErr: "op is required",
		},
		{
			name: "find without spec",
			content: `
name: x
description: y
steps:
  - { name: a, op: findAll }
`,
			wantErr: "findAll requires spec or specFile",
		},
		{
			name: "spec and specFile",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {}, specFile: find.yaml }
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "missing spec file",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, specFile: gone.yaml }
`,
			wantErr: "spec file not found",
		},
		{
			name: "save without entities",
			content: `
name: x
description: y
steps:
  - { name: a, op: save }
`,
			wantErr: "save requires entities",
		},
		{
			name: "update without sparql",
			content: `
name: x
description: y
steps:
  - { name: a, op: update }
`,
			wantErr: "update requires sparql",
		},
		{
			name: "destroy without ids",
			content: `
name: x
description: y
steps:
  - { name: a, op: destroy }
`,
			wantErr: "destroy requires ids",
		},
		{
			name: "duplicate step name",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {} }
  - { name: a, op: exists, spec: {} }
`,
			wantErr: `duplicate step name "a"`,
		},
		{
			name: "reserved step name",
			content: `
name: x
description: y
steps:
  - { name: setup, op: count, spec: {} }
`,
			wantErr: "reserved for dataset loading",
		},
		{
			name: "unknown error kind",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {}, expect: { error: boom } }
`,
			wantErr: `unknown error kind "boom"`,
		},
		{
			name: "assertion on unknown step",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {} }
assertions:
  - { type: query_count, step: b, count: 1 }
`,
			wantErr: `unknown step "b"`,
		},
		{
			name: "unknown assertion type",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {} }
assertions:
  - { type: trace_contains, step: a }
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "query_contains without text",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {} }
assertions:
  - { type: query_contains, step: a }
`,
			wantErr: "text is required for query_contains",
		},
		{
			name: "query_order without forms",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {} }
assertions:
  - { type: query_order, step: a }
`,
			wantErr: "forms list is required",
		},
		{
			name: "final_state without expect",
			content: `
name: x
description: y
steps:
  - { name: a, op: count, spec: {} }
assertions:
  - { type: final_state, query: "SELECT ?s WHERE { ?s ?p ?o }" }
`,
			wantErr: "expect is required for final_state",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
