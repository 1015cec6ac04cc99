package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
	pterm.DisableStyling()
}

const peopleNQ = `<urn:alice> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://schema.org/Person> <urn:alice> .
<urn:alice> <http://schema.org/name> "Alice" <urn:alice> .
<urn:bob> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://schema.org/Person> <urn:bob> .
<urn:bob> <http://schema.org/name> "Bob" <urn:bob> .
<urn:bob> <http://schema.org/worksFor> <urn:acme> <urn:bob> .
<urn:alice> <http://schema.org/worksFor> <urn:acme> <urn:alice> .
`

const companyYAML = `
- "@id": urn:acme
  type: http://schema.org/Organization
  http://schema.org/name: Acme
`

const peopleSpec = `
prefixes: s: "http://schema.org/"
where: type: "s:Person"
order: [{"s:name": "desc"}]
relations: "s:worksFor": true
`

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// fixtures writes the people and company datasets.
func fixtures(t *testing.T) (dir, people, company string) {
	t.Helper()
	dir = t.TempDir()
	return dir, writeFile(t, dir, "people.nq", peopleNQ), writeFile(t, dir, "company.yaml", companyYAML)
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "quadquery", cmd.Use)
	assert.Contains(t, cmd.Long, "find-specs")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "find", "count", "exists", "group", "load", "query", "update", "delete"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	testCases := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "verbose", shorthand: "v", defValue: "false"},
		{name: "format", defValue: "text"},
		{name: "config", shorthand: "c", defValue: ""},
		{name: "data", shorthand: "d", defValue: "[]"},
		{name: "parallel", defValue: "4"},
		{name: "backend", defValue: "memory"},
		{name: "store", defValue: ":memory:"},
		{name: "timeout", defValue: "30s"},
		{name: "log-level", defValue: "info"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tc.name)
			require.NotNil(t, flag)
			assert.Equal(t, tc.shorthand, flag.Shorthand)
			assert.Equal(t, tc.defValue, flag.DefValue)
		})
	}

	// every configuration flag is bound to a key
	for flag := range configFlags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommand_InvalidGlobalFlags(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "find.yaml", "where: {}\n")

	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "format", args: []string{"compile", "--format", "xml", spec}, wantErr: `invalid format "xml"`},
		{name: "parallel", args: []string{"compile", "--parallel", "0", spec}, wantErr: "invalid parallelism 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestOpenAdapter_Configuration(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "find.yaml", "where: {}\n")

	testCases := []struct {
		name string
		args []string
	}{
		{name: "remote without endpoint", args: []string{"count", "--backend", "remote", spec}},
		{name: "unknown backend", args: []string{"count", "--backend", "cloud", spec}},
		{name: "missing config file", args: []string{"count", "--config", filepath.Join(dir, "missing.yaml"), spec}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E002]")
		})
	}
}

func TestOpenAdapter_ConfigFile(t *testing.T) {
	dir, people, _ := fixtures(t)
	spec := writeFile(t, dir, "find.yaml", "where:\n  type: http://schema.org/Person\n")
	store := filepath.Join(dir, "store.db")
	cfg := writeFile(t, dir, "quadquery.yaml", "backend: memory\nstorePath: "+store+"\n")

	_, err := execute(t, "load", "--config", cfg, people)
	require.NoError(t, err)

	out, err := execute(t, "count", "--config", cfg, spec)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	// flags override the file
	out, err = execute(t, "count", "--config", cfg, "--store", ":memory:", spec)
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}
