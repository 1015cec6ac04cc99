package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quadquery/internal/compiler"
	"github.com/roach88/quadquery/internal/querybuilder"
	"github.com/roach88/quadquery/internal/queryir"
	"github.com/roach88/quadquery/internal/querysparql"
)

// CompiledQuery is one SPARQL document of a compiled find-spec.
type CompiledQuery struct {
	Name   string `json:"name"`
	SPARQL string `json:"sparql"`
}

// CompilationResult holds the queries a find-spec compiles to.
type CompilationResult struct {
	Kind    compiler.Kind   `json:"kind"`
	Phases  int             `json:"phases,omitempty"`
	Queries []CompiledQuery `json:"queries"`

	// Variables maps group variables to group paths (groupBy only).
	Variables map[string]string `json:"variables,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <spec-file>",
		Short: "Compile a find-spec to SPARQL",
		Long: `Compile a CUE, JSON or YAML find-spec document to the SPARQL queries a
find would run, without touching a backend.

Ordered finds that may return several entities compile to two phases: a
SELECT of the ordered ids and a CONSTRUCT over the selected ids. Other
finds compile to a single CONSTRUCT.

Example:
  quadquery compile people.cue
  quadquery compile --format json grouped.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, args[0], cmd)
		},
	}
}

func runCompile(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := compiler.CompileFile(path)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Compiled %s document %s", doc.Kind, path)

	result, err := CompileDocument(doc)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	for _, q := range result.Queries {
		formatter.Heading("# %s", q.Name)
		fmt.Fprintln(formatter.Writer, q.SPARQL)
	}
	return nil
}

// CompileDocument compiles doc to the SPARQL the adapter would run for it.
func CompileDocument(doc *compiler.Document) (*CompilationResult, error) {
	sparql := querysparql.NewSPARQLCompiler()
	result := &CompilationResult{Kind: doc.Kind}
	add := func(name string, q *queryir.Query) error {
		text, err := sparql.Compile(q)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		result.Queries = append(result.Queries, CompiledQuery{Name: name, SPARQL: text})
		return nil
	}

	b := querybuilder.NewBuilder()
	if doc.Kind == compiler.KindGroupBy {
		gq, err := b.BuildGroupByQuery(doc.GroupBy)
		if err != nil {
			return nil, err
		}
		result.Variables = gq.VariableMapping
		return result, add("group", gq.Query)
	}

	opts := doc.Find
	data, err := b.BuildEntitySelectPatterns(opts)
	if err != nil {
		return nil, err
	}
	if data.Ordered() && opts.ExpectsMany() {
		result.Phases = 2
		if err := add("select", b.BuildEntitySelectQuery(data, opts.Limit, opts.Offset)); err != nil {
			return nil, err
		}
		// The VALUES block is filled with the selected ids at run time.
		if err := add("construct", b.BuildConstructQuery(data, []string{}, 0, 0)); err != nil {
			return nil, err
		}
	} else {
		result.Phases = 1
		if err := add("construct", b.BuildConstructQuery(data, nil, opts.Limit, opts.Offset)); err != nil {
			return nil, err
		}
	}

	counts := querybuilder.NewBuilder()
	restriction, err := counts.BuildEntitySelectPatterns(querybuilder.FindOptions{Where: opts.Where, SubQueries: opts.SubQueries})
	if err != nil {
		return nil, err
	}
	if err := add("count", counts.BuildCountQuery(restriction)); err != nil {
		return nil, err
	}
	return result, add("ask", counts.BuildAskQuery(restriction))
}
