package cli

import (
	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sparql | @file | ->",
		Short: "Run raw SPARQL query text",
		Long: `Pass SPARQL query text through to the backend. SELECT results print as a
table, CONSTRUCT results as N-Triples and ASK results as true or false.

The argument is the query itself, @path to read it from a file or - to
read it from stdin.

Example:
  quadquery query 'SELECT ?g WHERE { GRAPH ?g { ?s ?p ?o } }'
  quadquery query @report.rq --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			text, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return formatter.Fail(err)
			}
			a, err := rootOpts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			res, err := a.ExecuteRawQuery(cmd.Context(), text)
			if err != nil {
				return formatter.Fail(err)
			}
			if formatter.JSON() {
				return formatter.Success(rawResultJSON(res))
			}
			return writeRawResult(formatter.Writer, res)
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <sparql | @file | ->",
		Short: "Run raw SPARQL update text",
		Long: `Pass SPARQL update text through to the backend. Operations separated by
semicolons run in order; there is no atomicity across them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			text, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return formatter.Fail(err)
			}
			a, err := rootOpts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			if err := a.ExecuteRawUpdate(cmd.Context(), text); err != nil {
				return formatter.Fail(err)
			}
			if formatter.JSON() {
				return formatter.Success(map[string]bool{"updated": true})
			}
			formatter.Done("Update applied")
			return nil
		},
	}
}
