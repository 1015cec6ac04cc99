package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/quadquery/internal/dataset"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dataset-file>...",
		Short: "Load dataset files into the backend",
		Long: `Load N-Quads (.nq), N-Triples (.nt) or entity documents (.yaml, .yml,
.json) into the configured backend. Files are loaded concurrently.

N-Triples are placed in the graph named by their subject. Entity documents
are saved like the adapter's save: each entity replaces its own named
graph and entities without an id get a generated one.

Example:
  quadquery load --store ./data.db people.nq company.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			a, err := rootOpts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			stats, err := dataset.Load(cmd.Context(), a, args, rootOpts.Parallel)
			if err != nil {
				return formatter.Fail(err)
			}

			if formatter.JSON() {
				return formatter.Success(stats)
			}
			formatter.Done("Loaded %d file(s): %d quad(s), %d entities", stats.Files, stats.Quads, stats.Entities)
			return nil
		},
	}
}
