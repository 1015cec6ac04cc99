package cli

import (
	"github.com/spf13/cobra"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Destroy bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete entities by identifier",
		Long: `Delete the named graphs of the given entities. With --destroy, triples in
other graphs that mention the entities are removed as well.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			a, err := opts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			remove := a.Delete
			if opts.Destroy {
				remove = a.Destroy
			}
			if err := remove(cmd.Context(), args...); err != nil {
				return formatter.Fail(err)
			}
			if formatter.JSON() {
				return formatter.Success(map[string]any{"deleted": args, "destroyed": opts.Destroy})
			}
			formatter.Done("Deleted %d entities", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Destroy, "destroy", false, "also remove references held in other graphs")

	return cmd
}
