package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/quadquery/internal/compiler"
)

// NewGroupCommand creates the group command.
func NewGroupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "group <spec-file>",
		Short: "Run a grouped aggregation",
		Long: `Run a groupBy document: entities matching the where clause are grouped by
one or more property paths (steps separated by ~) and optionally by month
or day of a date property. Groups are listed by descending count.

Example:
  quadquery group --data company.yaml by-employer.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			doc, err := readSpec(args[0], compiler.KindGroupBy)
			if err != nil {
				return formatter.Fail(err)
			}
			a, err := rootOpts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			groups, err := a.GroupBy(cmd.Context(), doc.GroupBy)
			if err != nil {
				return formatter.Fail(err)
			}
			if formatter.JSON() {
				return formatter.Success(groupRows(groups))
			}
			if len(groups) == 0 {
				formatter.Done("no groups")
				return nil
			}
			return writeGroups(formatter.Writer, groups)
		},
	}
}
