package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quadquery/internal/compiler"
)

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count <spec-file>",
		Short: "Count entities matching a find-spec",
		Long: `Count the distinct entities the where clause and sub-queries of a
find-spec match. Order, relations, select and pagination are ignored.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			doc, err := readSpec(args[0], compiler.KindFind)
			if err != nil {
				return formatter.Fail(err)
			}
			a, err := rootOpts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			n, err := a.Count(cmd.Context(), doc.Find)
			if err != nil {
				return formatter.Fail(err)
			}
			if formatter.JSON() {
				return formatter.Success(map[string]int{"count": n})
			}
			fmt.Fprintln(formatter.Writer, n)
			return nil
		},
	}
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <spec-file>",
		Short: "Report whether any entity matches a find-spec",
		Long: `Report whether the where clause and sub-queries of a find-spec match any
entity. Exits with status 1 when none does.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			doc, err := readSpec(args[0], compiler.KindFind)
			if err != nil {
				return formatter.Fail(err)
			}
			a, err := rootOpts.openAdapter(cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			ok, err := a.Exists(cmd.Context(), doc.Find)
			if err != nil {
				return formatter.Fail(err)
			}
			if formatter.JSON() {
				if err := formatter.Success(map[string]bool{"exists": ok}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(formatter.Writer, ok)
			}
			if !ok {
				return NewExitError(ExitFailure, "no entity matched")
			}
			return nil
		},
	}
}
