package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/quadquery/internal/compiler"
	"github.com/roach88/quadquery/internal/entity"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	One bool
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <spec-file>",
		Short: "Find entities matching a find-spec",
		Long: `Run a find-spec against the configured backend and print the matching
entities with their expanded relations.

With --one the find is limited to a single entity and exits with status 1
when nothing matches.

Example:
  quadquery find --data people.nq people.cue
  quadquery find --backend remote --query-endpoint http://localhost:3030/ds/query people.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.One, "one", false, "return a single entity; fail when none matches")

	return cmd
}

func runFind(opts *FindOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := readSpec(path, compiler.KindFind)
	if err != nil {
		return formatter.Fail(err)
	}
	a, err := opts.openAdapter(cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer a.Close()

	var found []*entity.Entity
	if opts.One {
		e, err := a.Find(cmd.Context(), doc.Find)
		if err != nil {
			return formatter.Fail(err)
		}
		found = []*entity.Entity{e}
	} else {
		found, err = a.FindAll(cmd.Context(), doc.Find)
		if err != nil {
			return formatter.Fail(err)
		}
	}
	formatter.VerboseLog("Found %d entities", len(found))

	if formatter.JSON() {
		if opts.One {
			return formatter.Success(found[0])
		}
		return formatter.Success(found)
	}
	if len(found) == 0 {
		formatter.Done("no entities matched")
		return nil
	}
	writeEntities(formatter, found)
	return nil
}
