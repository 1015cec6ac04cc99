package cli

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/quadquery/internal/adapter"
	"github.com/roach88/quadquery/internal/config"
	"github.com/roach88/quadquery/internal/dataset"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Data       []string // dataset files loaded before the command runs
	Parallel   int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// configFlags maps persistent flags to configuration keys.
var configFlags = map[string]string{
	"backend":         "backend",
	"query-endpoint":  "queryEndpoint",
	"update-endpoint": "updateEndpoint",
	"store":           "storePath",
	"timeout":         "timeout",
	"timestamps":      "setTimestamps",
	"max-solutions":   "maxSolutions",
	"log-level":       "logLevel",
}

// NewRootCommand creates the root command for the quadquery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quadquery",
		Short: "Structured finds over a quad store",
		Long: `quadquery compiles structured find-specs into SPARQL and runs them against
an embedded SQLite-backed store or a remote SPARQL endpoint.

Find-specs are CUE, JSON or YAML documents with where, order, relations,
select, subQueries, limit and offset keys.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Parallel < 1 {
				return fmt.Errorf("invalid parallelism %d: must be at least 1", opts.Parallel)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default ./quadquery.yaml)")
	flags.StringSliceVarP(&opts.Data, "data", "d", nil, "dataset files (.nq, .nt, .yaml, .json) loaded before the command runs")
	flags.IntVar(&opts.Parallel, "parallel", 4, "datasets loaded concurrently")

	flags.String("backend", config.BackendMemory, "backend (memory|remote)")
	flags.String("query-endpoint", "", "SPARQL query endpoint of the remote backend")
	flags.String("update-endpoint", "", "SPARQL update endpoint of the remote backend")
	flags.String("store", ":memory:", "SQLite database of the memory backend")
	flags.Duration("timeout", 30*time.Second, "remote request timeout")
	flags.Bool("timestamps", false, "stamp dcterms:created and dcterms:modified on writes")
	flags.Int("max-solutions", 0, "solution budget of the memory backend (0 = engine default)")
	flags.String("log-level", "info", "log level (trace|debug|info|warn|error)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewGroupCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// loadConfig reads configuration with the persistent flags bound on top.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader()
	for flag, key := range configFlags {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	cfg, err := loader.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logrus.NewEntry(log).WithField("component", "quadquery"), nil
}

// openAdapter builds the adapter the configuration selects and loads the
// --data datasets into it. The caller closes it.
func (o *RootOptions) openAdapter(cmd *cobra.Command) (*adapter.Adapter, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	a, err := adapter.New(cfg, adapter.WithLogger(log))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening backend", err)
	}

	if len(o.Data) > 0 {
		stats, err := dataset.Load(cmd.Context(), a, o.Data, o.Parallel)
		if err != nil {
			_ = a.Close()
			return nil, WrapExitError(ExitCommandError, "loading datasets", err)
		}
		log.WithFields(logrus.Fields{
			"files":    stats.Files,
			"quads":    stats.Quads,
			"entities": stats.Entities,
		}).Debug("datasets loaded")
	}
	return a, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
