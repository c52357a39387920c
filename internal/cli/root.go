package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/markerset/internal/config"
	"github.com/roach88/markerset/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	LogLevel  string
	LogFormat string

	// Config holds environment defaults; flags set on the command line win.
	Config config.Config

	// Logger is built in PersistentPreRunE. Commands constructed directly
	// (tests) fall back to a discard logger.
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the markerset CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "markerset",
		Short: "markerset - marker and instance reconstruction",
		Long: `Reconstruct labelled instances and interval markers from a
time-ordered stream of instance, begin and end events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "stderr log format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewReconstructCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup merges environment configuration under the flags, validates the
// merged result and builds the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output = o.Format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Format = cfg.Output
	o.LogLevel = cfg.LogLevel
	o.LogFormat = cfg.LogFormat

	level, err := config.ParseLevel(o.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if o.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	o.Logger = logging.New(cmd.ErrOrStderr(), logging.Format(o.LogFormat), level)
	slog.SetDefault(o.Logger)
	return nil
}

// logger returns the configured logger or a discard logger.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

// database resolves --db against MARKERSET_DB.
func (o *RootOptions) database(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if o.Config.DB != "" {
		return o.Config.DB, nil
	}
	return "", NewExitError(ExitCommandError, "no database: pass --db or set MARKERSET_DB")
}

// formatter builds an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
