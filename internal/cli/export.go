package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/markerset/internal/feed"
	"github.com/roach88/markerset/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Session  string
	As       string // jsonl | yaml | columns
	Output   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored session back out",
		Long: `Export a stored session.

--as jsonl (default) and --as yaml write the session's events as a feed
that reconstruct can read again. --as columns writes the stored record
set in columnar JSON.

Examples:
  markerset export --db ./markers.db --session 0192f3a4-... > session.jsonl
  markerset export --db ./markers.db --session 0192f3a4-... --as yaml -o session.yaml
  markerset export --db ./markers.db --session 0192f3a4-... --as columns`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $MARKERSET_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.As, "as", "jsonl", "export form (jsonl|yaml|columns)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := opts.formatter(cmd)

	path, err := opts.database(opts.Database)
	if err != nil {
		return f.fail(ErrCodeStore, asExitError(err, ExitCommandError, "no database"))
	}

	st, err := store.Open(path)
	if err != nil {
		return f.fail(ErrCodeStore, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if opts.Output != "" {
		file, err := os.Create(opts.Output)
		if err != nil {
			return f.fail(ErrCodeGeneric, WrapExitError(ExitCommandError, "failed to create output file", err))
		}
		defer file.Close()
		w = file
	}

	if err := exportSession(ctx, st, opts.Session, opts.As, w); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return f.fail(ErrCodeStore, WrapExitError(ExitCommandError, "unknown session", err))
		}
		return f.fail(ErrCodeGeneric, asExitError(err, ExitFailure, "export failed"))
	}

	opts.logger().Info("session exported", "id", opts.Session, "as", opts.As, "output", opts.Output)
	return nil
}

func exportSession(ctx context.Context, st *store.Store, id, as string, w io.Writer) error {
	switch as {
	case "jsonl", "yaml":
		events, err := st.ReadEvents(ctx, id)
		if err != nil {
			return err
		}
		if as == "yaml" {
			return feed.WriteYAML(w, events)
		}
		return feed.WriteJSONL(w, events)

	case "columns":
		cols, err := st.ReadColumns(ctx, id)
		if err != nil {
			return err
		}
		f := &OutputFormatter{Format: "json", Writer: w}
		return f.Encode(cols)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("invalid --as %q: must be jsonl, yaml or columns", as))
}
