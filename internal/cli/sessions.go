package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/markerset/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Name     string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Long: `List the sessions saved by "reconstruct --db", oldest first.

Examples:
  markerset sessions --db ./markers.db
  markerset sessions --db ./markers.db --name morning --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $MARKERSET_DB)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only sessions with this name")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
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

	sessions, err := st.ListSessions(context.Background(), opts.Name)
	if err != nil {
		return f.fail(ErrCodeStore, WrapExitError(ExitCommandError, "failed to list sessions", err))
	}

	if f.JSON() {
		return f.Success(sessions)
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tNAME\tEVENTS\tRECORDS\tSOURCE")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", s.Seq, s.ID, s.Name, s.EventCount, s.RecordCount, s.Source)
	}
	return tw.Flush()
}
