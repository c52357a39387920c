package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/markerset/internal/engine"
	"github.com/roach88/markerset/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Events        int    `json:"events"`
	Records       int    `json:"records"`
	StoredHash    string `json:"stored_hash"`
	ReplayHash    string `json:"replay_hash"`
	Deterministic bool   `json:"deterministic"`
	Matches       bool   `json:"matches"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []ReplaySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllMatch      bool                  `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay stored sessions and verify their record sets",
		Long: `Re-reconstruct stored sessions from their events and verify the result.

Each session's events are replayed twice on fresh engines. The two results
must hash the same (determinism) and must match the record set hash stored
when the session was saved.

Exit codes:
  0 - Every session replays to its stored record set
  1 - A replay was non-deterministic or differs from the stored records
  2 - Command error (database not found, unknown session, etc.)

Examples:
  markerset replay --db ./markers.db
  markerset replay --db ./markers.db --session 0192f3a4-...
  markerset replay --db ./markers.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $MARKERSET_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay a specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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

	var ids []string
	if opts.Session != "" {
		ids = []string{opts.Session}
	} else {
		sessions, err := st.ListSessions(ctx, "")
		if err != nil {
			return f.fail(ErrCodeStore, WrapExitError(ExitCommandError, "failed to list sessions", err))
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	result := ReplayResult{
		Sessions:      make([]ReplaySessionResult, 0, len(ids)),
		TotalSessions: len(ids),
		AllMatch:      true,
	}

	for _, id := range ids {
		sessResult, err := replaySession(ctx, st, id, opts)
		if err != nil {
			return f.fail(ErrCodeStore, WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err))
		}

		result.Sessions = append(result.Sessions, sessResult)
		if !sessResult.Matches || !sessResult.Deterministic {
			result.AllMatch = false
		}
	}

	if f.JSON() {
		return outputReplayJSON(f, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replaySession replays one stored session and compares hashes.
func replaySession(ctx context.Context, st *store.Store, id string, opts *ReplayOptions) (ReplaySessionResult, error) {
	run, err := st.LoadRun(ctx, id)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	report, err := engine.VerifyDeterminism(run.Events, engine.WithLogger(opts.logger()))
	if err != nil {
		return ReplaySessionResult{}, err
	}

	opts.logger().Debug("session replayed",
		"id", id,
		"events_hash", report.EventsHash,
		"replay_hash", report.FirstHash,
		"stored_hash", run.Session.RecordsHash,
	)

	return ReplaySessionResult{
		ID:            run.Session.ID,
		Name:          run.Session.Name,
		Events:        len(run.Events),
		Records:       report.Records,
		StoredHash:    run.Session.RecordsHash,
		ReplayHash:    report.FirstHash,
		Deterministic: report.Deterministic,
		Matches:       report.FirstHash == run.Session.RecordsHash,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllMatch {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "replay verification failed",
		}
	}

	if err := f.Encode(response); err != nil {
		return err
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Matches || !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s (%s)\n", status, sess.ID, sess.Name)
		fmt.Fprintf(w, "  Events: %d, records: %d\n", sess.Events, sess.Records)

		if verbose {
			fmt.Fprintf(w, "  Stored hash: %s\n", sess.StoredHash)
			fmt.Fprintf(w, "  Replay hash: %s\n", sess.ReplayHash)
		}

		if !sess.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		if !sess.Matches {
			fmt.Fprintln(w, "  Warning: Replayed records differ from stored record set!")
		}
		fmt.Fprintln(w)
	}

	if result.AllMatch {
		fmt.Fprintln(w, "✓ All sessions verified")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
