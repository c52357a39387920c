package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/markerset/internal/engine"
	"github.com/roach88/markerset/internal/feed"
	"github.com/roach88/markerset/internal/ir"
	"github.com/roach88/markerset/internal/store"
)

// ReconstructOptions holds flags for the reconstruct command.
type ReconstructOptions struct {
	*RootOptions
	InputFormat string
	Database    string
	Session     string
}

// ReconstructResult is the JSON payload of the reconstruct command.
type ReconstructResult struct {
	Source      string                 `json:"source"`
	Columns     ir.Columns             `json:"columns"`
	Stats       engine.Stats           `json:"stats"`
	Pending     []engine.PendingBegins `json:"pending,omitempty"`
	EventsHash  string                 `json:"events_hash"`
	RecordsHash string                 `json:"records_hash"`
	Rejected    int64                  `json:"rejected"`
	Session     *store.Session         `json:"session,omitempty"`
}

// NewReconstructCommand creates the reconstruct command.
func NewReconstructCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconstructOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconstruct <feed>",
		Short: "Reconstruct instances and markers from an event feed",
		Long: `Read an event feed and print the reconstructed record set in columnar form.

The feed format is chosen by extension (.yaml, .yml, .jsonl, .ndjson).
Use "-" to read standard input together with --input-format.

With --db, the events and the finalized record set are saved as a new
session that replay and export can read back.

Examples:
  markerset reconstruct session.jsonl
  markerset reconstruct session.yaml --format json
  cat session.jsonl | markerset reconstruct - --input-format jsonl
  markerset reconstruct session.jsonl --db ./markers.db --session morning`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconstruct(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "feed format when reading stdin (yaml|jsonl)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "save the session to this SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session name (defaults to the feed file name)")

	return cmd
}

func runReconstruct(opts *ReconstructOptions, source string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger()

	events, err := loadFeed(source, opts.InputFormat, cmd.InOrStdin())
	if err != nil {
		return f.fail(ErrCodeFeed, WrapExitError(ExitCommandError, "failed to load feed", err))
	}
	f.VerboseLog("Loaded %d event(s) from %s", len(events), source)

	ctx, stop := signalContext(cmd)
	defer stop()

	rec := engine.New(engine.WithLogger(logger))
	pipeline := engine.NewPipeline(rec, logger)
	if err := feedPipeline(ctx, pipeline, events); err != nil {
		return f.fail(ErrCodeGeneric, WrapExitError(ExitFailure, "reconstruction interrupted", err))
	}

	pending := rec.Pending()
	for _, p := range pending {
		f.VerboseLog("Open at finalize: %s started at %v", p.Name, p.Starts)
	}

	records := rec.Finalize()
	result := ReconstructResult{
		Source:   source,
		Columns:  ir.Transpose(records),
		Stats:    rec.Stats(),
		Pending:  pending,
		Rejected: pipeline.Rejected(),
	}
	if result.EventsHash, err = ir.EventLogHash(events); err != nil {
		return f.fail(ErrCodeGeneric, WrapExitError(ExitFailure, "failed to hash events", err))
	}
	if result.RecordsHash, err = ir.RecordSetHash(records); err != nil {
		return f.fail(ErrCodeGeneric, WrapExitError(ExitFailure, "failed to hash records", err))
	}

	if opts.Database != "" || opts.Config.DB != "" {
		sess, err := saveSession(ctx, opts, source, events, records)
		if err != nil {
			return f.fail(ErrCodeStore, asExitError(err, ExitFailure, "failed to save session"))
		}
		result.Session = &sess
		logger.Info("session saved", "id", sess.ID, "name", sess.Name, "records", sess.RecordCount)
	}

	if f.JSON() {
		return f.Success(result)
	}
	return writeReconstructText(cmd.OutOrStdout(), result, records, opts.Verbose)
}

// feedPipeline enqueues events from a producer goroutine while Run drains
// them on this one.
func feedPipeline(ctx context.Context, pipeline *engine.Pipeline, events []ir.Event) error {
	go func() {
		defer pipeline.Close()
		for _, ev := range events {
			if !pipeline.Enqueue(ev) {
				return
			}
		}
	}()
	return pipeline.Run(ctx)
}

func saveSession(ctx context.Context, opts *ReconstructOptions, source string, events []ir.Event, records []ir.Record) (store.Session, error) {
	path, err := opts.database(opts.Database)
	if err != nil {
		return store.Session{}, err
	}

	st, err := store.Open(path)
	if err != nil {
		return store.Session{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	name := opts.Session
	if name == "" {
		name = sessionName(source)
	}

	sess, err := st.SaveRun(ctx, name, source, events, records)
	if err != nil {
		return store.Session{}, WrapExitError(ExitFailure, "failed to save session", err)
	}
	return sess, nil
}

// sessionName derives a default name from the feed path.
func sessionName(source string) string {
	if source == "-" {
		return "stdin"
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// loadFeed reads a feed file, or stdin when source is "-".
func loadFeed(source, inputFormat string, stdin io.Reader) ([]ir.Event, error) {
	if source != "-" {
		if inputFormat == "" {
			return feed.Load(source)
		}
		format, err := feed.ParseFormat(inputFormat)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		defer file.Close()
		return feed.Read(file, format)
	}

	if inputFormat == "" {
		return nil, fmt.Errorf("reading stdin requires --input-format")
	}
	format, err := feed.ParseFormat(inputFormat)
	if err != nil {
		return nil, err
	}
	return feed.Read(stdin, format)
}

// signalContext cancels on SIGINT/SIGTERM. Uses the command's context when
// set (tests), otherwise Background.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeReconstructText(w io.Writer, result ReconstructResult, records []ir.Record, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tNAME\tTIMES")
	for i, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, rec.Kind, rec.Name, formatTimes(rec))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	s := result.Stats
	fmt.Fprintf(w, "%d record(s) from %d event(s): %d instance(s), %d closed, %d orphan end(s), %d open\n",
		len(records), s.Events, s.Instances, s.ClosedMarkers, s.OrphanEnds, s.PendingBegins)
	if result.Rejected > 0 {
		fmt.Fprintf(w, "Warning: %d event(s) rejected\n", result.Rejected)
	}
	if verbose {
		fmt.Fprintf(w, "Events hash:  %s\n", result.EventsHash)
		fmt.Fprintf(w, "Records hash: %s\n", result.RecordsHash)
	}
	if result.Session != nil {
		fmt.Fprintf(w, "Saved session %s (%s)\n", result.Session.ID, result.Session.Name)
	}
	return nil
}

// formatTimes renders times with the orphan sentinel shown as "-".
func formatTimes(rec ir.Record) string {
	parts := make([]string, len(rec.Times))
	for i, t := range rec.Times {
		if i == 0 && rec.IsOrphan() {
			parts[i] = "-"
			continue
		}
		parts[i] = fmt.Sprintf("%g", t)
	}
	if rec.IsOpen() {
		return parts[0] + " .. (open)"
	}
	return strings.Join(parts, " .. ")
}
