package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/markerset/internal/feed"
)

// FeedValidation holds the validation result for one feed file.
type FeedValidation struct {
	Path   string       `json:"path"`
	Valid  bool         `json:"valid"`
	Issues []feed.Issue `json:"issues,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Feeds []FeedValidation `json:"feeds"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <feed>...",
		Short: "Check feed files against the event schema",
		Long: `Check the shape of event feeds without reconstructing them.

Every event needs a kind of instance, begin or end, a non-empty name and a
numeric at. Timestamp order is not checked.

Exit codes:
  0 - All feeds are well-formed
  1 - One or more feeds have issues
  2 - Command error (unreadable file, unknown extension)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Feeds: make([]FeedValidation, 0, len(paths))}
	for _, path := range paths {
		f.VerboseLog("Validating %s", path)

		issues, err := feed.Validate(path)
		if err != nil {
			return f.fail(ErrCodeFeed, WrapExitError(ExitCommandError, fmt.Sprintf("failed to validate %s", path), err))
		}

		fv := FeedValidation{Path: path, Valid: len(issues) == 0, Issues: issues}
		if !fv.Valid {
			result.Valid = false
		}
		result.Feeds = append(result.Feeds, fv)
	}

	if f.JSON() {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeInvalidFeed, Message: "feed validation failed"}
		}
		if err := f.Encode(response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Feeds {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s\n", fv.Path)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", fv.Path)
			for _, issue := range fv.Issues {
				fmt.Fprintf(w, "  %s\n", issue)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "feed validation failed")
	}
	return nil
}
