package cli

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingDatabase_JSONEnvelope(t *testing.T) {
	tests := []struct {
		name string
		cmd  func(*RootOptions) *cobra.Command
		args []string
	}{
		{"replay", func(o *RootOptions) *cobra.Command { return NewReplayCommand(o) }, nil},
		{"sessions", func(o *RootOptions) *cobra.Command { return NewSessionsCommand(o) }, nil},
		{"export", func(o *RootOptions) *cobra.Command { return NewExportCommand(o) }, []string{"--session", "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(tt.cmd(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeStore, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, "MARKERSET_DB")
		})
	}
}

func TestMissingDatabase_TextHasNoEnvelope(t *testing.T) {
	out, _, err := execute(NewSessionsCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, out)
}

func TestAsExitError(t *testing.T) {
	original := NewExitError(ExitCommandError, "no database")
	assert.Same(t, original, asExitError(original, ExitFailure, "ignored"))

	wrapped := asExitError(assert.AnError, ExitFailure, "save failed")
	assert.Equal(t, ExitFailure, wrapped.Code)
	assert.ErrorIs(t, wrapped, assert.AnError)
}
