package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "markerset", cmd.Use)
	assert.Contains(t, cmd.Long, "interval markers")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"reconstruct", "replay", "sessions", "export", "validate", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	logLevel := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logLevel)
	assert.Equal(t, "warn", logLevel.DefValue)

	logFormat := cmd.PersistentFlags().Lookup("log-format")
	require.NotNil(t, logFormat)
	assert.Equal(t, "text", logFormat.DefValue)
}

func TestReconstructCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"reconstruct"})
	require.NoError(t, err)

	for _, name := range []string{"input-format", "db", "session"} {
		flag := sub.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	asFlag := sub.Flags().Lookup("as")
	require.NotNil(t, asFlag)
	assert.Equal(t, "jsonl", asFlag.DefValue)

	outputFlag := sub.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	require.NotNil(t, sub.Flags().Lookup("update"))
	require.NotNil(t, sub.Flags().Lookup("filter"))
}

func TestRoot_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)

	_, _, err := execute(NewRootCommand(), "reconstruct", feedPath, "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)

	_, _, err := execute(NewRootCommand(), "reconstruct", feedPath, "--log-level", "loud")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRoot_OutputFromEnvironment(t *testing.T) {
	t.Setenv("MARKERSET_OUTPUT", "json")
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)

	out, _, err := execute(NewRootCommand(), "reconstruct", feedPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
}

func TestRoot_FlagBeatsEnvironment(t *testing.T) {
	t.Setenv("MARKERSET_OUTPUT", "json")
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)

	out, _, err := execute(NewRootCommand(), "reconstruct", feedPath, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.NotContains(t, out, `"status"`)
}

func TestRoot_DebugLogsGoToStderr(t *testing.T) {
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)
	dbPath := dir + "/m.db"

	out, errOut, err := execute(NewRootCommand(), "reconstruct", feedPath,
		"--format", "json", "--log-level", "info", "--log-format", "json", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, errOut, "session saved")
	assert.NotContains(t, out, "session saved")
}

func TestRoot_FlagOverridesInvalidEnvironment(t *testing.T) {
	t.Setenv("MARKERSET_OUTPUT", "xml")
	t.Setenv("MARKERSET_LOG_LEVEL", "loud")
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)

	out, _, err := execute(NewRootCommand(), "reconstruct", feedPath, "--format", "json", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
}

func TestRoot_InvalidEnvironmentWithoutFlag(t *testing.T) {
	t.Setenv("MARKERSET_OUTPUT", "xml")
	dir := t.TempDir()
	feedPath := writeFile(t, dir, "s.jsonl", sessionFeed)

	_, _, err := execute(NewRootCommand(), "reconstruct", feedPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}
