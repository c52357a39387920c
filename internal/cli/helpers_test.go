package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// sessionFeed yields: wut instance, tsst [2,3], abc [4,5], abc open at 6
// and a def orphan end at 7.
const sessionFeed = `{"at": 1, "kind": "instance", "name": "wut"}
{"at": 2, "kind": "begin", "name": "tsst"}
{"at": 3, "kind": "end", "name": "tsst"}
{"at": 4, "kind": "begin", "name": "abc"}
{"at": 5, "kind": "end", "name": "abc"}
{"at": 6, "kind": "begin", "name": "abc"}
{"at": 7, "kind": "end", "name": "def"}
`

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
