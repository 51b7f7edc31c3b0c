package command

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// runApp runs the CLI with args and returns what it wrote to stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"fergando-md"}, args...))
	return out.String(), err
}

// writeConfig writes a YAML config whose session directory is inside a
// temp dir and returns its path and the session directory.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	sessionDir := filepath.Join(dir, "session")
	body := "session:\n  storage:\n    path: " + sessionDir + "\n" + extra
	path := filepath.Join(dir, "fergando.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, sessionDir
}
