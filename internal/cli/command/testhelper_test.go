package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// result is the outcome of one CLI invocation.
type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs the application with args and captures its output.
func runApp(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.RunContext(context.Background(), append([]string{"ptb-migrate"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "migrate", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// setupBase writes fixtures under a temp dir and returns the base path.
// files maps a category suffix ("" for the single file) to a fixture name.
func setupBase(t *testing.T, files map[string]string) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "data")
	for suffix, fixture := range files {
		if err := os.WriteFile(base+suffix, readFixture(t, fixture), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return base
}

// backups returns the backup files in dir.
func backups(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.bak"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	return matches
}
