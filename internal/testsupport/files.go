package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteText writes text to path, creating parent directories.
func WriteText(t testing.TB, path, text string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Commentary builds a transcript long enough to pass the minimum length check
// that mentions each of the provided names.
func Commentary(names ...string) string {
	var b strings.Builder
	b.WriteString("Kick-off under the lights and the crowd is already loud. ")
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(" push forward down the flank and win a corner. ")
	}
	b.WriteString("Half-time whistle blows after a tense spell of possession.")
	return b.String()
}
