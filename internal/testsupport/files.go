package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTranscript writes a transcript fixture into dir and returns its path.
func WriteTranscript(t testing.TB, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write transcript %s: %v", name, err)
	}
	return path
}

// TranscriptFolder creates a temp folder populated with the given transcript
// files (name -> contents) and returns its path.
func TranscriptFolder(t testing.TB, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, contents := range files {
		WriteTranscript(t, dir, name, contents)
	}
	return dir
}
