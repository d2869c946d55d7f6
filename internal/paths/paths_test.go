package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataFiles(t *testing.T) {
	if got := TasksFile("data"); got != filepath.Join("data", "tasks.json") {
		t.Fatalf("TasksFile = %q", got)
	}
	if got := KeyFile("data"); got != filepath.Join("data", "key.txt") {
		t.Fatalf("KeyFile = %q", got)
	}
}

func TestHomeFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	f, err := HomeKeyFile()
	if err != nil {
		t.Fatalf("home key file: %v", err)
	}
	if f != filepath.Join(home, ".executive-key") {
		t.Fatalf("HomeKeyFile = %q", f)
	}
}

func TestReadTrimmed(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("  abc123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	v, ok := ReadTrimmed(path)
	if !ok || v != "abc123" {
		t.Fatalf("ReadTrimmed = %q, %v", v, ok)
	}

	if _, ok := ReadTrimmed(filepath.Join(dir, "missing")); ok {
		t.Fatalf("missing file reported ok")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := ReadTrimmed(empty); ok {
		t.Fatalf("blank file reported ok")
	}
}
