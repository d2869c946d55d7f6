// Package paths resolves the data directory layout and the per-host identity
// files consumed by the hook client and produced by the setup flow.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// TasksFile returns the durable task document path inside dataDir.
func TasksFile(dataDir string) string {
	return filepath.Join(dataDir, "tasks.json")
}

// KeyFile returns the local API key file path inside dataDir.
func KeyFile(dataDir string) string {
	return filepath.Join(dataDir, "key.txt")
}

// HomeKeyFile is where setup places the shared API key for hook callers.
func HomeKeyFile() (string, error) {
	return homeFile(".executive-key")
}

// HomeMachineFile holds this host's machine identity.
func HomeMachineFile() (string, error) {
	return homeFile(".executive-machine")
}

// HomeHostFile holds the dashboard base URL hook callers talk to.
func HomeHostFile() (string, error) {
	return homeFile(".executive-host")
}

func homeFile(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, name), nil
}

// ReadTrimmed reads path and returns its whitespace-trimmed contents.
// Returns ok=false when the file is missing or empty.
func ReadTrimmed(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", false
	}
	return s, true
}
