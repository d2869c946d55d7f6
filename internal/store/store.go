// Package store persists the full task collection as one JSON document.
// Every save rewrites the document through a temp-file-then-rename sequence,
// so readers observe either the fully-old or fully-new contents.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ncr5012/executive/internal/api"
)

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Ensure creates the parent directory and seeds an empty document if none
// exists. An existing document is left untouched.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.Save(&api.TaskDocument{Tasks: []*api.Task{}})
}

// Load reads the current document. A missing or unparseable file reads as
// the empty document; the next save rewrites it.
func (s *Store) Load() (*api.TaskDocument, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &api.TaskDocument{Tasks: []*api.Task{}}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc api.TaskDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return &api.TaskDocument{Tasks: []*api.Task{}}, nil
	}
	if doc.Tasks == nil {
		doc.Tasks = []*api.Task{}
	}
	return &doc, nil
}

// Save atomically replaces the document: write to a temp file in the same
// directory, then rename over the target.
func (s *Store) Save(doc *api.TaskDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
