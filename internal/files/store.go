// Package files stores downloaded file payloads on disk, keyed by file id.
package files

import (
	"fmt"
	"os"
	"path/filepath"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Path returns the on-disk location for a file id.
func (s *Store) Path(fileID string) string {
	return filepath.Join(s.dir, fileID)
}

// Has reports whether the payload for the file id is on disk.
func (s *Store) Has(fileID string) bool {
	info, err := os.Stat(s.Path(fileID))

	return err == nil && !info.IsDir()
}

// Write stores a payload. An existing payload is replaced.
func (s *Store) Write(fileID string, payload []byte) error {
	if err := os.WriteFile(s.Path(fileID), payload, 0o644); err != nil {
		return fmt.Errorf("write file %s: %w", fileID, err)
	}

	return nil
}

// Read returns a stored payload.
func (s *Store) Read(fileID string) ([]byte, error) {
	payload, err := os.ReadFile(s.Path(fileID))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}

	return payload, nil
}
