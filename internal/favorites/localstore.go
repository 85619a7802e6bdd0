package favorites

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLocalStore implements LocalStore with an atomically-rewritten JSON
// file, standing in for browser local storage.
type FileLocalStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileLocalStore creates a file-backed local store at filePath.
func NewFileLocalStore(filePath string) *FileLocalStore {
	return &FileLocalStore{filePath: filePath}
}

// Load reads the stored id list. A missing file is an empty list.
func (s *FileLocalStore) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read favorites file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse favorites file: %w", err)
	}
	return ids, nil
}

// Save writes the id list atomically via temp file + rename.
func (s *FileLocalStore) Save(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return nil
	}

	if ids == nil {
		ids = []string{}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create favorites directory: %w", err)
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write favorites file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename favorites file: %w", err)
	}
	return nil
}
