package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore persists one JSON value in a file. Writes go through a temp file
// and a rename so readers never see a partial document.
type JSONStore struct {
	mu       sync.Mutex
	filePath string
}

// NewJSONStore creates dataDir if needed and returns a store for dataDir/filename.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("json store: %w", err)
	}
	return &JSONStore{filePath: filepath.Join(dataDir, filename)}, nil
}

// Load decodes the file into data. A missing file leaves data untouched.
func (s *JSONStore) Load(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(data)
}

// Mutate loads the file into data, runs fn and saves data back when fn succeeds.
// The whole read-modify-write runs under one lock.
func (s *JSONStore) Mutate(data interface{}, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(data); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.save(data)
}

func (s *JSONStore) load(data interface{}) error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("json store: open: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(data); err != nil {
		return fmt.Errorf("json store: decode %s: %w", s.filePath, err)
	}
	return nil
}

func (s *JSONStore) save(data interface{}) error {
	tempFile := s.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("json store: create: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return fmt.Errorf("json store: encode: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("json store: close: %w", err)
	}
	return os.Rename(tempFile, s.filePath)
}
