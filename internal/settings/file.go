package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/bstardust/flood-survey-collector/internal/logger"
)

// FileStore keeps preferences in a JSON file. The file is read on every Get
// and rewritten on every Set.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type preferencesFile struct {
	Values map[string]string `json:"values"`
}

// NewFileStore creates a store backed by path. An empty path uses a file in
// the user's home directory.
func NewFileStore(path string) *FileStore {
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".flood-collector-preferences.json")
		} else {
			path = ".flood-collector-preferences.json"
		}
	}
	return &FileStore{path: path}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value saved under key
func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set saves value under key
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		logger.Warn("Rewriting unreadable preferences file %s: %v", s.path, err)
		values = make(map[string]string)
	}
	values[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		logger.Error("Failed to create preferences directory: %v", err)
		return err
	}

	data, err := json.MarshalIndent(preferencesFile{Values: values}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		logger.Error("Failed to write preferences file: %v", err)
		return err
	}

	logger.Debug("Saved preference %s to %s", key, s.path)
	return nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}

	var f preferencesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	return f.Values, nil
}
