package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store persisted as one JSON document on disk.
// Every write rewrites the whole document via rename, so a
// crashed writer never tears the file.
type File struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

var _ Store = (*File)(nil)

// NewFile opens (or creates) the document at [path].
func NewFile(path string) (*File, error) {
	s := &File{
		path: path,
		data: make(map[string]string),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, &s.data); err != nil {
			// corrupted document ; fail open to empty state
			s.data = make(map[string]string)
		}
	}
	return s, nil
}

func (s *File) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *File) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flush()
}

func (s *File) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// flush ; s.mu MUST be held
func (s *File) flush() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".storage-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, s.path)
}
