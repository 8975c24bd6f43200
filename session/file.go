package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps entries in a JSON object on disk. Several actors may share one file;
// each FileStore only touches its own keys.
type FileStore struct {
	path string
	keys Keys
	mu   *sync.Mutex
}

var fileLocks sync.Map

// NewFileStore returns a store writing keys into the JSON file at path.
func NewFileStore(path string, keys Keys) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store requires a path")
	}
	if !keys.valid() {
		return nil, errors.New("file store requires distinct access and refresh keys")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	mu, _ := fileLocks.LoadOrStore(abs, &sync.Mutex{})
	return &FileStore{path: abs, keys: keys, mu: mu.(*sync.Mutex)}, nil
}

func (s *FileStore) Get(context.Context) (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: entries[s.keys.Access], Refresh: entries[s.keys.Refresh]}, nil
}

func (s *FileStore) Set(_ context.Context, pair TokenPair) error {
	return s.update(func(entries map[string]string) error {
		putOrDelete(entries, s.keys.Access, pair.Access)
		putOrDelete(entries, s.keys.Refresh, pair.Refresh)
		return nil
	})
}

func (s *FileStore) SetAccess(_ context.Context, access string) error {
	return s.update(func(entries map[string]string) error {
		if entries[s.keys.Refresh] == "" {
			return ErrNoSession
		}
		putOrDelete(entries, s.keys.Access, access)
		return nil
	})
}

func (s *FileStore) Clear(context.Context) error {
	return s.update(func(entries map[string]string) error {
		delete(entries, s.keys.Access)
		delete(entries, s.keys.Refresh)
		return nil
	})
}

func (s *FileStore) update(mutate func(map[string]string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	if err := mutate(entries); err != nil {
		return err
	}
	return s.write(entries)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStoreUnavailable, s.path, err)
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func putOrDelete(entries map[string]string, key, value string) {
	if value == "" {
		delete(entries, key)
		return
	}
	entries[key] = value
}
