package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps entries in a JSON object on disk. Every read goes to the
// file, so writes made by another process are picked up immediately.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath returns ~/.config/seatdesk/identity.json, honouring XDG_CONFIG_HOME
func DefaultFilePath() string {
	configDirectory := os.Getenv("XDG_CONFIG_HOME")
	if configDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "seatdesk-identity.json")
		}
		configDirectory = filepath.Join(homeDirectory, ".config")
	}
	return filepath.Join(configDirectory, "seatdesk", "identity.json")
}

// errCorrupt marks an identity file that exists but cannot be parsed
var errCorrupt = errors.New("identity file is corrupt")

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading identity file %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w: %w", f.path, errCorrupt, err)
	}
	return entries, nil
}

// readForWrite is read for callers that replace the file anyway: a corrupt
// file is dropped so the next write repairs it.
func (f *FileStore) readForWrite() (map[string]string, bool, error) {
	entries, err := f.read()
	if errors.Is(err, errCorrupt) {
		slog.Warn("Discarding corrupt identity file", "path", f.path, "error", err)
		return map[string]string{}, true, nil
	}
	return entries, false, err
}

// write replaces the file atomically with mode 0600 since it holds a token
func (f *FileStore) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(f.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating identity directory %s: %w", directory, err)
	}

	tmp, err := os.CreateTemp(directory, ".identity-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", directory, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod identity file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing identity file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing identity file %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	return f.SetMany(ctx, map[string]string{key: value})
}

func (f *FileStore) Remove(ctx context.Context, key string) error {
	return f.RemoveMany(ctx, key)
}

func (f *FileStore) SetMany(_ context.Context, updates map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, _, err := f.readForWrite()
	if err != nil {
		return err
	}
	for k, v := range updates {
		entries[k] = v
	}
	return f.write(entries)
}

func (f *FileStore) RemoveMany(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, changed, err := f.readForWrite()
	if err != nil {
		return err
	}

	for _, k := range keys {
		if _, ok := entries[k]; ok {
			delete(entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(entries)
}

// Ping checks that the file, if present, is readable
func (f *FileStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.read()
	return err
}

func (f *FileStore) Close() error { return nil }
