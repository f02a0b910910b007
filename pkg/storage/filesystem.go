package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStorage implements the Storage interface for interacting with
// the local filesystem. Keys are paths relative to Config.Root.
type FilesystemStorage struct {
	Config Config
}

// NewFilesystemStorage implements the Storage interface for simple S3 like
// file system interactions.
func NewFilesystemStorage(config Config) FilesystemStorage {
	return FilesystemStorage{
		Config: config,
	}
}

// Write will write the data to the file at key, creating directories as needed.
func (f FilesystemStorage) Write(ctx context.Context,
	key string,
	body []byte,
	options *Options) error {

	if options == nil {
		opts := NewOptions()
		options = &opts
	}

	filename := f.buildPath(key)

	if err := f.ensureExists(filepath.Dir(filename), options); err != nil {
		return err
	}

	var mode os.FileMode = 0644
	if options.Mode != 0 {
		mode = options.Mode
	}

	return os.WriteFile(filename, body, mode)
}

// Read reads the data from a file on the local filesystem.
func (f FilesystemStorage) Read(ctx context.Context,
	key string) ([]byte, error) {

	b, err := os.ReadFile(f.buildPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	return b, err
}

// Remove removes the file at key.
func (f FilesystemStorage) Remove(ctx context.Context, key string) error {
	err := os.Remove(f.buildPath(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}

	return err
}

// List returns the keys of the files directly under the prefix directory, sorted.
//
// The prefix can be empty.
func (f FilesystemStorage) List(ctx context.Context, prefix string) ([]string, error) {
	dir := f.buildPath(prefix)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	keys := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		key := entry.Name()
		if len(prefix) > 0 {
			key = strings.Join([]string{strings.TrimSuffix(prefix, "/"), key}, "/")
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

func (f FilesystemStorage) buildPath(key string) string {
	parts := []string{}

	if len(f.Config.Root) > 0 {
		parts = append(parts, f.Config.Root)
	}

	if len(key) > 0 {
		parts = append(parts, key)
	}

	return filepath.FromSlash(strings.Join(parts, "/"))
}

func (f FilesystemStorage) ensureExists(dir string, options *Options) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, options.DirMode); err != nil {
			return err
		}
	}

	return nil
}
