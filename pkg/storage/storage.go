package storage

import (
	"context"
	"errors"
	"os"
)

const (
	// StandaloneBucket selects the local filesystem instead of S3.
	StandaloneBucket = "standalone"
)

var (
	// ErrNotFound is returned when a key has no stored object.
	ErrNotFound = errors.New("Not found")
)

// Storage reads and writes objects by key. Keys use "/" separators.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, body []byte, options *Options) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Options for a write.
type Options struct {
	// TTL is the number of seconds the object should live. Zero means forever. Only S3
	// honours it.
	TTL int64

	// Mode and DirMode apply to the filesystem storage.
	Mode    os.FileMode
	DirMode os.FileMode
}

// NewOptions returns the default write options.
func NewOptions() Options {
	return Options{
		Mode:    0644,
		DirMode: 0755,
	}
}

// CreateStorage returns filesystem storage for the standalone bucket and S3 storage for any
// other bucket.
func CreateStorage(config Config) Storage {
	if config.Bucket == StandaloneBucket || len(config.Bucket) == 0 {
		return NewFilesystemStorage(config)
	}
	return NewS3Storage(config)
}
