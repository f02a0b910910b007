package storage

import "fmt"

const (
	// DefaultMaxRetries is the number of retries for a write operation
	DefaultMaxRetries = 4
)

// Config holds all configuration for the Storage.
//
// Config is geared towards "bucket" style storage, where you have a
// specific root (the Bucket). The filesystem storage uses Root as its base directory.
type Config struct {
	Bucket     string
	Root       string
	MaxRetries int

	Region    string
	AccessKey string
	Secret    string
}

// NewConfig returns a new Config with AWS style options.
func NewConfig(bucket, root string) Config {
	return Config{
		Bucket:     bucket,
		Root:       root,
		MaxRetries: DefaultMaxRetries,
	}
}

// String returns a custom string representation.
//
// This is important so we don't log sensitive config values.
func (c Config) String() string {
	root := ""
	if len(c.Root) > 0 {
		root = fmt.Sprintf("Root:%s ", c.Root)
	}

	return fmt.Sprintf("{Bucket:%v %sRegion:%v MaxRetries:%v Secret:****}",
		c.Bucket,
		root,
		c.Region,
		c.MaxRetries)
}
