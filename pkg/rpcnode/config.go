package rpcnode

import (
	"fmt"
	"net/url"
)

// Config is the connection configuration of a CKB node's JSON-RPC endpoint. The indexer
// methods are served by the same endpoint.
type Config struct {
	URL string
}

// NewConfig returns a config for the node at rawURL.
func NewConfig(rawURL string) *Config {
	return &Config{URL: rawURL}
}

// String returns a custom string representation.
//
// This is important so we don't log sensitive config values.
func (c Config) String() string {
	u, err := url.Parse(c.URL)
	if err != nil || u.User == nil {
		return fmt.Sprintf("{URL:%v}", c.URL)
	}

	u.User = url.UserPassword(u.User.Username(), "****")
	return fmt.Sprintf("{URL:%v}", u.String())
}
