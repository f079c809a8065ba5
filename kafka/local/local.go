// Package local is a local file-based implementation of kafka.Client. It stores
// data in append-only topic files in a local directory. Several instances of
// local.Kafka communicate correctly via this directory even across process
// boundaries, so several chat sessions on one machine can share a room
// without running a broker.
//
// The implementation is not perfectly reliable: it can theoretically leave a
// topic file corrupted if a write succeeds partially. However, this is highly
// unlikely, so the implementation is good enough for local testing.
package local

import (
	"fmt"
	"os"

	"github.com/ridge/redchat/kafka/api"
)

type client struct {
	dir string
}

// New creates a new Kafka instance based on the given directory name. The
// directory will be created along with its intermediate parents if it doesn't
// already exist.
func New(dir string) (api.ClientBackdate, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local Kafka: %w", err)
	}
	return client{dir: dir}, nil
}
