// Package mock contains an in-memory implementation of kafka.Client for tests.
package mock

import (
	"sync"

	"github.com/ridge/redchat/kafka/api"
)

// topic holds the records of one topic. changed is closed and replaced on
// every append.
type topic struct {
	records []api.IncomingMessage
	changed chan struct{}
}

type kafka struct {
	mu      sync.RWMutex
	topics  map[string]*topic
	created chan struct{} // closed and replaced when a topic appears

	failWrites error
}

// Kafka is an in-memory Kafka simulator
type Kafka interface {
	api.ClientBackdate

	// FailWrites makes every subsequent write fail with the given error;
	// nil restores normal operation
	FailWrites(err error)
}

// New creates a new in-memory Kafka simulator
func New() Kafka {
	return &kafka{
		topics:  map[string]*topic{},
		created: make(chan struct{}),
	}
}

func (k *kafka) FailWrites(err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.failWrites = err
}
