package mock

import (
	"context"

	"github.com/ridge/redchat/kafka/api"
)

// Read delivers the records of the topic starting from offset, then a nil
// once caught up, and keeps delivering new records as they are written.
// A topic that does not exist yet is read as empty.
func (k *kafka) Read(ctx context.Context, topic string, offset int64, dest chan<- *api.IncomingMessage) error {
	send := func(m *api.IncomingMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case dest <- m:
			return nil
		}
	}

	caughtUp := false
	for {
		batch, changed := k.since(topic, offset)
		for i := range batch {
			m := batch[i]
			if err := send(&m); err != nil {
				return err
			}
			offset = m.Offset + 1
			caughtUp = false
		}
		if !caughtUp {
			if err := send(nil); err != nil {
				return err
			}
			caughtUp = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// LastOffset returns the offset the next record written to the topic will get
func (k *kafka) LastOffset(ctx context.Context, topic string) (int64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if t := k.topics[topic]; t != nil {
		return int64(len(t.records)), nil
	}
	return 0, nil
}

// since returns a snapshot of the records from offset on and a channel closed
// on the next change relevant to the reader
func (k *kafka) since(topic string, offset int64) ([]api.IncomingMessage, <-chan struct{}) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	t := k.topics[topic]
	switch {
	case t == nil:
		return nil, k.created
	case offset >= int64(len(t.records)):
		return nil, t.changed
	default:
		return t.records[offset:], t.changed
	}
}
