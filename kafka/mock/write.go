package mock

import (
	"context"
	"fmt"

	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/kafka/names"
	"time"
)

// Write stamps the messages with the current time and appends them
func (k *kafka) Write(ctx context.Context, topicName string, messages []api.Message) (int64, error) {
	now := time.Now()
	batch := make([]api.IncomingMessage, len(messages))
	for i, m := range messages {
		batch[i] = api.IncomingMessage{Message: m, Time: now}
	}
	return k.WriteBackdated(ctx, topicName, batch)
}

// WriteBackdated appends the messages keeping their timestamps, which must
// not go back in time
func (k *kafka) WriteBackdated(ctx context.Context, topicName string, messages []api.IncomingMessage) (int64, error) {
	must.OK(names.ValidateTopicName(topicName))
	if len(messages) == 0 {
		return 0, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.failWrites != nil {
		return 0, k.failWrites
	}

	t := k.topic(topicName)
	base := int64(len(t.records))
	for i, m := range messages {
		if m.Topic != topicName {
			panic(fmt.Errorf("topic mismatch on write: %s (expected %s)", m.Topic, topicName))
		}
		if n := len(t.records); n > 0 && t.records[n-1].Time.After(m.Time) {
			panic(fmt.Errorf("non-monotonic timestamps in topic %s: %v after %v", topicName, m.Time, t.records[n-1].Time))
		}
		m.Offset = base + int64(i)
		t.records = append(t.records, m)
	}

	close(t.changed)
	t.changed = make(chan struct{})
	return base, nil
}

// topic returns the named topic, creating it if needed. Must be called with
// the write lock held.
func (k *kafka) topic(name string) *topic {
	t := k.topics[name]
	if t == nil {
		t = &topic{changed: make(chan struct{})}
		k.topics[name] = t
		close(k.created)
		k.created = make(chan struct{})
	}
	return t
}
