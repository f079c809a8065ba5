// Package publish turns chat operations into records of a Kafka topic.
//
// Replacement and deletion never touch existing records: they publish new
// records referencing the offset of the target.
package publish

import (
	"context"
	"fmt"

	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
)

const (
	// DefaultKey is the key of published records unless configured otherwise
	DefaultKey = "key"

	// AdminUsername is the author of deletion records
	AdminUsername = "admin"

	// DeletedText is the text of deletion records
	DeletedText = "[deleted]"
)

// Publisher publishes chat messages to a topic in a fixed format
type Publisher struct {
	client kafka.Client
	topic  string
	format message.Format
	key    string
}

// Option customizes a Publisher
type Option func(p *Publisher)

// WithKey sets the key of published records
func WithKey(key string) Option {
	return func(p *Publisher) {
		p.key = key
	}
}

// New creates a publisher
func New(client kafka.Client, topic string, format message.Format, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		topic:  topic,
		format: format,
		key:    DefaultKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the format of published payloads
func (p *Publisher) Format() message.Format {
	return p.format
}

// Chat publishes a plain chat message and returns its offset
func (p *Publisher) Chat(ctx context.Context, username, text string) (int64, error) {
	return p.publish(ctx, "chat", message.Envelope{Message: message.Message{Username: username, Text: text}})
}

// Replace publishes a record replacing the text of the record at target.
//
// Fails with message.ErrUnsupportedOperation in the Text format; nothing is
// published then.
func (p *Publisher) Replace(ctx context.Context, username, text string, target int64) (int64, error) {
	return p.publish(ctx, "replace", message.Envelope{
		Message:        message.Message{Username: username, Text: text},
		ReplacesOffset: message.Offset(target),
	})
}

// Delete publishes a record deleting the record at target.
//
// Fails with message.ErrUnsupportedOperation in the Text format; nothing is
// published then.
func (p *Publisher) Delete(ctx context.Context, target int64) (int64, error) {
	return p.publish(ctx, "delete", message.Envelope{
		Message:      message.Message{Username: AdminUsername, Text: DeletedText},
		DeleteOffset: message.Offset(target),
	})
}

func (p *Publisher) publish(ctx context.Context, op string, env message.Envelope) (int64, error) {
	payload, err := message.EncodeEnvelope(env, p.format)
	if err != nil {
		return 0, fmt.Errorf("cannot %s in %s format: %w", op, p.format, err)
	}

	logger := tlog.Get(ctx).With(zap.String("topic", p.topic), zap.Stringer("format", p.format), zap.Object("envelope", env))

	offset, err := p.client.Write(ctx, p.topic, []kafka.Message{{
		Topic: p.topic,
		Key:   p.key,
		Value: payload,
	}})
	if err != nil {
		logger.Warn("Publish failed", zap.String("op", op), zap.Error(err))
		return 0, &TransportError{Op: op, Topic: p.topic, Err: err}
	}
	logger.Debug("Published", zap.String("op", op), zap.Int64("offset", offset))
	return offset, nil
}

// TransportError is returned when the log rejects a record or cannot be
// reached
type TransportError struct {
	Op    string
	Topic string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: failed to publish to topic %s: %v", e.Op, e.Topic, e.Err)
}

// Unwrap returns the underlying transport error
func (e *TransportError) Unwrap() error {
	return e.Err
}
