package kafkago

import (
	"context"
	"fmt"

	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/retry"
	"github.com/ridge/redchat/tlog"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"time"
)

const (
	readerMaxBytes = 1e7
	readerMaxWait  = 500 * time.Millisecond
)

var readerRetry = retry.FixedConfig{RetryAfter: time.Second}

func (c *client) Read(ctx context.Context, topic string, offset int64, dest chan<- *api.IncomingMessage) error {
	ctx = tlog.With(ctx, zap.String("topic", topic))
	logger := tlog.Get(ctx)
	logger.Info("Subscribing to topic", zap.Int64("offset", offset))

	kr := c.lib.NewReader(kafka.ReaderConfig{
		Brokers:   c.brokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  readerMaxBytes,
		MaxWait:   readerMaxWait,
	})
	defer must.Do(kr.Close)

	must.OK(kr.SetOffset(offset)) // only fails for readers with a consumer group

	needLag := true
	var first, last int64
	count := 0
	for ctx.Err() == nil {
		message, more, err := readMessage(ctx, needLag, kr)
		if err != nil {
			return err
		}
		needLag = false

		if message != nil {
			if count == 0 {
				first = message.Offset
			}
			last = message.Offset
			count++

			incoming := &api.IncomingMessage{
				Message: api.Message{
					Topic:   topic,
					Key:     string(message.Key),
					Headers: map[string]string{},
					Value:   message.Value,
				},
				Time:   message.Time,
				Offset: message.Offset,
			}
			for _, h := range message.Headers {
				incoming.Headers[h.Key] = string(h.Value)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case dest <- incoming:
			}
		}

		if !more {
			if count == 0 {
				logger.Debug("Reached hot end without obtaining any records", zap.Int64("offset", offset))
			} else {
				logger.Debug("Obtained a batch of records and reached hot end",
					zap.Int("n", count), zap.Int64("first", first), zap.Int64("last", last))
			}
			count = 0

			select {
			case <-ctx.Done():
				return ctx.Err()
			case dest <- nil:
			}
		}
	}

	return ctx.Err()
}

// readMessage reads one message from the topic.
//
// When needLag is set, checks the lag first and returns a nil message if the
// reader is already at the hot end. Retries temporary errors until success.
func readMessage(ctx context.Context, needLag bool, kr kafkaReader) (msg *kafka.Message, more bool, err error) {
	err = retry.Do(ctx, readerRetry, func() error {
		if needLag {
			lag, err := kr.ReadLag(ctx)
			if err != nil {
				if shouldRetry(err) {
					return retry.Retriable(fmt.Errorf("failed to retrieve topic lag: %w", err))
				}
				return err
			}
			switch {
			case lag < 0:
				return api.ErrContinuityBroken
			case lag == 0:
				return nil
			}
		}

		m, err := kr.FetchMessage(ctx)
		if err != nil {
			if shouldRetry(err) {
				needLag = true
				return retry.Retriable(fmt.Errorf("failed to read from topic: %w", err))
			}
			return err
		}
		msg = &m
		more = kr.Lag() > 0
		return nil
	})
	return msg, more, err
}
