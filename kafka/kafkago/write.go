package kafkago

import (
	"context"
	"fmt"

	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/tlog"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"time"
)

const writerTimeout = time.Minute

func (c *client) Write(ctx context.Context, topic string, messages []api.Message) (int64, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	records := make([]kafka.Record, 0, len(messages))
	for _, m := range messages {
		if m.Topic != topic {
			panic(fmt.Errorf("topic mismatch on write: %s (expected %s)", m.Topic, topic))
		}
		headers := make([]kafka.Header, 0, len(m.Headers))
		for k, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		records = append(records, kafka.Record{
			Key:     kafka.NewBytes([]byte(m.Key)),
			Value:   kafka.NewBytes(m.Value),
			Headers: headers,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, writerTimeout)
	defer cancel()

	res, err := c.lib.Produce(ctx, c.brokers, &kafka.ProduceRequest{
		Topic:        topic,
		Partition:    partition,
		RequiredAcks: kafka.RequireAll,
		Records:      kafka.NewRecordReader(records...),
	})
	if err == nil {
		err = res.Error
	}
	if err == nil {
		for _, recErr := range res.RecordErrors {
			err = recErr
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %d message(s) to topic %s: %w", len(messages), topic, err)
	}

	tlog.Get(ctx).Debug("Wrote messages", zap.String("topic", topic), zap.Int("n", len(messages)), zap.Int64("baseOffset", res.BaseOffset))
	return res.BaseOffset, nil
}
