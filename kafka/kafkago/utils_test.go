package kafkago

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"time"
)

type nullAPI struct{}

func (nullAPI) NewReader(config kafka.ReaderConfig) kafkaReader {
	panic("not implemented")
}

func (nullAPI) DialLeader(ctx context.Context, network string, address string, topic string, partition int) (kafkaConn, error) {
	panic("not implemented")
}

func (nullAPI) Produce(ctx context.Context, brokers []string, req *kafka.ProduceRequest) (*kafka.ProduceResponse, error) {
	panic("not implemented")
}

type mockConn struct {
	mock.Mock
}

func (m *mockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockConn) SetDeadline(deadline time.Time) error {
	args := m.Called(deadline)
	return args.Error(0)
}

func (m *mockConn) ReadLastOffset() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func matchAny() any {
	return mock.MatchedBy(func(any) bool {
		return true
	})
}
