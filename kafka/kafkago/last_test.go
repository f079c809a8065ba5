package kafkago

import (
	"context"
	"errors"
	"testing"

	"github.com/ridge/redchat/test"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLastOffsetAPI struct {
	nullAPI
	conn  mockConn
	dials int
}

func (m *mockLastOffsetAPI) DialLeader(ctx context.Context, network string, address string, topic string, partition int) (kafkaConn, error) {
	m.dials++
	return &m.conn, nil
}

func TestLastOffset(t *testing.T) {
	ctx := test.Context(t)

	var api mockLastOffsetAPI
	api.conn.On("SetDeadline", mock.AnythingOfType("time.Time")).Return(nil)
	api.conn.On("ReadLastOffset").Return(int64(42), nil).Once()
	api.conn.On("ReadLastOffset").Return(int64(43), nil).Once()

	c := newClient([]string{"localhost:6666"}, &api)

	offset, err := c.LastOffset(ctx, "chat-room")
	require.NoError(t, err)
	require.Equal(t, int64(42), offset)

	offset, err = c.LastOffset(ctx, "chat-room")
	require.NoError(t, err)
	require.Equal(t, int64(43), offset)
	require.Equal(t, 1, api.dials) // connection is cached

	api.conn.AssertExpectations(t)
}

func TestLastOffsetPermanentError(t *testing.T) {
	ctx := test.Context(t)

	var api mockLastOffsetAPI
	api.conn.On("SetDeadline", mock.AnythingOfType("time.Time")).Return(nil)
	api.conn.On("ReadLastOffset").Return(int64(0), kafka.TopicAuthorizationFailed).Once()
	api.conn.On("Close").Return(nil).Once()

	c := newClient([]string{"localhost:6666"}, &api)

	_, err := c.LastOffset(ctx, "chat-room")
	require.True(t, errors.Is(err, kafka.TopicAuthorizationFailed))

	api.conn.AssertExpectations(t)
}
