package scan

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/kafka/mock"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/publish"
	"github.com/ridge/redchat/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"time"
)

const topic = "chat-room"

var quick = Config{Timeout: 300 * time.Millisecond, PollInterval: 20 * time.Millisecond}

func write(t *testing.T, client kafka.ClientBackdate, format message.Format, envs ...message.Envelope) {
	var batch []kafka.IncomingMessage
	for _, env := range envs {
		data, err := message.EncodeEnvelope(env, format)
		require.NoError(t, err)
		batch = append(batch, kafka.IncomingMessage{Message: kafka.Message{Topic: topic, Value: data}, Time: testTime})
	}
	_, err := client.WriteBackdated(test.Context(t), topic, batch)
	require.NoError(t, err)
}

func TestScanTimesOutOnEmptyTopic(t *testing.T) {
	ctx := test.Context(t)

	start := time.Now()
	s := New(mock.New(), topic, message.FormatJSON, quick)
	require.Equal(t, StateIdle, s.State())
	res, err := s.Run(ctx)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, StateTimedOut, res.State)
	require.Equal(t, StateTimedOut, s.State())
	require.Zero(t, res.View.Len())
}

func TestScanAppliesMutations(t *testing.T) {
	ctx := test.Context(t)
	k := mock.New()
	write(t, k, message.FormatProtobuf,
		chat("alice", "hi"),  // 0
		chat("bob", "yo"),    // 1
		replace("hello", 1),  // 2
		chat("carol", "hey"), // 3
		del(3),               // 4
	)

	res, err := Run(ctx, k, topic, message.FormatProtobuf, quick)
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Offset: 0, Time: testTime, Message: message.Message{Username: "alice", Text: "hi"}},
		{Offset: 1, Time: testTime, Message: message.Message{Username: "admin", Text: "hello"}, ReplacedBy: message.Offset(2)},
	}, res.View.Entries())
}

func TestScanSkipsUndecodable(t *testing.T) {
	ctx := test.Context(t)
	k := mock.New()
	write(t, k, message.FormatJSON, chat("alice", "hi"))
	_, err := k.WriteBackdated(ctx, topic, []kafka.IncomingMessage{
		{Message: kafka.Message{Topic: topic, Value: []byte("alice: not json")}, Time: testTime},
	})
	require.NoError(t, err)
	write(t, k, message.FormatJSON, chat("bob", "yo"))

	res, err := Run(ctx, k, topic, message.FormatJSON, quick)
	require.NoError(t, err)
	require.Equal(t, 2, res.View.Len())
	require.Len(t, res.Failures, 1)
	require.Equal(t, int64(1), res.Failures[0].Offset)
	var formatErr *message.FormatError
	require.ErrorAs(t, res.Failures[0].Err, &formatErr)
}

func TestScanSeesRecordsArrivingLater(t *testing.T) {
	ctx := test.Context(t)
	k := mock.New()

	data, err := message.EncodeEnvelope(chat("alice", "late"), message.FormatJSON)
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_, err := k.Write(ctx, topic, []kafka.Message{{Topic: topic, Value: data}})
		assert.NoError(t, err)
	}()

	res, err := Run(ctx, k, topic, message.FormatJSON, Config{Timeout: time.Second, PollInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, 1, res.View.Len())
}

// brokenClient delivers the records of the underlying client and then fails
type brokenClient struct {
	kafka.Client
	err error
}

func (c brokenClient) Read(ctx context.Context, topic string, offset int64, dest chan<- *kafka.IncomingMessage) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inner := make(chan *kafka.IncomingMessage)
	go func() {
		_ = c.Client.Read(ctx, topic, offset, inner)
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-inner:
			if m == nil {
				return c.err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case dest <- m:
			}
		}
	}
}

func TestScanStreamError(t *testing.T) {
	ctx := test.Context(t)
	k := mock.New()
	write(t, k, message.FormatJSON, chat("alice", "hi"), chat("bob", "yo"))

	failure := errors.New("connection reset")
	start := time.Now()
	res, err := Run(ctx, brokenClient{Client: k, err: failure}, topic, message.FormatJSON, Config{Timeout: time.Minute})
	require.Less(t, time.Since(start), 30*time.Second)

	var transportErr *publish.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.ErrorIs(t, err, failure)
	require.Equal(t, StateStreamError, res.State)
	require.Equal(t, 2, res.View.Len())
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()

	_, err := Run(ctx, mock.New(), topic, message.FormatJSON, quick)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRender(t *testing.T) {
	v := NewView()
	v.Apply(1, testTime, chat("alice", "hi"))
	v.Apply(2, testTime.Add(1500*time.Millisecond), chat("bob", "yo"))
	v.Apply(4, testTime, replace("hello", 1))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Result{
		View:     v,
		Failures: []Failure{{Offset: 3, Err: errors.New("bad payload")}},
	}))
	require.Equal(t, "[1] 2023-06-01 10:30:00.000 admin: hello (replaced by offset 4)\n"+
		"[2] 2023-06-01 10:30:01.500 bob: yo\n"+
		"[3] undecodable: bad payload\n", buf.String())
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Result{View: NewView()}))
	require.Equal(t, "no messages found\n", buf.String())
}
