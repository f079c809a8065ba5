package viewserver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/kafka/mock"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/scan"
	"github.com/ridge/redchat/test"
	"github.com/ridge/tj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"time"
)

const topic = "chat-room"

var testTime = time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC)

func testConfig(client kafka.Client) Config {
	return Config{
		Client: client,
		Format: message.FormatJSON,
		Scan:   scan.Config{Timeout: 200 * time.Millisecond, PollInterval: 20 * time.Millisecond},
		Live:   DefaultLiveConfig,
	}
}

func publish(t *testing.T, client kafka.ClientBackdate, format message.Format, envs ...message.Envelope) {
	var batch []kafka.IncomingMessage
	for _, env := range envs {
		data, err := message.EncodeEnvelope(env, format)
		require.NoError(t, err)
		batch = append(batch, kafka.IncomingMessage{Message: kafka.Message{Topic: topic, Value: data}, Time: testTime})
	}
	_, err := client.WriteBackdated(test.Context(t), topic, batch)
	require.NoError(t, err)
}

func get(t *testing.T, handler http.Handler, url string) (*http.Response, map[string]any) {
	r := httptest.NewRequest(http.MethodGet, url, nil).WithContext(test.Context(t))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	res := w.Result()
	t.Cleanup(func() { res.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res, body
}

func TestMessages(t *testing.T) {
	k := mock.New()
	publish(t, k, message.FormatProtobuf,
		message.Envelope{Message: message.Message{Username: "alice", Text: "hi"}},
		message.Envelope{Message: message.Message{Username: "bob", Text: "yo"}},
		message.Envelope{Message: message.Message{Username: "admin", Text: "hello"}, ReplacesOffset: message.Offset(1)},
	)

	res, body := get(t, Handler(testConfig(k)), "/topics/chat-room/messages?format=protobuf&timeout=300ms")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))
	require.Equal(t, map[string]any{
		"state": "timed-out",
		"entries": []any{
			map[string]any{"offset": 0.0, "time": "2023-06-01T10:30:00Z", "username": "alice", "text": "hi"},
			map[string]any{"offset": 1.0, "time": "2023-06-01T10:30:00Z", "username": "admin", "text": "hello", "replacedBy": 2.0},
		},
		"failures": []any{},
	}, body)
}

func TestMessagesGzip(t *testing.T) {
	k := mock.New()
	text := strings.Repeat("la", 300)
	publish(t, k, message.FormatJSON,
		message.Envelope{Message: message.Message{Username: "alice", Text: text}},
		message.Envelope{Message: message.Message{Username: "bob", Text: text}},
	)

	r := httptest.NewRequest(http.MethodGet, "/topics/chat-room/messages?timeout=300ms", nil).WithContext(test.Context(t))
	r.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	Handler(testConfig(k)).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	expected := tj.O{
		"state": "timed-out",
		"entries": tj.A{
			tj.O{"offset": 0, "time": "2023-06-01T10:30:00Z", "username": "alice", "text": text},
			tj.O{"offset": 1, "time": "2023-06-01T10:30:00Z", "username": "bob", "text": text},
		},
		"failures": tj.A{},
	}
	require.JSONEq(t, string(must.OK1(json.Marshal(expected))), string(body))
}

func TestMessagesSmallNotCompressed(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/topics/chat-room/messages?timeout=100ms", nil).WithContext(test.Context(t))
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	Handler(testConfig(mock.New())).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.JSONEq(t, `{"state":"timed-out","entries":[],"failures":[]}`, w.Body.String())
}

func TestMessagesFailures(t *testing.T) {
	k := mock.New()
	_, err := k.WriteBackdated(test.Context(t), topic, []kafka.IncomingMessage{
		{Message: kafka.Message{Topic: topic, Value: []byte("alice: hi")}, Time: testTime},
	})
	require.NoError(t, err)

	// text payload read as JSON
	res, body := get(t, Handler(testConfig(k)), "/topics/chat-room/messages")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, body["entries"])
	require.Len(t, body["failures"], 1)
}

func TestMessagesBadRequest(t *testing.T) {
	handler := Handler(testConfig(mock.New()))
	for _, url := range []string{
		"/topics/chat-room/messages?format=xml",
		"/topics/chat-room/messages?timeout=forever",
		"/topics/chat-room/messages?timeout=-1s",
		"/topics/chat-room/messages?timeout=1h",
		"/topics/chat%20room/messages",
	} {
		res, body := get(t, handler, url)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, url)
		assert.NotEmpty(t, body["error"], url)
	}
}

type brokenClient struct {
	kafka.Client
}

func (brokenClient) Read(ctx context.Context, topic string, offset int64, dest chan<- *kafka.IncomingMessage) error {
	return errors.New("connection reset")
}

func (brokenClient) LastOffset(ctx context.Context, topic string) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestMessagesStreamError(t *testing.T) {
	res, body := get(t, Handler(testConfig(brokenClient{Client: mock.New()})), "/topics/chat-room/messages")
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.Equal(t, "stream-error", body["state"])
	require.Contains(t, body["error"], "connection reset")
}

func TestLiveUnreachable(t *testing.T) {
	res, body := get(t, Handler(testConfig(brokenClient{Client: mock.New()})), "/topics/chat-room/live")
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.Contains(t, body["error"], "connection reset")
}

func TestCORS(t *testing.T) {
	handler := Handler(testConfig(mock.New()))

	r := httptest.NewRequest(http.MethodOptions, "/topics/chat-room/messages", nil).WithContext(test.Context(t))
	r.Header.Set("Origin", "http://someorigin")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}
