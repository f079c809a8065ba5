package viewserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/ridge/parallel"
	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
	"time"
)

// LiveConfig configures WebSocket connections of the live feed
type LiveConfig struct {
	// Timeout for the WebSocket protocol upgrade
	HandshakeTimeout time.Duration

	// Disconnect when an outgoing packet is not acknowledged for this long.
	// 0 for kernel default.
	TCPTimeout time.Duration

	// Send pings this often. 0 to disable.
	PingInterval time.Duration

	// Disconnect if a pong doesn't arrive during PingInterval
	RequirePong bool

	// CheckOrigin returns true if the request Origin header is acceptable.
	// nil accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// DefaultLiveConfig is the default LiveConfig value
var DefaultLiveConfig = LiveConfig{
	HandshakeTimeout: 5 * time.Second,
	TCPTimeout:       30 * time.Second,
	PingInterval:     30 * time.Second,
	RequirePong:      true,
}

// liveJSON is a record of the live feed. Undecodable records carry Error and
// the raw payload in Text.
type liveJSON struct {
	Offset         int64     `json:"offset"`
	Time           time.Time `json:"time"`
	Username       string    `json:"username,omitempty"`
	Text           string    `json:"text"`
	ReplacesOffset *int64    `json:"replacesOffset,omitempty"`
	DeleteOffset   *int64    `json:"deleteOffset,omitempty"`
	Error          string    `json:"error,omitempty"`
}

func toLiveJSON(m *kafka.IncomingMessage, format message.Format) liveJSON {
	res := liveJSON{Offset: m.Offset, Time: m.Time}
	env, err := message.DecodeEnvelope(m.Value, format)
	if err != nil {
		res.Text = strings.ToValidUTF8(string(m.Value), "\uFFFD")
		res.Error = err.Error()
		return res
	}
	res.Username = env.Username
	res.Text = env.Text
	res.ReplacesOffset = env.ReplacesOffset
	res.DeleteOffset = env.DeleteOffset
	return res
}

// live streams records published after the connection as JSON text messages
func (h handler) live(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := tlog.Get(ctx)

	topic, format, err := h.request(r)
	if err != nil {
		writeJSON(logger, w, r, errorJSON{Error: err.Error()}, http.StatusBadRequest)
		return
	}
	start, err := h.config.Client.LastOffset(ctx, topic)
	if err != nil {
		writeJSON(logger, w, r, errorJSON{Error: err.Error()}, http.StatusBadGateway)
		return
	}

	config := h.config.Live
	upgrader := websocket.Upgrader{
		HandshakeTimeout: config.HandshakeTimeout,
		CheckOrigin:      config.CheckOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has responded already
		logger.Error("Failed to serve WebSocket connection", zap.Error(err))
		return
	}
	if err := tuneTCP(ws.UnderlyingConn(), config.TCPTimeout); err != nil {
		ws.Close()
		logger.Error("Failed to serve WebSocket connection", zap.Error(err))
		return
	}

	ctx = tlog.Named(ctx, "live", zap.String("topic", topic), zap.Int64("offset", start))
	logger = tlog.Get(ctx)
	logger.Info("Live feed connected")
	err = feed(ctx, ws, config, func(ctx context.Context, dest chan<- *kafka.IncomingMessage) error {
		return h.config.Client.Read(ctx, topic, start, dest)
	}, format)
	logger.Info("Live feed disconnected", zap.Error(err))
}

type readFn func(ctx context.Context, dest chan<- *kafka.IncomingMessage) error

// feed pumps records to the WebSocket until either side fails or the peer
// closes the connection
func feed(ctx context.Context, ws *websocket.Conn, config LiveConfig, read readFn, format message.Format) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		var pings atomic.Int64 // pings sent minus pongs received
		records := make(chan *kafka.IncomingMessage)

		if config.RequirePong {
			ws.SetPongHandler(func(string) error {
				pings.Add(-1)
				return nil
			})
		}

		spawn("reader", parallel.Fail, func(ctx context.Context) error {
			return read(ctx, records)
		})

		// incoming messages are ignored, reading is needed to process control
		// frames and to notice the peer closing the connection
		spawn("receiver", parallel.Exit, func(ctx context.Context) error {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					var closeErr *websocket.CloseError
					if errors.As(err, &closeErr) {
						return nil
					}
					return err
				}
			}
		})

		// gorilla/websocket does not support concurrent writes, so messages
		// and pings are all sent from here
		spawn("sender", parallel.Fail, func(ctx context.Context) error {
			var ticks <-chan time.Time
			if config.PingInterval != 0 {
				ticker := time.NewTicker(config.PingInterval)
				defer ticker.Stop()
				ticks = ticker.C
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case m := <-records:
					if m == nil {
						continue
					}
					data, err := json.Marshal(toLiveJSON(m, format))
					if err != nil {
						return fmt.Errorf("failed to encode record %d: %w", m.Offset, err)
					}
					if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
						return err
					}
				case <-ticks:
					if config.RequirePong && pings.Add(1) > 1 {
						return errors.New("WebSocket ping timeout")
					}
					if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
						return err
					}
				}
			}
		})

		spawn("closer", parallel.Exit, func(ctx context.Context) error {
			<-ctx.Done()
			if err := ws.Close(); err != nil {
				return err
			}
			return ctx.Err()
		})

		return nil
	})
}
