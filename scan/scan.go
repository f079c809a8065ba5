// Package scan reconstructs the effective contents of a chat topic.
//
// A scan reads the topic from the beginning for a bounded time, folding
// replacements and deletions into a View. Reaching the time limit is the
// normal way for a scan to end: the log has no natural end to wait for.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ridge/parallel"
	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/publish"
	"github.com/ridge/redchat/retry"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
	"time"
)

// Defaults for Config fields left zero
const (
	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultSettleDelay  = 500 * time.Millisecond
)

// Config configures a scan
type Config struct {
	// Timeout bounds the whole scan, settling included
	Timeout time.Duration

	// PollInterval bounds a single wait for a record
	PollInterval time.Duration

	// SettleDelay is waited once before the first poll to let the
	// subscription establish. Zero means no delay. Capped at half of Timeout.
	SettleDelay time.Duration
}

// DefaultConfig returns the configuration used by the command-line tool
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		SettleDelay:  DefaultSettleDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.SettleDelay > c.Timeout/2 {
		c.SettleDelay = c.Timeout / 2
	}
	return c
}

// Failure is a record that could not be decoded
type Failure struct {
	Offset int64
	Err    error
}

// Result is the outcome of a scan
type Result struct {
	View     *View
	Failures []Failure
	State    State
}

// Scanner scans a topic once
type Scanner struct {
	client kafka.Client
	topic  string
	format message.Format
	config Config

	state atomic.Int32
}

// New creates a scanner. Zero Timeout and PollInterval take defaults.
func New(client kafka.Client, topic string, format message.Format, config Config) *Scanner {
	return &Scanner{
		client: client,
		topic:  topic,
		format: format,
		config: config.withDefaults(),
	}
}

// Run is a shortcut for creating a scanner and running it
func Run(ctx context.Context, client kafka.Client, topic string, format message.Format, config Config) (Result, error) {
	return New(client, topic, format, config).Run(ctx)
}

// State returns the current state of the scanner
func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) setState(ctx context.Context, state State) {
	s.state.Store(int32(state))
	tlog.Get(ctx).Debug("Scan state", zap.Stringer("state", state))
}

// Run scans the topic from the beginning until the timeout expires.
//
// Undecodable records are skipped and listed in Result.Failures. If reading
// the topic fails, the view accumulated so far is returned along with a
// *publish.TransportError. A scanner can only run once.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSubscribing)) {
		panic(fmt.Errorf("scanner for topic %s has already run", s.topic))
	}
	ctx = tlog.Named(ctx, "scan", zap.String("topic", s.topic), zap.Stringer("format", s.format))
	logger := tlog.Get(ctx)
	logger.Debug("Scan started", zap.Duration("timeout", s.config.Timeout))

	started := time.Now()
	res := Result{View: NewView()}
	var streamErr error

	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		records := make(chan *kafka.IncomingMessage)
		readErr := make(chan error, 1)

		spawn("reader", parallel.Continue, func(ctx context.Context) error {
			err := s.client.Read(ctx, s.topic, 0, records)
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("stream ended unexpectedly")
			}
			readErr <- err
			return nil
		})
		spawn("poller", parallel.Exit, func(ctx context.Context) error {
			if err := retry.Sleep(ctx, s.config.SettleDelay); err != nil {
				return err
			}
			s.setState(ctx, StatePolling)

			for {
				remaining := s.config.Timeout - time.Since(started)
				if remaining <= 0 {
					s.setState(ctx, StateTimedOut)
					return nil
				}
				wait := s.config.PollInterval
				if remaining < wait {
					wait = remaining
				}

				m, err := poll(ctx, records, readErr, wait)
				switch {
				case err != nil && ctx.Err() != nil:
					return ctx.Err()
				case err != nil:
					streamErr = &publish.TransportError{Op: "scan", Topic: s.topic, Err: err}
					s.setState(ctx, StateStreamError)
					return nil
				case m == nil:
					// nothing new within the interval
				default:
					s.fold(ctx, &res, m)
				}
			}
		})
		return nil
	})
	res.State = s.State()
	if err != nil {
		return res, err
	}
	if streamErr != nil {
		logger.Warn("Scan interrupted", zap.Int("messages", res.View.Len()), zap.Error(streamErr))
		return res, streamErr
	}
	logger.Debug("Scan finished", zap.Int("messages", res.View.Len()), zap.Int("failures", len(res.Failures)))
	return res, nil
}

// poll waits for at most the given time for the next record. Returns nil both
// on the hot end marker and when the time runs out.
func poll(ctx context.Context, records <-chan *kafka.IncomingMessage, readErr <-chan error, wait time.Duration) (*kafka.IncomingMessage, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-readErr:
		return nil, err
	case m := <-records:
		return m, nil
	case <-timer.C:
		return nil, nil
	}
}

func (s *Scanner) fold(ctx context.Context, res *Result, m *kafka.IncomingMessage) {
	env, err := message.DecodeEnvelope(m.Value, s.format)
	if err != nil {
		tlog.Get(ctx).Warn("Skipping undecodable record", zap.Int64("offset", m.Offset), zap.Error(err))
		res.Failures = append(res.Failures, Failure{Offset: m.Offset, Err: err})
		return
	}
	res.View.Apply(m.Offset, m.Time, env)
}
