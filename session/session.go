// Package session implements an interactive chat: lines typed by the user are
// published to the topic while new records of the topic are printed.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ridge/parallel"
	"github.com/ridge/redchat/kafka"
	"github.com/ridge/redchat/message"
	"github.com/ridge/redchat/publish"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
)

// Config describes a chat session
type Config struct {
	Client   kafka.Client
	Topic    string
	Username string
	Format   message.Format

	// In supplies lines to publish; the session ends when it is exhausted
	In io.Reader
	// Out receives messages arriving to the topic
	Out io.Writer
}

// Run runs a chat session until the input ends, the context is closed or
// reading the topic fails.
//
// Only messages published after the start of the session are shown.
func Run(ctx context.Context, config Config) error {
	ctx = tlog.Named(ctx, "session", zap.String("topic", config.Topic), zap.String("username", config.Username))
	logger := tlog.Get(ctx)

	start, err := config.Client.LastOffset(ctx, config.Topic)
	if err != nil {
		return fmt.Errorf("failed to find the end of topic %s: %w", config.Topic, err)
	}
	logger.Debug("Session started", zap.Int64("offset", start), zap.Stringer("format", config.Format))

	pub := publish.New(config.Client, config.Topic, config.Format)

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		records := make(chan *kafka.IncomingMessage)
		spawn("reader", parallel.Fail, func(ctx context.Context) error {
			return config.Client.Read(ctx, config.Topic, start, records)
		})
		spawn("consumer", parallel.Fail, func(ctx context.Context) error {
			return consume(ctx, records, config.Format, config.Out)
		})
		spawn("producer", parallel.Exit, func(ctx context.Context) error {
			return produce(ctx, pub, config.Username, lines(ctx, config.In))
		})
		return nil
	})
}

func consume(ctx context.Context, records <-chan *kafka.IncomingMessage, format message.Format, out io.Writer) error {
	logger := tlog.Get(ctx)
	for {
		var m *kafka.IncomingMessage
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m = <-records:
		}
		if m == nil {
			continue
		}

		decoded, err := message.Decode(m.Value, format)
		var line string
		if err != nil {
			logger.Warn("Undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
			line = strings.ToValidUTF8(string(m.Value), "\uFFFD")
		} else {
			line = decoded.String()
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to print message: %w", err)
		}
	}
}

func produce(ctx context.Context, pub *publish.Publisher, username string, input <-chan string) error {
	logger := tlog.Get(ctx)
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-input:
		}
		if !ok {
			logger.Debug("End of input")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := pub.Chat(ctx, username, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to send message", zap.Error(err))
		}
	}
}

// lines reads the input line by line in the background. The channel is
// closed at the end of input.
//
// A read in progress cannot be interrupted, so the goroutine outlives a
// session cancelled while waiting for a line.
func lines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			case ch <- strings.TrimSuffix(scanner.Text(), "\r"):
			}
		}
	}()
	return ch
}
