package local

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/kafka/names"
	"github.com/ridge/redchat/kafka/wire"
)

func (c client) Read(ctx context.Context, topic string, offset int64, dest chan<- *api.IncomingMessage) error {
	must.OK(names.ValidateTopicName(topic))
	path := filepath.Join(c.dir, topic)
	f, err := follow(path)
	if os.IsNotExist(err) {
		if offset == 0 {
			// an absent topic is an empty one
			if err := deliver(ctx, dest, nil); err != nil {
				return err
			}
		}
		if err := waitToAppear(ctx, c.dir, path); err != nil {
			return err
		}
		f, err = follow(path)
	}
	if err != nil {
		return fmt.Errorf("failed to open topic %s: %w", topic, err)
	}

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("reader", parallel.Fail, func(ctx context.Context) error {
			r := bufio.NewReader(f)
			var pos int64
			bytesRead := 0
			for {
				if pos > 0 && pos >= offset {
					// size might fail with "use of closed file" when ctx is closing
					size, err := f.size()
					if ctx.Err() != nil {
						return ctx.Err()
					}
					must.OK(err)

					if int64(bytesRead) == size {
						if err := deliver(ctx, dest, nil); err != nil {
							return err
						}
					}
				}

				msg, n, err := readMessage(topic, r, pos)
				bytesRead += n
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, api.ErrContinuityBroken) {
					return api.ErrContinuityBroken
				}
				must.OK(err)

				if msg.Offset >= offset {
					if err := deliver(ctx, dest, &msg); err != nil {
						return err
					}
				}
				pos = msg.Offset + 1
			}
		})
		spawn("closer", parallel.Exit, func(ctx context.Context) error {
			<-ctx.Done()
			return f.Close()
		})
		return nil
	})
}

// deliver sends a record, or nil for the hot end, unless the context closes first
func deliver(ctx context.Context, dest chan<- *api.IncomingMessage, msg *api.IncomingMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case dest <- msg:
		return nil
	}
}

// readMessage reads the record at the reader position. Records without an
// explicit offset in the header get defaultOffset.
func readMessage(topic string, r *bufio.Reader, defaultOffset int64) (msg api.IncomingMessage, n int, err error) {
	b, err := r.ReadBytes('\n')
	if err != nil {
		return api.IncomingMessage{}, 0, err
	}
	var h wire.Header
	if err := json.Unmarshal(b, &h); err != nil {
		return api.IncomingMessage{}, 0, fmt.Errorf("invalid record header in topic %s: %w", topic, err)
	}

	body := make([]byte, h.Len+1)
	_, err = io.ReadFull(r, body)
	if err != nil {
		return api.IncomingMessage{}, 0, err
	}
	if body[h.Len] != '\n' {
		return api.IncomingMessage{}, 0, fmt.Errorf("invalid record body in topic %s: missing terminator", topic)
	}

	offset := defaultOffset
	if h.Offset != nil {
		offset = *h.Offset
		if offset < defaultOffset {
			return api.IncomingMessage{}, 0, fmt.Errorf("non-monotonic offsets in topic %s: %d after %d", topic, offset, defaultOffset-1)
		}
	}

	return api.IncomingMessage{
		Message: api.Message{
			Topic:   topic,
			Key:     h.Key,
			Headers: h.Headers,
			Value:   body[:h.Len],
		},
		Time:   h.TS,
		Offset: offset,
	}, len(b) + len(body), nil
}

func waitToAppear(ctx context.Context, dir, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer must.Do(w.Close)
	if err := w.Add(dir); err != nil {
		return err
	}

	for {
		if _, err := os.Lstat(path); err == nil { // file exists
			return nil
		}
		if err := waitForPath(ctx, w, path); err != nil {
			return err
		}
	}
}

func waitForPath(ctx context.Context, w *fsnotify.Watcher, path string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.Events:
			if event.Name == path {
				return nil
			}
		case err := <-w.Errors:
			return err
		}
	}
}
