package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/kafka/names"
	"github.com/ridge/redchat/kafka/wire"
	"time"
)

func (c client) Write(ctx context.Context, topic string, messages []api.Message) (int64, error) {
	ts := time.Now()
	batch := make([]api.IncomingMessage, 0, len(messages))
	for _, m := range messages {
		batch = append(batch, api.IncomingMessage{
			Message: m,
			Time:    ts,
		})
	}
	return c.WriteBackdated(ctx, topic, batch)
}

func (c client) WriteBackdated(ctx context.Context, topic string, messages []api.IncomingMessage) (int64, error) {
	must.OK(names.ValidateTopicName(topic))
	if len(messages) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(filepath.Join(c.dir, topic), os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to append topic %s: %w", topic, err)
	}
	defer must.Do(f.Close)
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return 0, fmt.Errorf("failed to append topic %s: %w", topic, err)
	}
	defer must.Do(func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	})

	// other writers are locked out, so the offset is stable until we append
	base, err := nextOffset(topic, f)
	if err != nil {
		return 0, fmt.Errorf("failed to append topic %s: %w", topic, err)
	}

	// prepare a single write to minimize the likelihood of leaving the file corrupted
	var buf bytes.Buffer

	for _, msg := range messages {
		if msg.Topic != topic {
			panic(fmt.Errorf("topic mismatch on write: %s (expected %s)", msg.Topic, topic))
		}
		must.OK1(buf.Write(must.OK1(json.Marshal(wire.Header{
			TS:      msg.Time,
			Key:     msg.Key,
			Headers: msg.Headers,
			Len:     len(msg.Value),
		}))))
		must.OK(buf.WriteByte('\n'))
		must.OK1(buf.Write(msg.Value))
		must.OK(buf.WriteByte('\n'))
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to append topic %s: %w", topic, err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("failed to append topic %s: %w", topic, err)
	}

	return base, nil
}

// nextOffset scans the topic file from the beginning and returns the offset
// the next appended record will get
func nextOffset(topic string, f *os.File) (int64, error) {
	r := bufio.NewReader(f)
	var pos int64
	for {
		msg, _, err := readMessage(topic, r, pos)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return pos, nil
		case err != nil:
			return 0, err
		}
		pos = msg.Offset + 1
	}
}
