package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/ridge/must/v2"
	"github.com/ridge/redchat/kafka/names"
)

// LastOffset counts the records of the topic file. A shared lock keeps
// writers from appending a half-written batch while the file is scanned.
func (c client) LastOffset(ctx context.Context, topic string) (int64, error) {
	must.OK(names.ValidateTopicName(topic))

	f, err := os.Open(filepath.Join(c.dir, topic))
	switch {
	case os.IsNotExist(err):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to open topic %s: %w", topic, err)
	}
	defer must.Do(f.Close)

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err != nil {
		return 0, fmt.Errorf("failed to lock topic %s: %w", topic, err)
	}
	defer must.Do(func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	})

	return nextOffset(topic, f)
}
