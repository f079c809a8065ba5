package local

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ridge/redchat/kafka/api"
)

// follower reads a topic file like tail -f: at the end of the file it blocks
// until more data is appended. Removal of the file breaks continuity.
type follower struct {
	path    string
	file    *os.File
	watcher *fsnotify.Watcher

	closeOnce sync.Once
	done      chan struct{}
}

func follow(path string) (*follower, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		// renames and removals are reported on the directory
		err = watcher.Add(filepath.Dir(path))
		if err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return &follower{path: path, file: file, watcher: watcher, done: make(chan struct{})}, nil
}

// Close unblocks a pending Read. Safe to call more than once.
func (f *follower) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = errors.Join(f.watcher.Close(), f.file.Close())
	})
	return err
}

func (f *follower) Read(buf []byte) (int, error) {
	if _, err := os.Lstat(f.path); err != nil {
		return 0, api.ErrContinuityBroken
	}
	for {
		n, err := f.file.Read(buf)
		switch {
		case n > 0:
			return n, nil
		case err != nil && !errors.Is(err, io.EOF):
			return 0, err
		}
		if err := f.awaitAppend(); err != nil {
			return 0, err
		}
	}
}

// size is the current length of the file
func (f *follower) size() (int64, error) {
	info, err := f.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *follower) awaitAppend() error {
	for {
		select {
		case <-f.done:
			return os.ErrClosed
		case err := <-f.watcher.Errors:
			return err
		case ev := <-f.watcher.Events:
			if ev.Name != f.path {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return api.ErrContinuityBroken
			}
			if ev.Has(fsnotify.Write) {
				return nil
			}
		}
	}
}
