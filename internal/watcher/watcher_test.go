package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"create pdf", fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Create}, true},
		{"write pdf", fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Write}, true},
		{"remove pdf", fsnotify.Event{Name: "/d/a.PDF", Op: fsnotify.Remove}, true},
		{"rename pdf", fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Rename}, true},
		{"chmod pdf", fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Chmod}, false},
		{"create txt", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Create}, false},
		{"hidden pdf", fsnotify.Event{Name: "/d/.a.pdf", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev))
		})
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), func() {}, nil)
	assert.Error(t, err)
}

func TestRunNotifiesOnce(t *testing.T) {
	dir := t.TempDir()
	var calls int32
	w, err := New(dir, func() { atomic.AddInt32(&calls, 1) }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.pdf"), []byte("%PDF-1.4"), 0o644))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	cancel()
	require.NoError(t, <-done)
}
