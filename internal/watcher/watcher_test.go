package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpandsGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.log", "b.log", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "d.log"), nil, 0o644))

	w, err := New([]string{filepath.Join(dir, "**", "*.log")}, nil)
	require.NoError(t, err)
	defer w.fsw.Close()

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.log"),
		filepath.Join(dir, "b.log"),
		filepath.Join(dir, "sub", "d.log"),
	}, w.Paths())
}

func TestNewNoMatches(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "*.log")}, nil)
	assert.Error(t, err)
}

func TestStartForwardsTrackedWrites(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "access.log")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(tracked, nil, 0o644))

	w, err := New([]string{tracked}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()

	require.NoError(t, os.WriteFile(other, []byte("ignored\n"), 0o644))
	require.NoError(t, os.WriteFile(tracked, []byte("line\n"), 0o644))

	select {
	case ev := <-w.Events():
		assert.Equal(t, tracked, ev.Path)
		assert.True(t, ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create))
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	wg.Wait()
}
