package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func startWatcher(t *testing.T, root string, dirs ...string) <-chan ports.WatchEvent {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	w, err := watcher.NewWatcher(root, fs.NewWalker(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start(t.Context(), dirs...))

	events := make(chan ports.WatchEvent, 64)
	go func() {
		defer close(events)
		for ev := range w.Events() {
			events <- ev
		}
	}()
	return events
}

// waitFor reads events until one for path arrives.
func waitFor(t *testing.T, events <-chan ports.WatchEvent, path string) ports.WatchEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream ended before %s", path)
			if ev.Path == path {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcher_ReportsRelativePaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pages"), 0o750))

	events := startWatcher(t, root, "src", "missing")

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "pages", "index.html"), []byte("hi"), 0o600))

	ev := waitFor(t, events, "src/pages/index.html")
	assert.Contains(t, []ports.WatchOp{ports.OpCreate, ports.OpWrite}, ev.Operation)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o750))

	events := startWatcher(t, root, "src")

	require.NoError(t, os.Mkdir(filepath.Join(root, "src", "partials"), 0o750))
	ev := waitFor(t, events, "src/partials")
	assert.Equal(t, ports.OpCreate, ev.Operation)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "partials", "nav.html"), []byte("<nav>"), 0o600))
	waitFor(t, events, "src/partials/nav.html")
}

func TestWatcher_ReportsRemovals(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "data", "team.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o750))
	require.NoError(t, os.WriteFile(file, []byte("a: 1"), 0o600))

	events := startWatcher(t, root, "src")

	require.NoError(t, os.Remove(file))
	ev := waitFor(t, events, "src/data/team.yml")
	assert.Equal(t, ports.OpRemove, ev.Operation)
}

func TestWatcher_EventsEndOnCancel(t *testing.T) {
	root := t.TempDir()
	logger := mocks.NewMockLogger(gomock.NewController(t))

	w, err := watcher.NewWatcher(root, fs.NewWalker(), logger)
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, w.Start(ctx, "."))
	cancel()

	done := make(chan struct{})
	go func() {
		for range w.Events() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not end")
	}
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
