package devserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/devserver"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const script = `<script src="/__kiln/livereload.js"></script>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newServer(t *testing.T, port int) (*devserver.Server, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &domain.Config{Port: port, Paths: domain.Paths{Dist: "dist"}}
	logger := mocks.NewMockLogger(gomock.NewController(t))
	return devserver.NewServer(cfg, root, logger), filepath.Join(root, "dist")
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // Test cleanup
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_InjectsClientIntoPages(t *testing.T) {
	srv, dist := newServer(t, 0)
	writeFile(t, filepath.Join(dist, "index.html"), "<html><body><h1>Home</h1></body></html>")
	writeFile(t, filepath.Join(dist, "blog", "index.html"), "<body>blog</body>")
	writeFile(t, filepath.Join(dist, "about.html"), "<p>about</p>")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		path string
		want string
	}{
		{path: "/", want: "<html><body><h1>Home</h1>" + script + "</body></html>"},
		{path: "/blog/", want: "<body>blog" + script + "</body>"},
		{path: "/about.html", want: "<p>about</p>" + script},
		{path: "/index.html", want: "<html><body><h1>Home</h1>" + script + "</body></html>"},
		{path: "/blog", want: "<body>blog" + script + "</body>"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, body)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
			assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		})
	}
}

func TestServer_ServesAssetsUnchanged(t *testing.T) {
	srv, dist := newServer(t, 0)
	writeFile(t, filepath.Join(dist, "assets", "theme", "app.css"), "body{}</body>")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/assets/theme/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}</body>", body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestServer_MissingFile(t *testing.T) {
	srv, _ := newServer(t, 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/nope.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ClientScript(t *testing.T) {
	srv, _ := newServer(t, 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/__kiln/livereload.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, "/__kiln/livereload")
}

func dial(t *testing.T, srv *devserver.Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(t.Context(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/__kiln/livereload", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Clients() > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestServer_BroadcastsReloadEvents(t *testing.T) {
	srv, _ := newServer(t, 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, srv, ts)
	defer conn.CloseNow() //nolint:errcheck // Test cleanup

	srv.Reload(domain.ReloadEvent{Kind: domain.ReloadNone})
	srv.Reload(domain.ReloadEvent{Kind: domain.ReloadCSS, Path: "assets/theme/app.css", Hash: "00ff"})
	srv.Reload(domain.ReloadEvent{Kind: domain.ReloadFull})

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	var got map[string]string
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, map[string]string{"type": "css", "path": "assets/theme/app.css", "hash": "00ff"}, got)

	got = nil
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, map[string]string{"type": "reload"}, got)
}

func TestServer_ClientDisconnect(t *testing.T) {
	srv, _ := newServer(t, 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, srv, ts)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool { return srv.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	srv.Reload(domain.ReloadEvent{Kind: domain.ReloadFull})
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newServer(t, 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	srv.Reload(domain.ReloadEvent{Kind: domain.ReloadFull})
	srv.Reload(domain.ReloadEvent{Kind: domain.ReloadCSS, Path: "assets/theme/app.css", Hash: "1"})
	srv.RecordRun("pages", 150*time.Millisecond, nil)
	srv.RecordRun("styles", time.Second, assert.AnError)

	resp, body := get(t, ts.URL+"/__kiln/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `kiln_livereload_events_total{kind="reload"} 1`)
	assert.Contains(t, body, `kiln_livereload_events_total{kind="css"} 1`)
	assert.Contains(t, body, `kiln_rebuild_results_total{binding="pages",result="success"} 1`)
	assert.Contains(t, body, `kiln_rebuild_results_total{binding="styles",result="failed"} 1`)
	assert.Contains(t, body, `kiln_rebuild_duration_seconds_count{binding="pages"} 1`)
	assert.Contains(t, body, "kiln_livereload_clients 0")
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "index.html"), "<body>hi</body>")

	cfg := &domain.Config{Port: 0, Paths: domain.Paths{Dist: "dist"}}
	logger := mocks.NewMockLogger(gomock.NewController(t))
	addrCh := make(chan string, 1)
	logger.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		addrCh <- strings.TrimPrefix(msg, "serving at ")
	})
	srv := devserver.NewServer(cfg, root, logger)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	_, body := get(t, addr+"/")
	assert.Equal(t, "<body>hi"+script+"</body>", body)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ServePortInUse(t *testing.T) {
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", ":0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck // Test cleanup

	port := ln.Addr().(*net.TCPAddr).Port
	srv, _ := newServer(t, port)

	err = srv.Serve(t.Context())
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrServerFailed.Error())
	assert.ErrorContains(t, err, strconv.Itoa(port))
}
