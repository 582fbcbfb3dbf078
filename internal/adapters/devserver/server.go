// Package devserver serves the output directory during development and
// pushes live-reload events to connected browsers.
package devserver

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	clientPath  = "/__kiln/livereload.js"
	socketPath  = "/__kiln/livereload"
	metricsPath = "/__kiln/metrics"

	shutdownTimeout = 5 * time.Second
)

//go:embed livereload.js
var clientScript []byte

var _ ports.DevServer = (*Server)(nil)

// message is the JSON payload sent over the live-reload socket.
type message struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	Hash string `json:"hash,omitempty"`
}

// Server is the development HTTP server.
type Server struct {
	port    int
	logger  ports.Logger
	hub     *hub
	metrics *Metrics
	handler http.Handler
}

// NewServer creates a server for the output directory of cfg.
func NewServer(cfg *domain.Config, root string, logger ports.Logger) *Server {
	registry := prom.NewRegistry()
	metrics := NewMetrics(registry)
	h := newHub(metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+clientPath, serveClient)
	mux.HandleFunc(socketPath, h.serveWS)
	mux.Handle("GET "+metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", newPageHandler(cfg.DistDir(root)))

	return &Server{
		port:    cfg.Port,
		logger:  logger,
		hub:     h,
		metrics: metrics,
		handler: mux,
	}
}

// Reload broadcasts ev to every connected browser.
func (s *Server) Reload(ev domain.ReloadEvent) {
	if ev.Kind == domain.ReloadNone {
		return
	}
	msg, err := json.Marshal(message{Type: ev.Kind.String(), Path: ev.Path, Hash: ev.Hash})
	if err != nil {
		s.logger.Error(zerr.Wrap(err, "failed to encode reload event"))
		return
	}
	s.metrics.incReload(ev.Kind.String())
	s.hub.broadcast(msg)
}

// RecordRun records the outcome of a watch-triggered rebuild.
func (s *Server) RecordRun(binding string, d time.Duration, err error) {
	s.metrics.ObserveRun(binding, d, err)
}

// Serve listens on the configured port until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", s.port)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	port := ln.Addr().(*net.TCPAddr).Port
	s.logger.Info("serving at http://localhost:" + strconv.Itoa(port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.closeAll()
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", s.port)
	case <-ctx.Done():
	}

	// Websocket connections are hijacked, so Shutdown does not wait for them.
	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	}
	return nil
}

func serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(clientScript)
}
