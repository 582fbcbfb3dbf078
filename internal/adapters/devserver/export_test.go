package devserver

import "net/http"

// Handler returns the HTTP handler without binding a port.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Clients returns the number of connected live-reload clients.
func (s *Server) Clients() int {
	return s.hub.count()
}
