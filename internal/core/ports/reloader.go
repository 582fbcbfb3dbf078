package ports

import (
	"context"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

// Reloader pushes refresh notifications to connected browsers.
//
//go:generate mockgen -source=reloader.go -destination=mocks/mock_reloader.go -package=mocks
type Reloader interface {
	// Reload broadcasts the event. It never blocks on slow clients.
	Reload(ev domain.ReloadEvent)
}

// DevServer serves the output directory with live reload.
type DevServer interface {
	Reloader
	// Serve listens on the configured port until ctx is cancelled.
	Serve(ctx context.Context) error
	// RecordRun records the outcome of a watch-triggered rebuild.
	RecordRun(binding string, d time.Duration, err error)
}
