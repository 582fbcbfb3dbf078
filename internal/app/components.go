package app

import (
	"context"

	"go.trai.ch/kiln/internal/core/ports"
)

// Components holds the top-level collaborators handed to the CLI.
type Components struct {
	App    *App
	Logger ports.Logger
	Tracer ports.Tracer
}

// NewComponents creates a new Components instance.
func NewComponents(app *App, log ports.Logger, tracer ports.Tracer) *Components {
	return &Components{
		App:    app,
		Logger: log,
		Tracer: tracer,
	}
}

// Shutdown flushes the tracer if it supports it.
func (c *Components) Shutdown(ctx context.Context) error {
	if s, ok := c.Tracer.(interface{ Shutdown(context.Context) error }); ok {
		return s.Shutdown(ctx)
	}
	return nil
}
