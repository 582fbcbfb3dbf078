package telemetry

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// Bridge is a span processor that turns step spans into renderer task
// events. Nothing is forwarded after Shutdown.
type Bridge struct {
	renderer ports.Renderer
	closed   atomic.Bool
}

// NewBridge returns a Bridge reporting to renderer, which may be nil.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

func (b *Bridge) forwarding() bool {
	return b.renderer != nil && !b.closed.Load()
}

// OnStart announces a step. A span started inside another carries the
// enclosing span's id as its parent.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	id, ok := spanRef(s.SpanContext())
	if !ok || !b.forwarding() {
		return
	}

	parentID, _ := spanRef(trace.SpanContextFromContext(parent))
	b.renderer.OnTaskStart(id, parentID, s.Name(), s.StartTime())
}

// OnEnd completes a step, failed when the span status is an error.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	id, ok := spanRef(s.SpanContext())
	if !ok || !b.forwarding() {
		return
	}

	b.renderer.OnTaskComplete(id, s.EndTime(), stepError(s))
}

// ForceFlush does nothing; events are forwarded synchronously.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown stops forwarding.
func (b *Bridge) Shutdown(_ context.Context) error {
	b.closed.Store(true)
	return nil
}

func spanRef(sc trace.SpanContext) (string, bool) {
	if !sc.IsValid() {
		return "", false
	}
	return sc.SpanID().String(), true
}

// stepError rebuilds the failure of a span from its last recorded
// exception, falling back to the status description.
func stepError(s sdktrace.ReadOnlySpan) error {
	status := s.Status()
	if status.Code != codes.Error {
		return nil
	}

	events := s.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Name != "exception" {
			continue
		}
		for _, kv := range events[i].Attributes {
			if kv.Key == "exception.message" && kv.Value.AsString() != "" {
				return errors.New(kv.Value.AsString())
			}
		}
	}

	if status.Description != "" {
		return errors.New(status.Description)
	}
	return errors.New("task failed")
}
