// Package telemetry turns scheduler task spans into renderer events.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/ports"
)

const instrumentationName = "go.trai.ch/kiln"

var (
	_ ports.Tracer = (*Tracer)(nil)
	_ ports.Span   = (*Span)(nil)
)

// Tracer implements ports.Tracer with OpenTelemetry. Spans are reported
// to the renderer through a Bridge; span output is batched and forwarded
// to the renderer directly.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	renderer ports.Renderer
}

// NewTracer creates a tracer reporting to renderer. A nil renderer
// records spans without printing anything.
func NewTracer(renderer ports.Renderer) *Tracer {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewBridge(renderer)),
	)
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(instrumentationName),
		renderer: renderer,
	}
}

// Shutdown stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// Start creates a new span.
func (t *Tracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var startOpts []trace.SpanStartOption
	if cfg.Description != "" {
		startOpts = append(startOpts, trace.WithAttributes(attribute.String("task.description", cfg.Description)))
	}
	ctx, span := t.tracer.Start(ctx, name, startOpts...)

	var out *batcher
	if t.renderer != nil {
		spanID := span.SpanContext().SpanID().String()
		out = newBatcher(0, 0, func(data []byte) {
			t.renderer.OnTaskLog(spanID, data)
		})
	}

	return ctx, &Span{span: span, out: out}
}

// EmitPlan records the planned tasks and announces them to the renderer.
func (t *Tracer) EmitPlan(ctx context.Context, taskNames []string, deps map[string][]string, targets []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("tasks", taskNames),
			attribute.StringSlice("targets", targets),
		))
	}

	if t.renderer != nil {
		t.renderer.OnPlanEmit(taskNames, deps, targets)
	}
}

// Span implements ports.Span.
type Span struct {
	span trace.Span
	out  *batcher
}

// End flushes buffered output and completes the span.
func (s *Span) End() {
	if s.out != nil {
		_ = s.out.Close()
	}
	s.span.End()
}

// RecordError records err and marks the span as failed.
func (s *Span) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *Span) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write forwards task output to the renderer, or records it as a span
// event when there is none.
func (s *Span) Write(p []byte) (int, error) {
	if s.out != nil {
		return s.out.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
