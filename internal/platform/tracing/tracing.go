// Package tracing installs the global OpenTelemetry tracer provider. Finished
// spans are written through slog at debug level so traces need no collector.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"claimdesk/internal/platform/config"
)

// Setup registers a tracer provider sampling cfg.SampleRatio of root spans.
// With a zero ratio nothing is installed and the returned shutdown is a no-op.
func Setup(cfg config.TracingConfig, logger *slog.Logger) func(context.Context) error {
	if cfg.SampleRatio <= 0 {
		return func(context.Context) error { return nil }
	}
	tp := NewProvider(cfg.SampleRatio, NewLogExporter(logger))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// NewProvider builds a provider that batches spans into exporter.
func NewProvider(ratio float64, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exporter),
	)
}

// LogExporter writes each finished span as one structured log line.
type LogExporter struct {
	logger *slog.Logger
}

func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		attrs := []any{
			"log_type", "trace",
			"span", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds(),
			"status", span.Status().Code.String(),
		}
		if desc := span.Status().Description; desc != "" {
			attrs = append(attrs, "status_description", desc)
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		e.logger.DebugContext(ctx, "span finished", attrs...)
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
