package supervise

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SmritiSatyan/garden/internal/log"
	"github.com/SmritiSatyan/garden/internal/proc"
)

const tracerName = "github.com/SmritiSatyan/garden/internal/supervise"

func startSpan(ctx context.Context, name string, h proc.Handle, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("process.id", h.ID()))
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish records err on span, logs the outcome and ends the span.
func finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()

	logger := log.WithContext(ctx).With("component", "supervise", "op", op)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		logger.Debug("supervision succeeded")
		return
	}

	kind := KindOf(err)
	span.SetAttributes(attribute.String("supervise.outcome", kind.String()))
	span.RecordError(err)
	span.SetStatus(codes.Error, kind.String())
	logger.Debug("supervision failed", "outcome", kind.String())
}
