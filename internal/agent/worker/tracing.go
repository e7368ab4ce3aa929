package worker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/screening/models"
)

func (w *Worker) startSpan(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := w.tracer.Start(ctx, "worker."+string(w.role))
	span.SetAttributes(
		attribute.String("worker.role", string(w.role)),
		attribute.String("worker.model", w.model),
		attribute.Bool("worker.tool_only", w.reporter != nil),
	)
	return ctx, span
}

func endSpan(span trace.Span, v models.Verdict) {
	span.SetAttributes(
		attribute.String("verdict.status", string(v.Status)),
		attribute.Bool("verdict.degraded", v.Degraded),
	)
	span.End()
}

func startStepSpan(ctx context.Context, tracer trace.Tracer, capability string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "tool."+capability)
	span.SetAttributes(attribute.String("tool.capability", capability))
	return ctx, span
}
