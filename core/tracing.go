package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ownertask/go-owner-tasks/core"

const spanTaskRun = "ownertasks.task.run"

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func startTaskSpan(ctx context.Context, tracer trace.Tracer, managerName string, t *Task) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanTaskRun,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("ownertasks.manager", managerName),
			attribute.String("ownertasks.task.id", t.ID().String()),
			attribute.String("ownertasks.owner.type", ownerTypeName(t.Owner())),
		),
	)
}

// endTaskSpan records the terminal state; ERROR marks the span failed.
func endTaskSpan(span trace.Span, t *Task, panicked bool) {
	state := t.State()
	span.SetAttributes(attribute.String("ownertasks.task.state", state.String()))
	switch {
	case panicked:
		span.SetStatus(codes.Error, "callback panicked")
	case state == StateError:
		if err := t.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
