package coop

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (s *Scheduler) startTaskSpan(t task) trace.Span {
	_, span := s.tracer.Start(context.Background(), "Scheduler.runTask",
		trace.WithAttributes(attribute.String("coop.task.id", t.id)))
	return span
}
