package analytics

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink receives analytics events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// NopSink drops every event. It is the default when no backend is configured.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}

// LogSink writes events as structured log lines.
type LogSink struct {
	Logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return LogSink{Logger: logger.Named("analytics")}
}

func (s LogSink) Record(_ context.Context, ev Event) {
	if ev == nil || s.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind())),
		zap.Time("at", ev.OccurredAt()),
	}
	switch e := ev.(type) {
	case PhotoAnalyzed:
		fields = append(fields,
			zap.String("image_id", e.ImageID),
			zap.Int("elements", e.ElementCount),
			zap.String("setting", e.Setting))
	case OpenersGenerated:
		fields = append(fields,
			zap.String("analysis_id", e.AnalysisID),
			zap.String("style", e.Style),
			zap.Int("requested", e.Requested),
			zap.Int("accepted", e.Accepted),
			zap.Int("backfill_calls", e.BackfillCalls),
			zap.Bool("partial", e.Partial))
	case OpenerRated:
		fields = append(fields,
			zap.String("opener_id", e.OpenerID),
			zap.Int("rating", e.Rating))
	case CandidateRejected:
		fields = append(fields,
			zap.String("category", e.Category),
			zap.Float64("confidence", e.Confidence),
			zap.Bool("backfill", e.Backfill))
	}
	s.Logger.Info("event", fields...)
}

// MemorySink keeps events in memory, mostly for tests and the CLI summary.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Record(_ context.Context, ev Event) {
	if ev == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Count returns how many recorded events have kind k.
func (s *MemorySink) Count(k Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Kind() == k {
			n++
		}
	}
	return n
}

// MultiSink fans each event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, ev)
		}
	}
}
