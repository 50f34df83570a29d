package analytics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConstructorsValidate(t *testing.T) {
	t.Parallel()

	_, err := NewPhotoAnalyzed("", 3, "beach")
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = NewPhotoAnalyzed("img", -1, "")
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = NewOpenersGenerated("img", "witty", 0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = NewOpenersGenerated("img", "witty", 3, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = NewOpenersGenerated("", "witty", 3, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = NewOpenerRated("o1", 0)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = NewOpenerRated("o1", 6)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = NewCandidateRejected("", 0.5, false)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = NewCandidateRejected("spam", 1.2, false)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestNewOpenersGenerated_Partial(t *testing.T) {
	t.Parallel()

	ev, err := NewOpenersGenerated("img", "", 5, 3, 4)
	require.NoError(t, err)
	assert.True(t, ev.Partial)
	assert.Equal(t, KindOpenersGenerated, ev.Kind())
	assert.False(t, ev.OccurredAt().IsZero())

	ev, err = NewOpenersGenerated("img", "", 5, 5, 0)
	require.NoError(t, err)
	assert.False(t, ev.Partial)
}

func TestMemorySink(t *testing.T) {
	t.Parallel()

	var sink MemorySink
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev, err := NewOpenerRated("o", 1+i%5)
			if err == nil {
				sink.Record(ctx, ev)
			}
		}(i)
	}
	wg.Wait()
	sink.Record(ctx, nil)

	assert.Len(t, sink.Events(), 10)
	assert.Equal(t, 10, sink.Count(KindOpenerRated))
	assert.Zero(t, sink.Count(KindPhotoAnalyzed))
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	ev, err := NewCandidateRejected("offensive", 0.85, true)
	require.NoError(t, err)
	sink.Record(context.Background(), ev)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "analytics", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "candidate_rejected", fields["kind"])
	assert.Equal(t, "offensive", fields["category"])
	assert.Equal(t, true, fields["backfill"])
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	a, b := &MemorySink{}, &MemorySink{}
	multi := MultiSink{a, nil, b, NopSink{}}

	ev, err := NewPhotoAnalyzed("img", 4, "cafe")
	require.NoError(t, err)
	multi.Record(context.Background(), ev)

	assert.Equal(t, 1, a.Count(KindPhotoAnalyzed))
	assert.Equal(t, 1, b.Count(KindPhotoAnalyzed))
}
