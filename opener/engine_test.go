package opener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/flirtframe/opener/analytics"
)

type generatorCall struct {
	prompt string
	params GenerationParams
}

// scriptedGenerator answers each call with respond(callIndex, prompt).
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   []generatorCall
	respond func(ctx context.Context, n int, prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	g.mu.Lock()
	n := len(g.calls)
	g.calls = append(g.calls, generatorCall{prompt: prompt, params: params})
	g.mu.Unlock()
	return g.respond(ctx, n, prompt)
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type countingHistory struct {
	*SessionMemory
	mu     sync.Mutex
	stores int
}

func newCountingHistory() *countingHistory {
	return &countingHistory{SessionMemory: NewSessionMemory()}
}

func (h *countingHistory) Store(a AnalysisRecord, r OpenerResult) {
	h.mu.Lock()
	h.stores++
	h.mu.Unlock()
	h.SessionMemory.Store(a, r)
}

func (h *countingHistory) storeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stores
}

func testEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.BackfillBackoff = 0
	return cfg
}

func newTestEngine(t *testing.T, gen TextGenerator, h History, sink analytics.Sink, mutate ...func(*EngineConfig)) *Engine {
	t.Helper()
	cfg := testEngineConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := NewEngine(gen, h, WithEngineConfig(cfg), WithSink(sink))
	require.NoError(t, err)
	return e
}

var benignLines = []string{
	"That surfboard has clearly seen some serious waves",
	"Longboard or fish, which one taught you more?",
	"I bet you paddle out before the sun is even up",
	"The wax job on that board is honestly impressive",
	"This beach picked a great day for you",
}

func numbered(lines ...string) string {
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l)
	}
	return b.String()
}

func TestGenerateOpeners_AllAccepted(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return numbered(benignLines...), nil
	}}
	h := newCountingHistory()
	sink := &analytics.MemorySink{}
	e := newTestEngine(t, gen, h, sink)

	res, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis()})
	require.NoError(t, err)

	require.Len(t, res.Openers, 5)
	assert.Equal(t, "img-beach", res.AnalysisID)
	assert.Equal(t, 5, res.Requested)
	assert.False(t, res.Partial)
	ids := map[string]bool{}
	for i, o := range res.Openers {
		assert.Equal(t, benignLines[i], o.Text)
		assert.NotEmpty(t, o.ID)
		assert.False(t, ids[o.ID])
		ids[o.ID] = true
	}

	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, GenerationParams{MaxTokens: 500, Temperature: 0.8}, gen.calls[0].params)
	assert.Equal(t, 1, h.storeCount())
	assert.Equal(t, 1, sink.Count(analytics.KindOpenersGenerated))
	assert.Zero(t, sink.Count(analytics.KindCandidateRejected))
}

func TestGenerateOpeners_BackfillTopsUp(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(_ context.Context, n int, _ string) (string, error) {
		if n == 0 {
			return numbered(
				benignLines[0],
				"You look stupid in that hat",
				benignLines[1],
				"Can I get your phone number later",
				benignLines[2],
			), nil
		}
		return fmt.Sprintf("What got you into surfing, round %d?", n), nil
	}}
	h := newCountingHistory()
	sink := &analytics.MemorySink{}
	e := newTestEngine(t, gen, h, sink)

	res, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis(), Style: StyleQuestion})
	require.NoError(t, err)

	require.Len(t, res.Openers, 5)
	assert.False(t, res.Partial)
	assert.Equal(t, "What got you into surfing, round 1?", res.Openers[3].Text)
	assert.Equal(t, "What got you into surfing, round 2?", res.Openers[4].Text)

	require.Equal(t, 3, gen.callCount(), "one primary and exactly two backfill calls")
	backfill := gen.calls[1]
	assert.Equal(t, GenerationParams{MaxTokens: 100, Temperature: 0.9}, backfill.params)
	assert.True(t, strings.HasPrefix(backfill.prompt, gen.calls[0].prompt))
	assert.Contains(t, backfill.prompt, "Already suggested (do not repeat):\n- "+benignLines[0])
	assert.True(t, strings.HasSuffix(backfill.prompt, defaultBackfillInstruction))

	assert.Equal(t, 1, h.storeCount())
	assert.Equal(t, 2, sink.Count(analytics.KindCandidateRejected))

	for _, o := range res.Openers {
		assert.True(t, NewSafetyFilter().IsAppropriate(o.Text), o.Text)
	}
}

func TestGenerateOpeners_PrimaryFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream 500")
	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return "", boom
	}}
	h := newCountingHistory()
	e := newTestEngine(t, gen, h, nil)

	_, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis()})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "primary", genErr.Stage)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, h.storeCount())
	assert.Zero(t, h.Len())
}

func TestGenerateOpeners_BackfillFailureYieldsPartial(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(_ context.Context, n int, _ string) (string, error) {
		if n == 0 {
			return numbered(benignLines[:2]...), nil
		}
		return "", errors.New("rate limited")
	}}
	h := newCountingHistory()
	sink := &analytics.MemorySink{}
	e := newTestEngine(t, gen, h, sink)

	res, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis()})
	require.NoError(t, err)
	assert.Len(t, res.Openers, 2)
	assert.True(t, res.Partial)
	assert.Equal(t, 5, res.Requested)
	assert.Equal(t, 2, gen.callCount())
	assert.Equal(t, 1, h.storeCount())

	events := sink.Events()
	require.Len(t, events, 1)
	ev, ok := events[0].(analytics.OpenersGenerated)
	require.True(t, ok)
	assert.True(t, ev.Partial)
	assert.Equal(t, 1, ev.BackfillCalls)
}

func TestGenerateOpeners_NoOpeners(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return "You are such an idiot lol", nil
	}}
	h := newCountingHistory()
	sink := &analytics.MemorySink{}
	e := newTestEngine(t, gen, h, sink, func(c *EngineConfig) { c.MaxBackfillAttempts = 3 })

	_, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis()})
	require.ErrorIs(t, err, ErrNoOpeners)
	assert.Equal(t, 4, gen.callCount())
	assert.Zero(t, h.storeCount())
	assert.Equal(t, 4, sink.Count(analytics.KindCandidateRejected))
	assert.Zero(t, sink.Count(analytics.KindOpenersGenerated))
}

func TestGenerateOpeners_AttemptCapAndDuplicates(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return benignLines[0], nil
	}}
	h := newCountingHistory()
	e := newTestEngine(t, gen, h, nil)

	res, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis(), Count: 3})
	require.NoError(t, err)
	require.Len(t, res.Openers, 1)
	assert.True(t, res.Partial)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 1+DefaultEngineConfig().MaxBackfillAttempts, gen.callCount())
}

func TestGenerateOpeners_TruncatesToCount(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return numbered(benignLines...), nil
	}}
	e := newTestEngine(t, gen, newCountingHistory(), nil)

	res, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis(), Count: 2})
	require.NoError(t, err)
	assert.Len(t, res.Openers, 2)
	assert.False(t, res.Partial)
}

func TestGenerateOpeners_CancelledDuringPrimary(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGenerator{respond: func(ctx context.Context, _ int, _ string) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	h := newCountingHistory()
	e := newTestEngine(t, gen, h, nil)

	_, err := e.GenerateOpeners(ctx, GenerateRequest{Analysis: beachAnalysis()})
	require.ErrorIs(t, err, context.Canceled)
	var genErr *GenerationError
	assert.False(t, errors.As(err, &genErr))
	assert.Zero(t, h.storeCount())
}

func TestGenerateOpeners_CancelledDuringBackfill(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &scriptedGenerator{respond: func(ctx context.Context, n int, _ string) (string, error) {
		if n == 0 {
			return numbered(benignLines[:2]...), nil
		}
		cancel()
		return "", ctx.Err()
	}}
	h := newCountingHistory()
	e := newTestEngine(t, gen, h, nil)

	_, err := e.GenerateOpeners(ctx, GenerateRequest{Analysis: beachAnalysis()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.storeCount())
}

func TestEngine_RateOpener(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return numbered(benignLines...), nil
	}}
	h := newCountingHistory()
	sink := &analytics.MemorySink{}
	e := newTestEngine(t, gen, h, sink)

	res, err := e.GenerateOpeners(context.Background(), GenerateRequest{Analysis: beachAnalysis()})
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, e.RateOpener(ctx, res.Openers[1].ID, 5))
	assert.False(t, e.RateOpener(ctx, "missing", 5))
	assert.False(t, e.RateOpener(ctx, res.Openers[1].ID, 9))
	assert.Equal(t, 1, sink.Count(analytics.KindOpenerRated))

	assert.Equal(t, []string{benignLines[1]}, h.Preferences().SuccessfulOpeners)

	// The next prompt carries what was learned.
	_, err = e.GenerateOpeners(ctx, GenerateRequest{Analysis: beachAnalysis()})
	require.NoError(t, err)
	assert.Contains(t, gen.calls[1].prompt, "USER PREFERENCES:")
}

func TestGenerateBatch(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) {
		return numbered(benignLines...), nil
	}}
	h := newCountingHistory()
	e := newTestEngine(t, gen, h, nil)

	var reqs []GenerateRequest
	for i := 0; i < 4; i++ {
		a := beachAnalysis()
		a.ImageID = fmt.Sprint("img-", i)
		reqs = append(reqs, GenerateRequest{Analysis: a})
	}

	results, err := e.GenerateBatch(context.Background(), reqs, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, fmt.Sprint("img-", i), r.AnalysisID)
		assert.Len(t, r.Openers, 5)
	}
	assert.Equal(t, 4, h.storeCount())
	assert.Equal(t, 4, h.Len())
}

func TestGenerateBatch_FailureNamesRequest(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(_ context.Context, _ int, prompt string) (string, error) {
		if strings.Contains(prompt, "broken-lamp") {
			return "", errors.New("bad gateway")
		}
		return numbered(benignLines...), nil
	}}
	e := newTestEngine(t, gen, newCountingHistory(), nil)

	bad := beachAnalysis()
	bad.ImageID = "img-bad"
	bad.Elements = append(bad.Elements, DetectedElement{Type: ElementObject, Label: "broken-lamp"})

	results, err := e.GenerateBatch(context.Background(), []GenerateRequest{{Analysis: beachAnalysis()}, {Analysis: bad}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 1 (img-bad)")
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Openers, 5)
}

func TestGenerateBatch_FailureKeepsSiblings(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(_ context.Context, _ int, prompt string) (string, error) {
		if strings.Contains(prompt, "broken-lamp") {
			return "", errors.New("bad gateway")
		}
		return numbered(benignLines...), nil
	}}
	h := newCountingHistory()
	e := newTestEngine(t, gen, h, nil)

	bad := beachAnalysis()
	bad.ImageID = "img-bad"
	bad.Elements = append(bad.Elements, DetectedElement{Type: ElementObject, Label: "broken-lamp"})
	reqs := []GenerateRequest{{Analysis: bad}}
	for i := 1; i <= 2; i++ {
		a := beachAnalysis()
		a.ImageID = fmt.Sprint("img-", i)
		reqs = append(reqs, GenerateRequest{Analysis: a})
	}

	results, err := e.GenerateBatch(context.Background(), reqs, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 0 (img-bad)")
	require.Len(t, results, 3)
	assert.Empty(t, results[0].AnalysisID)
	assert.Equal(t, "img-1", results[1].AnalysisID)
	assert.Equal(t, "img-2", results[2].AnalysisID)
	assert.Len(t, results[2].Openers, 5)
	assert.Equal(t, 2, h.storeCount())
}

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{respond: func(context.Context, int, string) (string, error) { return "", nil }}

	_, err := NewEngine(nil, NewSessionMemory())
	assert.Error(t, err)
	_, err = NewEngine(gen, nil)
	assert.Error(t, err)

	cfg := DefaultEngineConfig()
	cfg.Count = 0
	_, err = NewEngine(gen, NewSessionMemory(), WithEngineConfig(cfg))
	assert.Error(t, err)

	cfg = DefaultEngineConfig()
	cfg.Confidence = 1.5
	_, err = NewEngine(gen, NewSessionMemory(), WithEngineConfig(cfg))
	assert.Error(t, err)
}
