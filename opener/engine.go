package opener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/flirtframe/opener/analytics"
)

// GenerationParams are passed through to the text-generation service.
type GenerationParams struct {
	MaxTokens   int64
	Temperature float64
}

// TextGenerator is a single-shot prompt to text call.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// History is the part of SessionMemory the engine depends on.
type History interface {
	RecentContext() SessionContext
	Store(analysis AnalysisRecord, result OpenerResult)
	RateOpener(openerID string, rating int) bool
}

const defaultBackfillInstruction = "Generate one more unique opener in the same style."

// EngineConfig holds the generation parameters and the backfill limits.
type EngineConfig struct {
	Count    int
	Primary  GenerationParams
	Backfill GenerationParams

	// BackfillInstruction is appended to the primary prompt for each top-up call.
	BackfillInstruction string
	MaxBackfillAttempts int
	BackfillTimeout     time.Duration
	// BackfillBackoff is the wait after a rejected candidate. It doubles up to
	// MaxBackfillBackoff. Zero disables waiting.
	BackfillBackoff    time.Duration
	MaxBackfillBackoff time.Duration

	Confidence float64
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Count:               DefaultOpenerCount,
		Primary:             GenerationParams{MaxTokens: 500, Temperature: 0.8},
		Backfill:            GenerationParams{MaxTokens: 100, Temperature: 0.9},
		BackfillInstruction: defaultBackfillInstruction,
		MaxBackfillAttempts: 10,
		BackfillTimeout:     30 * time.Second,
		BackfillBackoff:     250 * time.Millisecond,
		MaxBackfillBackoff:  4 * time.Second,
		Confidence:          DefaultConfidence,
	}
}

func (c EngineConfig) Validate() error {
	if c.Count <= 0 {
		return errors.New("EngineConfig: count must be > 0")
	}
	if c.Primary.MaxTokens <= 0 || c.Backfill.MaxTokens <= 0 {
		return errors.New("EngineConfig: max tokens must be > 0")
	}
	if c.MaxBackfillAttempts < 0 {
		return errors.New("EngineConfig: max backfill attempts must be >= 0")
	}
	if c.BackfillTimeout < 0 || c.BackfillBackoff < 0 || c.MaxBackfillBackoff < 0 {
		return errors.New("EngineConfig: durations must be >= 0")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.New("EngineConfig: confidence must be in [0,1]")
	}
	return nil
}

type EngineOption func(*Engine)

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithSink(s analytics.Sink) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

func WithEngineConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

func WithSafetyFilter(f *SafetyFilter) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.filter = f
		}
	}
}

// Engine builds prompts, calls the generator, filters candidates, tops up
// shortfalls and records results. It is safe for concurrent use as long as
// the History implementation is.
type Engine struct {
	gen     TextGenerator
	history History
	filter  *SafetyFilter
	cfg     EngineConfig
	logger  *zap.Logger
	sink    analytics.Sink
	newID   func() string
	now     func() time.Time
}

func NewEngine(gen TextGenerator, history History, opts ...EngineOption) (*Engine, error) {
	if gen == nil {
		return nil, errors.New("NewEngine: generator is nil")
	}
	if history == nil {
		return nil, errors.New("NewEngine: history is nil")
	}
	e := &Engine{
		gen:     gen,
		history: history,
		filter:  NewSafetyFilter(),
		cfg:     DefaultEngineConfig(),
		logger:  zap.NewNop(),
		sink:    analytics.NopSink{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	return e, nil
}

// GenerateRequest asks for openers about one analysis. Profile and Style are
// optional; Count <= 0 uses the configured default.
type GenerateRequest struct {
	Analysis AnalysisRecord
	Profile  *Profile
	Style    OpenerStyle
	Count    int
}

// GenerateOpeners runs one generation round. A failed primary call returns a
// *GenerationError. Backfill failures end the top-up early and yield a
// partial result. Cancellation of ctx returns ctx.Err() and stores nothing.
func (e *Engine) GenerateOpeners(ctx context.Context, req GenerateRequest) (OpenerResult, error) {
	count := req.Count
	if count <= 0 {
		count = e.cfg.Count
	}
	log := e.logger.With(zap.String("analysis_id", req.Analysis.ImageID))

	prompt := BuildPrompt(req.Analysis, req.Profile, req.Style, e.history.RecentContext())

	raw, err := e.gen.Generate(ctx, prompt, e.cfg.Primary)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return OpenerResult{}, ctxErr
		}
		return OpenerResult{}, &GenerationError{Stage: "primary", Err: err}
	}

	seen := make(map[string]struct{})
	accepted := e.accept(ctx, parseOpeners(raw, e.cfg.Confidence, e.newID), seen, false)
	log.Debug("primary candidates filtered", zap.Int("accepted", len(accepted)), zap.Int("wanted", count))

	backfillCalls := 0
	if len(accepted) < count {
		accepted, backfillCalls, err = e.backfill(ctx, prompt, accepted, count, seen, log)
		if err != nil {
			return OpenerResult{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return OpenerResult{}, err
	}
	if len(accepted) == 0 {
		return OpenerResult{}, ErrNoOpeners
	}
	if len(accepted) > count {
		accepted = accepted[:count]
	}

	result := OpenerResult{
		AnalysisID:  req.Analysis.ImageID,
		Openers:     accepted,
		Requested:   count,
		Partial:     len(accepted) < count,
		GeneratedAt: e.now(),
	}
	e.history.Store(req.Analysis, result)

	if ev, err := analytics.NewOpenersGenerated(req.Analysis.ImageID, string(req.Style), count, len(accepted), backfillCalls); err == nil {
		e.sink.Record(ctx, ev)
	} else {
		log.Warn("drop analytics event", zap.Error(err))
	}
	if result.Partial {
		log.Warn("partial opener result", zap.Int("accepted", len(accepted)), zap.Int("requested", count))
	}
	return cloneResult(result), nil
}

// backfill issues single-opener calls until count is reached, the attempt cap
// or deadline is hit, or a call fails.
func (e *Engine) backfill(ctx context.Context, prompt string, accepted []Opener, count int, seen map[string]struct{}, log *zap.Logger) ([]Opener, int, error) {
	bctx := ctx
	if e.cfg.BackfillTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, e.cfg.BackfillTimeout)
		defer cancel()
	}

	calls := 0
	delay := e.cfg.BackfillBackoff
	for len(accepted) < count && calls < e.cfg.MaxBackfillAttempts {
		calls++
		raw, err := e.gen.Generate(bctx, backfillPrompt(prompt, accepted, e.cfg.BackfillInstruction), e.cfg.Backfill)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, calls, ctxErr
			}
			log.Warn("backfill call failed", zap.Int("attempt", calls), zap.Error(err))
			break
		}

		candidates := parseOpeners(raw, e.cfg.Confidence, e.newID)
		if len(candidates) > 1 {
			candidates = candidates[:1]
		}
		if got := e.accept(ctx, candidates, seen, true); len(got) > 0 {
			accepted = append(accepted, got...)
			continue
		}

		if delay > 0 {
			if !sleepCtx(bctx, delay) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, calls, ctxErr
				}
				log.Warn("backfill deadline reached", zap.Int("attempts", calls))
				break
			}
			delay *= 2
			if e.cfg.MaxBackfillBackoff > 0 && delay > e.cfg.MaxBackfillBackoff {
				delay = e.cfg.MaxBackfillBackoff
			}
		}
	}
	return accepted, calls, nil
}

// accept applies the safety filter and drops duplicate texts.
func (e *Engine) accept(ctx context.Context, candidates []Opener, seen map[string]struct{}, backfill bool) []Opener {
	var out []Opener
	for _, c := range candidates {
		key := strings.ToLower(c.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		check := e.filter.CheckSafety(c.Text)
		if !check.IsAppropriate {
			e.logger.Debug("candidate rejected",
				zap.String("category", string(check.Category)),
				zap.String("reason", check.Reason))
			if ev, err := analytics.NewCandidateRejected(string(check.Category), check.Confidence, backfill); err == nil {
				e.sink.Record(ctx, ev)
			}
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func backfillPrompt(prompt string, accepted []Opener, instruction string) string {
	var b strings.Builder
	b.WriteString(prompt)
	if len(accepted) > 0 {
		b.WriteString("\n\nAlready suggested (do not repeat):\n")
		for _, o := range accepted {
			b.WriteString("- ")
			b.WriteString(o.Text)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(instruction)
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RateOpener forwards user feedback to the history and emits an event when
// the opener was found.
func (e *Engine) RateOpener(ctx context.Context, openerID string, rating int) bool {
	if !e.history.RateOpener(openerID, rating) {
		e.logger.Debug("rating ignored", zap.String("opener_id", openerID), zap.Int("rating", rating))
		return false
	}
	if ev, err := analytics.NewOpenerRated(openerID, rating); err == nil {
		e.sink.Record(ctx, ev)
	}
	return true
}

// GenerateBatch runs independent requests with at most concurrency in flight.
// Results line up with reqs. A failed request leaves a zero result at its
// index without stopping the others, and every failure is joined into the
// returned error.
func (e *Engine) GenerateBatch(ctx context.Context, reqs []GenerateRequest, concurrency int) ([]OpenerResult, error) {
	results := make([]OpenerResult, len(reqs))
	errs := make([]error, len(reqs))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := range reqs {
		g.Go(func() error {
			res, err := e.GenerateOpeners(ctx, reqs[i])
			if err != nil {
				errs[i] = fmt.Errorf("GenerateBatch: request %d (%s): %w", i, reqs[i].Analysis.ImageID, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}
