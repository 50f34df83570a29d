package opener

import (
	"sort"
	"sync"
	"time"
)

const (
	DefaultHistoryLimit        = 50
	DefaultSimilarityThreshold = 0.5
	DefaultSuccessRating       = 4

	recentAnalysisCount     = 5
	recentOpenerRecordCount = 10
	similarAnalysisLimit    = 3
	successfulOpenerLimit   = 10
	successfulTextLimit     = 20
	popularStyleLimit       = 3
	commonElementLimit      = 5

	minRating = 1
	maxRating = 5
)

type memoryConfig struct {
	historyLimit        int
	similarityThreshold float64
	successRating       int
	now                 func() time.Time
}

type MemoryOption func(*memoryConfig)

// WithHistoryLimit bounds how many session records are retained.
func WithHistoryLimit(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithSimilarityThreshold sets the Jaccard cutoff used by FindSimilarAnalyses.
// Only strictly greater similarities are returned.
func WithSimilarityThreshold(t float64) MemoryOption {
	return func(c *memoryConfig) {
		c.similarityThreshold = t
	}
}

// WithSuccessRating sets the minimum rating that marks an opener as successful.
func WithSuccessRating(r int) MemoryOption {
	return func(c *memoryConfig) {
		if r >= minRating && r <= maxRating {
			c.successRating = r
		}
	}
}

func withClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		c.now = now
	}
}

// SessionMemory is the bounded in-process history of analyses, generated
// openers and user feedback. Writers take the lock exclusively and readers
// share it. Every value handed out is a copy.
type SessionMemory struct {
	mu      sync.RWMutex
	cfg     memoryConfig
	records []SessionRecord
	prefs   UserPreferences
	rev     uint64
}

func NewSessionMemory(opts ...MemoryOption) *SessionMemory {
	cfg := memoryConfig{
		historyLimit:        DefaultHistoryLimit,
		similarityThreshold: DefaultSimilarityThreshold,
		successRating:       DefaultSuccessRating,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SessionMemory{
		cfg:   cfg,
		prefs: UserPreferences{Tone: ToneBalanced},
	}
}

// Store appends a record and evicts the oldest ones beyond the history limit.
func (m *SessionMemory) Store(analysis AnalysisRecord, result OpenerResult) {
	rec := SessionRecord{
		Analysis: cloneAnalysis(analysis),
		Result:   cloneResult(result),
		StoredAt: m.cfg.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	m.pruneLocked()
	m.rev++
}

func (m *SessionMemory) pruneLocked() {
	if over := len(m.records) - m.cfg.historyLimit; over > 0 {
		kept := make([]SessionRecord, m.cfg.historyLimit)
		copy(kept, m.records[over:])
		m.records = kept
	}
}

// RecentContext returns the last 5 analyses, the openers of the last 10
// records, the current preferences and a pattern summary.
func (m *SessionMemory) RecentContext() SessionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sc SessionContext
	for _, r := range tail(m.records, recentAnalysisCount) {
		sc.RecentAnalyses = append(sc.RecentAnalyses, cloneAnalysis(r.Analysis))
	}
	for _, r := range tail(m.records, recentOpenerRecordCount) {
		for _, o := range r.Result.Openers {
			sc.RecentOpeners = append(sc.RecentOpeners, cloneOpener(o))
		}
	}
	sc.Preferences = clonePreferences(m.prefs)
	sc.Patterns = m.patternsLocked()
	return sc
}

func (m *SessionMemory) patternsLocked() Patterns {
	p := Patterns{CommonElements: m.commonElementsLocked()}
	for _, r := range m.records {
		for _, o := range r.Result.Openers {
			if r.Ratings[o.ID] < m.cfg.successRating {
				continue
			}
			if p.SuccessfulStyles == nil {
				p.SuccessfulStyles = make(map[OpenerStyle]int)
			}
			p.SuccessfulStyles[o.Style]++
		}
	}
	return p
}

func (m *SessionMemory) commonElementsLocked() []string {
	counts := make(map[string]int)
	for _, r := range m.records {
		for _, e := range r.Analysis.Elements {
			counts[ElementKey(e)]++
		}
	}
	return topKeys(counts, commonElementLimit)
}

// FindSimilarAnalyses returns up to 3 historical analyses whose element keys
// overlap the target's by more than the similarity threshold, most similar
// first. Equal similarities favor the more recent record.
func (m *SessionMemory) FindSimilarAnalyses(target AnalysisRecord) []AnalysisRecord {
	want := ElementKeys(target)

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		analysis AnalysisRecord
		sim      float64
	}
	var hits []scored
	for i := len(m.records) - 1; i >= 0; i-- {
		a := m.records[i].Analysis
		if sim := Jaccard(want, ElementKeys(a)); sim > m.cfg.similarityThreshold {
			hits = append(hits, scored{analysis: a, sim: sim})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })

	var out []AnalysisRecord
	for i, h := range hits {
		if i == similarAnalysisLimit {
			break
		}
		out = append(out, cloneAnalysis(h.analysis))
	}
	return out
}

// SuccessfulOpeners returns up to 10 openers whose latest rating meets the
// success threshold, most recently stored first. An empty style matches all.
func (m *SessionMemory) SuccessfulOpeners(style OpenerStyle) []Opener {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Opener
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		for _, o := range r.Result.Openers {
			if r.Ratings[o.ID] < m.cfg.successRating {
				continue
			}
			if style != "" && o.Style != style {
				continue
			}
			out = append(out, cloneOpener(o))
			if len(out) == successfulOpenerLimit {
				return out
			}
		}
	}
	return out
}

// RateOpener records a 1-5 rating for an opener. A later rating for the same
// id replaces the earlier one. It reports false, and changes nothing, when the
// rating is out of range or the id is unknown.
func (m *SessionMemory) RateOpener(openerID string, rating int) bool {
	if openerID == "" || rating < minRating || rating > maxRating {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		r := &m.records[i]
		for _, o := range r.Result.Openers {
			if o.ID != openerID {
				continue
			}
			if r.Ratings == nil {
				r.Ratings = make(map[string]int)
			}
			r.Ratings[openerID] = rating
			if rating >= m.cfg.successRating {
				m.learnLocked(o)
			}
			m.rev++
			return true
		}
	}
	return false
}

func (m *SessionMemory) learnLocked(o Opener) {
	texts := dedupeStrings(append(m.prefs.SuccessfulOpeners, o.Text))
	if over := len(texts) - successfulTextLimit; over > 0 {
		texts = texts[over:]
	}
	m.prefs.SuccessfulOpeners = texts
	m.prefs.PreferredStyles = dedupeStyles(append(m.prefs.PreferredStyles, o.Style))
}

// UpdatePreferences applies fn to the preferences under the write lock.
// Preferred styles and avoided topics keep set semantics afterwards.
func (m *SessionMemory) UpdatePreferences(fn func(*UserPreferences)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.prefs)
	m.prefs.PreferredStyles = dedupeStyles(m.prefs.PreferredStyles)
	m.prefs.AvoidedTopics = dedupeStrings(m.prefs.AvoidedTopics)
	m.rev++
}

func (m *SessionMemory) Preferences() UserPreferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clonePreferences(m.prefs)
}

// Stats aggregates the current history. With no ratings recorded the average is 0.
func (m *SessionMemory) Stats() SessionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := SessionStats{
		TotalAnalyses:  len(m.records),
		PopularStyles:  []OpenerStyle{},
		CommonElements: m.commonElementsLocked(),
	}

	styleCounts := make(map[string]int)
	ratingSum, ratingCount := 0, 0
	for _, r := range m.records {
		stats.TotalOpeners += len(r.Result.Openers)
		for _, o := range r.Result.Openers {
			styleCounts[string(o.Style)]++
		}
		for _, v := range r.Ratings {
			ratingSum += v
			ratingCount++
		}
	}
	if ratingCount > 0 {
		stats.AverageRating = float64(ratingSum) / float64(ratingCount)
	}
	for _, s := range topKeys(styleCounts, popularStyleLimit) {
		stats.PopularStyles = append(stats.PopularStyles, OpenerStyle(s))
	}
	return stats
}

func (m *SessionMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Revision increases on every mutation. Equal revisions mean an unchanged
// session, even when eviction keeps Len constant.
func (m *SessionMemory) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rev
}

// Snapshot exports the whole session for persistence.
func (m *SessionMemory) Snapshot() SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := SessionSnapshot{
		Records:     make([]SessionRecord, 0, len(m.records)),
		Preferences: clonePreferences(m.prefs),
		SavedAt:     m.cfg.now(),
	}
	for _, r := range m.records {
		snap.Records = append(snap.Records, cloneRecord(r))
	}
	return snap
}

// Restore replaces the session with snap. Records beyond the history limit
// are dropped oldest first.
func (m *SessionMemory) Restore(snap SessionSnapshot) {
	records := make([]SessionRecord, 0, len(snap.Records))
	for _, r := range snap.Records {
		records = append(records, cloneRecord(r))
	}
	prefs := clonePreferences(snap.Preferences)
	if prefs.Tone == "" {
		prefs.Tone = ToneBalanced
	}
	prefs.PreferredStyles = dedupeStyles(prefs.PreferredStyles)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
	m.prefs = prefs
	m.pruneLocked()
	m.rev++
}

func tail(records []SessionRecord, n int) []SessionRecord {
	if len(records) > n {
		return records[len(records)-n:]
	}
	return records
}
