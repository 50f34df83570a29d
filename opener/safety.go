package opener

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

type SafetyCategory string

const (
	CategoryOffensive    SafetyCategory = "offensive"
	CategorySexual       SafetyCategory = "sexual"
	CategoryHarassment   SafetyCategory = "harassment"
	CategoryPersonalInfo SafetyCategory = "personal-info"
	CategorySpam         SafetyCategory = "spam"
)

// SafetyCheckResult is the diagnostic form of a safety classification.
// Category is empty when the text is appropriate.
type SafetyCheckResult struct {
	IsAppropriate bool           `json:"is_appropriate"`
	Category      SafetyCategory `json:"category,omitempty"`
	Confidence    float64        `json:"confidence"`
	Reason        string         `json:"reason,omitempty"`
}

const (
	confidencePositiveContext = 0.9
	confidenceKeyword         = 0.85
	confidenceCaps            = 0.7
	confidenceEmoji           = 0.6
	confidenceLength          = 0.65
	confidenceClean           = 0.95

	minTextChars = 10
	maxTextChars = 300
)

type categoryPatterns struct {
	category SafetyCategory
	patterns []*regexp.Regexp
}

// Patterns run against lower-cased text. Categories are checked in slice order.
var defaultCategoryPatterns = []categoryPatterns{
	{CategoryOffensive, compileAll(
		`\bhate\b`, `\bstupid\b`, `\bidiot\b`, `\bugly\b`,
		`\bloser\b`, `\bdumb\b`, `\bfat\b`, `\bskinny\b`,
	)},
	{CategorySexual, compileAll(
		`\bsexy\b`, `\bhot\b`, `\bnaked\b`, `\bbed\b`,
		`\bstrip\b`, `\bhook\s*up\b`, `\bbooty\b`, `\bbody\b`,
	)},
	{CategoryHarassment, compileAll(
		`\bstalk\b`, `\bcreep\b`, `\bfollow\b.*home`,
		`\balone\b.*with\s*me`, `\bget\s*you\b`,
	)},
	{CategoryPersonalInfo, compileAll(
		`\bphone\b`, `\bnumber\b`, `\baddress\b`,
		`\bwhere.*live\b`, `\bmeet\b.*now\b`,
	)},
	{CategorySpam, compileAll(
		`\bclick\b.*link`, `\bcheck\s*out\b.*profile`,
		`\bfollow\s*me\b`, `\bdm\s*me\b`, `\bsubscribe\b`,
	)},
}

// Legitimate uses of otherwise flagged words. Any match short-circuits to appropriate.
var defaultPositiveContexts = compileAll(
	`\bhot\s*(coffee|chocolate|tea|weather|summer|car|sauce|spring|springs)\b`,
	`\bsexy\s*(car|outfit|confidence)\b`,
	`\bbody\s*(language|positive|building)\b`,
	`\bmeet\s*(new\s*people|friends|at\s*the)\b`,
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe      = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// SafetyFilter classifies candidate openers. It holds no mutable state and is
// safe for concurrent use.
type SafetyFilter struct {
	categories []categoryPatterns
	positive   []*regexp.Regexp
}

func NewSafetyFilter() *SafetyFilter {
	return &SafetyFilter{
		categories: defaultCategoryPatterns,
		positive:   defaultPositiveContexts,
	}
}

func (f *SafetyFilter) IsAppropriate(text string) bool {
	return f.CheckSafety(text).IsAppropriate
}

func (f *SafetyFilter) CheckSafety(text string) SafetyCheckResult {
	lower := strings.ToLower(text)

	for _, re := range f.positive {
		if re.MatchString(lower) {
			return SafetyCheckResult{
				IsAppropriate: true,
				Confidence:    confidencePositiveContext,
				Reason:        "contains appropriate context",
			}
		}
	}

	for _, cp := range f.categories {
		for _, re := range cp.patterns {
			if re.MatchString(lower) {
				return SafetyCheckResult{
					Category:   cp.category,
					Confidence: confidenceKeyword,
					Reason:     "contains potentially inappropriate content",
				}
			}
		}
	}

	if hasExcessiveCapitals(text) {
		return SafetyCheckResult{
			Category:   CategorySpam,
			Confidence: confidenceCaps,
			Reason:     "excessive use of capital letters",
		}
	}

	chars, emoji := countCharsAndEmoji(text)
	if emoji > 5 || (chars > 0 && float64(emoji)/float64(chars) > 0.3) {
		return SafetyCheckResult{
			Category:   CategorySpam,
			Confidence: confidenceEmoji,
			Reason:     "excessive use of emoji",
		}
	}

	if chars < minTextChars || chars > maxTextChars {
		return SafetyCheckResult{
			Category:   CategorySpam,
			Confidence: confidenceLength,
			Reason:     "message length outside acceptable range",
		}
	}

	return SafetyCheckResult{IsAppropriate: true, Confidence: confidenceClean}
}

// Sanitize collapses whitespace and redacts links, emails and phone numbers.
// It never rejects text.
func (f *SafetyFilter) Sanitize(text string) string {
	s := whitespaceRe.ReplaceAllString(text, " ")
	s = strings.TrimSpace(s)
	s = urlRe.ReplaceAllString(s, "[link]")
	s = emailRe.ReplaceAllString(s, "[email]")
	s = phoneRe.ReplaceAllString(s, "[phone]")
	return s
}

// FilterOpeners keeps the appropriate openers in their original order.
func (f *SafetyFilter) FilterOpeners(openers []Opener) []Opener {
	out := make([]Opener, 0, len(openers))
	for _, o := range openers {
		if f.IsAppropriate(o.Text) {
			out = append(out, o)
		}
	}
	return out
}

// SafetyScore is the confidence of the classification decision, folded so
// that rejected text scores the complement of its rejection confidence.
func (f *SafetyFilter) SafetyScore(text string) float64 {
	r := f.CheckSafety(text)
	if r.IsAppropriate {
		return r.Confidence
	}
	return 1 - r.Confidence
}

func hasExcessiveCapitals(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters <= 10 {
		return false
	}
	return float64(upper)/float64(letters) > 0.5
}

// countCharsAndEmoji counts user-perceived characters and how many of them are emoji.
func countCharsAndEmoji(text string) (chars, emoji int) {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		chars++
		if isEmojiCluster(g.Runes()) {
			emoji++
		}
	}
	return chars, emoji
}

// ContainsEmoji reports whether any character of text is an emoji.
func ContainsEmoji(text string) bool {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if isEmojiCluster(g.Runes()) {
			return true
		}
	}
	return false
}

// isEmojiCluster treats a cluster as emoji when it starts with a pictographic
// rune, or when a plain base such as a digit is turned into an emoji by a
// presentation selector or keycap.
func isEmojiCluster(runes []rune) bool {
	if len(runes) == 0 {
		return false
	}
	if isPictographic(runes[0]) {
		return true
	}
	if len(runes) > 1 {
		for _, r := range runes[1:] {
			if r == 0xFE0F || r == 0x20E3 {
				return true
			}
		}
	}
	return false
}

func isPictographic(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r > 0x238C && r <= 0x23FF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r == 0x3030, r == 0x303D, r == 0x3297, r == 0x3299:
		return true
	}
	return false
}
