package opener

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// DefaultConfidence is attached to every parsed opener.
const DefaultConfidence = 0.85

var (
	enumerationRe = regexp.MustCompile(`^(?:\d+\s*[.):]|[-*•])\s*`)
	challengeRe   = regexp.MustCompile(`\b(bet|challenge|dare)\b`)
	observationRe = regexp.MustCompile(`\b(noticed|notice|see|seeing)\b`)
	complimentRe  = regexp.MustCompile(`\b(cute|beautiful|nice|lovely|gorgeous)\b`)
	playfulRe     = regexp.MustCompile(`😂|😏|😉|😜|\bjoke\b|\bkidding\b`)
)

var styleExplanations = map[OpenerStyle]string{
	StyleWitty:       "Uses humor and wordplay to make an engaging first impression",
	StylePlayful:     "A light-hearted approach that invites fun banter",
	StyleCompliment:  "A genuine compliment that stands out from generic lines",
	StyleQuestion:    "An open-ended question that encourages a response",
	StyleObservation: "Shows you paid attention to details in the scene",
	StyleChallenge:   "A playful challenge that creates immediate engagement",
	StyleCallback:    "References something specific from their profile",
	StyleContextual:  "Relates to the specific context or setting of the photo",
}

var quotePairs = [][2]string{{`"`, `"`}, {"“", "”"}}

var tagActivities = []string{"surfing", "hiking", "traveling", "cooking", "reading", "fitness", "music", "art"}

// ParseOpeners turns a raw model response into candidate openers, one per
// non-empty line. Enumeration markers and wrapping quotes are stripped and
// heading lines ending in ':' are skipped.
func ParseOpeners(raw string) []Opener {
	return parseOpeners(raw, DefaultConfidence, uuid.NewString)
}

func parseOpeners(raw string, confidence float64, newID func() string) []Opener {
	var out []Opener
	for _, line := range strings.Split(raw, "\n") {
		text := cleanLine(line)
		if text == "" || strings.HasSuffix(text, ":") {
			continue
		}
		style := DetectStyle(text)
		out = append(out, Opener{
			ID:          newID(),
			Text:        text,
			Style:       style,
			Confidence:  confidence,
			Explanation: styleExplanations[style],
			Tags:        ExtractTags(text),
		})
	}
	return out
}

func cleanLine(line string) string {
	s := strings.TrimSpace(line)
	s = enumerationRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "**")
	s = strings.TrimSuffix(s, "**")
	for _, q := range quotePairs {
		if len(s) > len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = s[len(q[0]) : len(s)-len(q[1])]
			break
		}
	}
	return strings.TrimSpace(s)
}

// DetectStyle guesses a style from lightweight keyword cues. The first cue
// that fires wins and witty is the fallback.
func DetectStyle(text string) OpenerStyle {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "?"):
		return StyleQuestion
	case challengeRe.MatchString(lower):
		return StyleChallenge
	case observationRe.MatchString(lower):
		return StyleObservation
	case complimentRe.MatchString(lower):
		return StyleCompliment
	case playfulRe.MatchString(lower):
		return StylePlayful
	default:
		return StyleWitty
	}
}

// ExtractTags derives short descriptors from the text: activity keywords,
// "emoji" and a length bucket.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, a := range tagActivities {
		if strings.Contains(lower, a) {
			tags = append(tags, a)
		}
	}
	if ContainsEmoji(text) {
		tags = append(tags, "emoji")
	}
	switch n := uniseg.GraphemeClusterCount(text); {
	case n < 50:
		tags = append(tags, "short")
	case n > 100:
		tags = append(tags, "long")
	default:
		tags = append(tags, "medium")
	}
	return tags
}
