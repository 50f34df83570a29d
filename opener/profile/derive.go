package profile

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

const (
	maxInterests = 10
	maxTraits    = 3
)

var hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

type keywordGroup struct {
	name     string
	keywords []string
}

// Interest categories, checked in order.
var interestGroups = []keywordGroup{
	{"travel", []string{"travel", "wanderlust", "adventure", "explore", "passport"}},
	{"fitness", []string{"fitness", "gym", "workout", "yoga", "running", "marathon"}},
	{"food", []string{"foodie", "cooking", "chef", "restaurant", "brunch", "baking"}},
	{"coffee", []string{"coffee", "espresso", "latte", "barista"}},
	{"music", []string{"music", "concert", "guitar", "festival", "vinyl", "dj"}},
	{"nature", []string{"nature", "hiking", "outdoors", "mountains", "camping", "forest"}},
	{"surfing", []string{"surf", "surfing", "waves"}},
	{"art", []string{"art", "painting", "design", "gallery", "museum"}},
	{"photography", []string{"photography", "photographer", "film", "35mm"}},
	{"reading", []string{"books", "reading", "bookworm", "novel"}},
	{"pets", []string{"dog", "puppy", "cat", "kitten"}},
}

var activeWords = []string{"gym", "fitness", "running", "hiking", "yoga", "workout"}

var traitGroups = []keywordGroup{
	{"adventurous", []string{"travel", "adventure", "explore", "wanderlust", "surf", "climbing"}},
	{"creative", []string{"art", "design", "music", "photography", "painting", "writing"}},
	{"active", activeWords},
	{"foodie", []string{"food", "foodie", "coffee", "cooking", "brunch", "chef"}},
	{"social", []string{"friends", "party", "squad", "crew", "brunch", "festival"}},
	{"bookish", []string{"books", "reading", "novel", "poetry"}},
}

var (
	activeInterests = map[string]bool{"fitness": true, "nature": true, "travel": true, "surfing": true}
	socialWords     = []string{"friends", "party", "squad", "crew", "people", "festival", "together"}
)

// Enrich fills Interests and Personality when they are missing.
func Enrich(p *opener.Profile) {
	if p == nil {
		return
	}
	if len(p.Interests) == 0 {
		p.Interests = ExtractInterests(p.Bio, captions(p.Posts)...)
	}
	if p.Personality == nil {
		p.Personality = DerivePersonality(*p)
	}
}

// ExtractInterests returns hashtags in first-seen order followed by keyword
// categories, deduplicated and capped.
func ExtractInterests(bio string, captions ...string) []string {
	texts := append([]string{bio}, captions...)
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] || len(out) == maxInterests {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, t := range texts {
		for _, m := range hashtagRe.FindAllStringSubmatch(t, -1) {
			add(m[1])
		}
	}
	words := wordSet(texts...)
	for _, g := range interestGroups {
		if hits(words, g.keywords) > 0 {
			add(g.name)
		}
	}
	return out
}

// DerivePersonality estimates traits from the bio, captions and interests.
func DerivePersonality(p opener.Profile) *opener.Personality {
	caps := captions(p.Posts)
	texts := append([]string{p.Bio}, caps...)
	texts = append(texts, p.Interests...)
	words := wordSet(texts...)

	type scored struct {
		name  string
		score int
	}
	var traits []scored
	for _, g := range traitGroups {
		if n := hits(words, g.keywords); n > 0 {
			traits = append(traits, scored{g.name, n})
		}
	}
	sort.SliceStable(traits, func(i, j int) bool {
		if traits[i].score != traits[j].score {
			return traits[i].score > traits[j].score
		}
		return traits[i].name < traits[j].name
	})
	var dominant []string
	for _, t := range traits {
		if len(dominant) == maxTraits {
			break
		}
		dominant = append(dominant, t.name)
	}

	active := 0
	for _, in := range p.Interests {
		if activeInterests[strings.ToLower(in)] {
			active++
		}
	}
	if active == 0 {
		active = hits(words, activeWords)
	}
	activity := "Low"
	switch {
	case active >= 2:
		activity = "High"
	case active == 1:
		activity = "Moderate"
	}

	exclaims := 0
	emoji := false
	for _, t := range texts {
		exclaims += strings.Count(t, "!")
		if opener.ContainsEmoji(t) {
			emoji = true
		}
	}
	social := "Reserved"
	if hits(words, socialWords) > 0 || exclaims >= 2 {
		social = "Outgoing"
	}

	communication := "Thoughtful"
	switch {
	case emoji || exclaims > 0:
		communication = "Expressive"
	case averageLength(append([]string{p.Bio}, caps...)) < 40:
		communication = "Concise"
	}

	return &opener.Personality{
		DominantTraits:     dominant,
		CommunicationStyle: communication,
		SocialStyle:        social,
		ActivityLevel:      activity,
	}
}

func captions(posts []opener.ProfilePost) []string {
	var out []string
	for _, p := range posts {
		if c := strings.TrimSpace(p.Caption); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func wordSet(texts ...string) map[string]bool {
	words := map[string]bool{}
	for _, t := range texts {
		for _, w := range strings.FieldsFunc(strings.ToLower(t), isSeparator) {
			words[w] = true
		}
	}
	return words
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
}

func hits(words map[string]bool, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if words[k] {
			n++
		}
	}
	return n
}

func averageLength(texts []string) float64 {
	total, n := 0, 0
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			total += uniseg.GraphemeClusterCount(t)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}
