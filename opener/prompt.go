package opener

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// DefaultOpenerCount is how many openers the prompt asks the model for.
const DefaultOpenerCount = 5

const promptPreamble = `You are an expert at creating witty, observational conversation starters for real-world social situations.
Your goal is to help people start engaging conversations based on what they observe around them.
These are for SPOKEN conversations, not text messages.
`

const genericStyleGuidance = `

Create openers in various styles including witty, playful, observational, and question-based approaches.
`

var styleGuidance = map[OpenerStyle]string{
	StyleWitty: `Create clever, humorous openers that show intelligence and creativity.
Use wordplay, puns, or unexpected observations.
Keep it light and avoid being too serious.`,
	StylePlayful: `Create fun, energetic openers that invite playful banter.
Use emojis sparingly but effectively.
Include light teasing or friendly challenges.`,
	StyleCompliment: `Create genuine, specific compliments that go beyond physical appearance.
Notice unique details or choices they've made.
Explain why you find it interesting or admirable.`,
	StyleQuestion: `Create open-ended questions that spark curiosity.
Ask about experiences, opinions, or stories related to the photo.
Make questions specific and engaging, not generic.`,
	StyleObservation: `Make specific, insightful observations about the photo or profile.
Show that you've paid attention to details.
Connect observations to potential shared interests or experiences.`,
	StyleChallenge: `Create friendly challenges or playful dares.
Make it fun and achievable, not intimidating.
Relate challenges to their apparent interests or skills.`,
	StyleCallback: `Reference specific details from their profile or photos.
Create connections between multiple elements you've noticed.
Show you've taken time to understand their personality.`,
	StyleContextual: `Create openers that directly relate to the setting or activity in the photo.
Imagine yourself in that situation and what you might say.
Be relevant to the moment captured in the image.`,
}

var closingInstructions = fmt.Sprintf(`

Generate %[1]d unique conversation starters based on the detailed observations above. Each opener should:
1. Reference SPECIFIC visual details from the scene (not generic observations)
2. Be witty, clever, or insightful and show personality
3. Feel natural to say out loud in person
4. Invite engagement without being pushy
5. Avoid clichés like "nice weather" or "come here often"

Focus on:
- Unique architectural or design elements
- Interesting juxtapositions or contrasts
- Cultural references or artistic details
- Unusual objects or arrangements
- The story behind visible elements

Make observations that show you notice details others might miss.

Format each opener on a new line, numbered 1-%[1]d.`, DefaultOpenerCount)

type themeKeyword struct {
	keyword string
	theme   string
}

var postThemeKeywords = []themeKeyword{
	{"travel", "travel"},
	{"adventure", "adventure"},
	{"food", "foodie"},
	{"fitness", "fitness"},
	{"nature", "nature"},
	{"music", "music"},
	{"art", "art"},
	{"coffee", "coffee"},
	{"wine", "wine"},
	{"beach", "beach"},
	{"mountain", "outdoors"},
}

const (
	maxPromptConnections = 3
	maxThemePosts        = 5
	maxPostThemes        = 3
	maxRecentThemes      = 5
)

// BuildPrompt renders the instruction block sent to the text-generation
// service. It is a pure function of its inputs; profile may be nil and style
// may be empty.
func BuildPrompt(analysis AnalysisRecord, profile *Profile, style OpenerStyle, sc SessionContext) string {
	var b strings.Builder
	b.WriteString(promptPreamble)

	writeSceneSection(&b, analysis)

	if profile != nil {
		writeProfileSection(&b, *profile, analysis)
	}

	if guide, ok := styleGuidance[style]; ok {
		b.WriteString("\n\nSTYLE GUIDELINES:\n")
		b.WriteString(guide)
	} else {
		b.WriteString(genericStyleGuidance)
	}

	writeSessionSection(&b, sc)

	b.WriteString(closingInstructions)
	return b.String()
}

func writeSceneSection(b *strings.Builder, a AnalysisRecord) {
	b.WriteString("\nDETAILED SCENE OBSERVATION:\n")
	if desc := sceneDescription(a); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n")
	}

	var items []string
	for _, e := range a.Elements {
		details := strings.Join(e.Details, ", ")
		switch e.Type {
		case ElementObject:
			if details == "" {
				items = append(items, e.Label)
			} else {
				items = append(items, e.Label+": "+details)
			}
		case ElementAesthetic:
			items = append(items, describeElement(e))
		case ElementCultural:
			if details == "" {
				items = append(items, "Cultural element: "+e.Label)
			} else {
				items = append(items, "Cultural element: "+e.Label+" with "+details)
			}
		case ElementText:
			items = append(items, fmt.Sprintf("Visible text: %q", e.Label))
		}
	}
	if len(items) > 0 {
		b.WriteString("\nNotable visual elements:\n")
		for _, it := range items {
			b.WriteString("- ")
			b.WriteString(it)
			b.WriteString("\n")
		}
	}

	c := a.Context
	if c.Atmosphere != "" {
		fmt.Fprintf(b, "\nAtmosphere: %s\n", c.Atmosphere)
	}
	if len(c.UniqueDetails) > 0 {
		fmt.Fprintf(b, "Unique details: %s\n", strings.Join(c.UniqueDetails, ", "))
	}
	if len(c.NotableFeatures) > 0 {
		fmt.Fprintf(b, "Notable features: %s\n", strings.Join(c.NotableFeatures, ", "))
	}
}

// sceneDescription prefers the analyzer's description and otherwise derives
// one from the detected elements.
func sceneDescription(a AnalysisRecord) string {
	if d := strings.TrimSpace(a.Description); d != "" {
		return d
	}
	var parts []string
	for _, e := range a.Elements {
		switch e.Type {
		case ElementObject, ElementAesthetic, ElementCultural, ElementText, ElementScene:
			if strings.TrimSpace(e.Label) != "" {
				parts = append(parts, describeElement(e))
			}
		}
	}
	var out []string
	if len(parts) > 0 {
		out = append(out, "Scene contains: "+strings.Join(parts, "; ")+".")
	}
	c := a.Context
	if c.Setting != "" && c.Mood != "" {
		s := fmt.Sprintf("The %s has a %s atmosphere", c.Setting, c.Mood)
		if c.Formality != "" {
			s += fmt.Sprintf(" with %s styling", c.Formality)
		}
		out = append(out, s+".")
	}
	return strings.Join(out, " ")
}

func writeProfileSection(b *strings.Builder, p Profile, a AnalysisRecord) {
	b.WriteString("\n\nINSTAGRAM PROFILE:\n")
	fmt.Fprintf(b, "Username: @%s\n", strings.TrimPrefix(p.Username, "@"))
	if p.Bio != "" {
		fmt.Fprintf(b, "Bio: %s\n", p.Bio)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(b, "Interests: %s\n", strings.Join(p.Interests, ", "))
	}
	if pers := p.Personality; pers != nil {
		if len(pers.DominantTraits) > 0 {
			fmt.Fprintf(b, "Personality traits: %s\n", strings.Join(pers.DominantTraits, ", "))
		}
		if pers.CommunicationStyle != "" {
			fmt.Fprintf(b, "Communication style: %s\n", pers.CommunicationStyle)
		}
		if pers.ActivityLevel != "" {
			fmt.Fprintf(b, "Activity level: %s\n", pers.ActivityLevel)
		}
	}

	matches := FindMatchingElements(p, a)
	if len(matches) > 0 {
		b.WriteString("\nConnections found between profile and photo:\n")
		for i, m := range matches {
			if i == maxPromptConnections {
				break
			}
			fmt.Fprintf(b, "- %s relates to %s\n", m.ProfileElement, m.AnalysisElement)
		}
	}

	if themes := postThemes(p.Posts); len(themes) > 0 {
		fmt.Fprintf(b, "\nRecent post themes: %s\n", strings.Join(themes, ", "))
	}
}

func writeSessionSection(b *strings.Builder, sc SessionContext) {
	prefs := sc.Preferences
	if prefs.Tone == "" && len(prefs.SuccessfulOpeners) == 0 && len(prefs.AvoidedTopics) == 0 && len(sc.RecentOpeners) == 0 {
		return
	}

	b.WriteString("\n\nUSER PREFERENCES:\n")
	if len(prefs.SuccessfulOpeners) > 0 {
		if patterns := successPatterns(prefs.SuccessfulOpeners); len(patterns) > 0 {
			b.WriteString("Previously successful opener styles:\n")
			for _, p := range patterns {
				fmt.Fprintf(b, "- %s\n", p)
			}
		}
	}
	if prefs.Tone != "" {
		fmt.Fprintf(b, "Preferred tone: %s\n", prefs.Tone)
	}
	if len(prefs.AvoidedTopics) > 0 {
		fmt.Fprintf(b, "Topics to avoid: %s\n", strings.Join(prefs.AvoidedTopics, ", "))
	}
	if themes := openerThemes(sc.RecentOpeners); len(themes) > 0 {
		fmt.Fprintf(b, "Recent themes used (vary from these): %s\n", strings.Join(themes, ", "))
	}
}

func postThemes(posts []ProfilePost) []string {
	if len(posts) > maxThemePosts {
		posts = posts[:maxThemePosts]
	}
	found := make(map[string]bool)
	for _, p := range posts {
		caption := strings.ToLower(p.Caption)
		if caption == "" {
			continue
		}
		for _, tk := range postThemeKeywords {
			if strings.Contains(caption, tk.keyword) {
				found[tk.theme] = true
			}
		}
	}
	var themes []string
	for _, tk := range postThemeKeywords {
		if found[tk.theme] {
			themes = append(themes, tk.theme)
			found[tk.theme] = false
		}
		if len(themes) == maxPostThemes {
			break
		}
	}
	return themes
}

func openerThemes(openers []Opener) []string {
	var tags []string
	for _, o := range openers {
		tags = append(tags, o.Tags...)
	}
	tags = dedupeStrings(tags)
	if len(tags) > maxRecentThemes {
		tags = tags[:maxRecentThemes]
	}
	return tags
}

// successPatterns digests what highly rated openers had in common.
func successPatterns(texts []string) []string {
	n := len(texts)
	if n == 0 {
		return nil
	}
	var patterns []string

	total, questions, withEmoji := 0, 0, 0
	for _, t := range texts {
		total += uniseg.GraphemeClusterCount(t)
		if strings.Contains(t, "?") {
			questions++
		}
		if ContainsEmoji(t) {
			withEmoji++
		}
	}
	switch avg := total / n; {
	case avg < 50:
		patterns = append(patterns, "Short and punchy (under 50 characters)")
	case avg > 100:
		patterns = append(patterns, "Detailed and conversational")
	}
	if questions > n/2 {
		patterns = append(patterns, "Questions that encourage responses")
	}
	if withEmoji > n/2 {
		patterns = append(patterns, "Strategic emoji usage")
	}
	return patterns
}
