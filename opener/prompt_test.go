package opener

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beachAnalysis() AnalysisRecord {
	return AnalysisRecord{
		ImageID: "img-beach",
		Elements: []DetectedElement{
			{Type: ElementScene, Label: "beach", Confidence: 0.9},
			{Type: ElementObject, Label: "surfboard", Confidence: 0.8},
		},
	}
}

func TestBuildPrompt_MinimalInputs(t *testing.T) {
	t.Parallel()

	got := BuildPrompt(beachAnalysis(), nil, "", SessionContext{})

	assert.Contains(t, got, "beach")
	assert.Contains(t, got, "surfboard")
	assert.True(t, strings.HasSuffix(got, "Format each opener on a new line, numbered 1-5."), "tail=%q", got[len(got)-80:])
	assert.Contains(t, got, "Generate 5 unique conversation starters")

	assert.NotContains(t, got, "INSTAGRAM PROFILE")
	assert.NotContains(t, got, "STYLE GUIDELINES")
	assert.NotContains(t, got, "USER PREFERENCES")
	assert.Contains(t, got, "various styles")
}

func TestBuildPrompt_SectionOrder(t *testing.T) {
	t.Parallel()

	a := beachAnalysis()
	a.Description = "A surfer resting on the sand at golden hour."
	a.Elements = append(a.Elements,
		DetectedElement{Type: ElementAesthetic, Label: "lighting", Details: []string{"warm", "low sun"}},
		DetectedElement{Type: ElementCultural, Label: "tiki statue", Details: []string{"carved wood"}},
		DetectedElement{Type: ElementText, Label: "Surf Shack"},
	)
	a.Context = SceneContext{Setting: "outdoor beach", Atmosphere: "relaxed", UniqueDetails: []string{"wax comb on the towel"}, PeopleCount: 4}

	profile := &Profile{
		Username:  "@wave.rider",
		Bio:       "Salt water and film cameras",
		Interests: []string{"Surfboard shaping", "travel"},
		Personality: &Personality{
			DominantTraits:     []string{"adventurous"},
			CommunicationStyle: "casual",
			SocialStyle:        "Outgoing",
			ActivityLevel:      "High",
		},
		Posts: []ProfilePost{{Caption: "Travel day, then coffee by the beach"}},
	}
	sc := SessionContext{
		Preferences: UserPreferences{
			Tone:              ToneFunny,
			AvoidedTopics:     []string{"politics"},
			SuccessfulOpeners: []string{"Fish or longboard?", "Who shaped that?"},
		},
		RecentOpeners: []Opener{{Tags: []string{"surfing", "short"}}, {Tags: []string{"short"}}},
	}

	got := BuildPrompt(a, profile, StyleQuestion, sc)

	order := []string{
		"SPOKEN conversations",
		"DETAILED SCENE OBSERVATION:",
		"A surfer resting on the sand",
		"Notable visual elements:",
		"- surfboard",
		"- lighting: warm, low sun",
		"- Cultural element: tiki statue with carved wood",
		`- Visible text: "Surf Shack"`,
		"Atmosphere: relaxed",
		"Unique details: wax comb on the towel",
		"INSTAGRAM PROFILE:",
		"Username: @wave.rider",
		"Bio: Salt water and film cameras",
		"Personality traits: adventurous",
		"Connections found between profile and photo:",
		"Recent post themes: travel, coffee, beach",
		"STYLE GUIDELINES:",
		"open-ended questions",
		"USER PREFERENCES:",
		"Short and punchy",
		"Questions that encourage responses",
		"Preferred tone: funny",
		"Topics to avoid: politics",
		"Recent themes used (vary from these): surfing, short",
		"numbered 1-5.",
	}
	last := -1
	for _, want := range order {
		idx := strings.Index(got, want)
		require.GreaterOrEqualf(t, idx, 0, "missing %q", want)
		require.Greaterf(t, idx, last, "%q out of order", want)
		last = idx
	}
	assert.Contains(t, got, "- Surfboard shaping relates to surfboard")
	assert.NotContains(t, got, "various styles")
}

func TestBuildPrompt_EveryStyleHasGuidance(t *testing.T) {
	t.Parallel()

	for _, st := range Styles() {
		got := BuildPrompt(beachAnalysis(), nil, st, SessionContext{})
		assert.Containsf(t, got, "STYLE GUIDELINES:", "style=%s", st)
	}
}

func TestBuildPrompt_Pure(t *testing.T) {
	t.Parallel()

	a := beachAnalysis()
	sc := SessionContext{Preferences: UserPreferences{Tone: ToneBalanced}}
	first := BuildPrompt(a, nil, StyleWitty, sc)
	assert.Equal(t, first, BuildPrompt(a, nil, StyleWitty, sc))
	assert.Equal(t, beachAnalysis(), a)
}

func TestSuccessPatterns(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("detailed story about the mural ", 5)
	assert.Equal(t, []string{"Detailed and conversational"}, successPatterns([]string{long, long}))
	assert.Equal(t, []string{"Short and punchy (under 50 characters)", "Strategic emoji usage"},
		successPatterns([]string{"nice wave 🌊", "sunset crew 🌅", "good one"}))
	assert.Nil(t, successPatterns(nil))
}
