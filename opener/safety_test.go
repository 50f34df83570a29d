package opener

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSafety_Categories(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()
	cases := []struct {
		name string
		text string
		want SafetyCategory
	}{
		{"offensive", "That shirt makes you look kind of stupid", CategoryOffensive},
		{"sexual", "You look really sexy in that light", CategorySexual},
		{"harassment", "I could follow you all the way home tonight", CategoryHarassment},
		{"personal", "Can I get your phone before you leave?", CategoryPersonalInfo},
		{"spam", "Please subscribe to my channel for more", CategorySpam},
		{"dm spam", "DM me if you want to talk about the art", CategorySpam},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := f.CheckSafety(tc.text)
			assert.False(t, got.IsAppropriate)
			assert.Equal(t, tc.want, got.Category)
			assert.InDelta(t, 0.85, got.Confidence, 1e-9)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestCheckSafety_FirstCategoryWins(t *testing.T) {
	t.Parallel()

	// Matches both offensive ("ugly") and sexual ("body"); offensive is checked first.
	got := NewSafetyFilter().CheckSafety("What an ugly body of water over there")
	assert.Equal(t, CategoryOffensive, got.Category)
}

func TestCheckSafety_PositiveContextOverrides(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()
	for _, text := range []string{
		"that hot car is sexy",
		"Is that hot chocolate as good as it smells?",
		"Your body language says you love this song",
		"Do you come here to meet new people or for the jazz?",
		"That sexy car outside has to be yours",
	} {
		got := f.CheckSafety(text)
		assert.Truef(t, got.IsAppropriate, "text=%q result=%+v", text, got)
		assert.InDelta(t, 0.9, got.Confidence, 1e-9)
		assert.Empty(t, got.Category)
	}
}

func TestCheckSafety_NonKeywordChecks(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()

	caps := f.CheckSafety("THIS COFFEE SHOP IS AMAZING RIGHT")
	assert.False(t, caps.IsAppropriate)
	assert.Equal(t, CategorySpam, caps.Category)
	assert.InDelta(t, 0.7, caps.Confidence, 1e-9)

	// Ten letters or fewer never trip the capitals rule.
	assert.True(t, f.CheckSafety("WOW OK fine!").IsAppropriate)

	emoji := f.CheckSafety("Great view 😀😀😀😀😀😀")
	assert.False(t, emoji.IsAppropriate)
	assert.InDelta(t, 0.6, emoji.Confidence, 1e-9)

	ratio := f.CheckSafety("ok 🌊🏄🌞🌴")
	assert.False(t, ratio.IsAppropriate)
	assert.InDelta(t, 0.6, ratio.Confidence, 1e-9)

	short := f.CheckSafety("hi there")
	assert.False(t, short.IsAppropriate)
	assert.InDelta(t, 0.65, short.Confidence, 1e-9)

	long := f.CheckSafety(strings.Repeat("a", 301))
	assert.False(t, long.IsAppropriate)
	assert.InDelta(t, 0.65, long.Confidence, 1e-9)

	for _, blank := range []string{"", "    \n\t"} {
		got := f.CheckSafety(blank)
		assert.False(t, got.IsAppropriate)
		assert.Equal(t, CategorySpam, got.Category)
	}
}

func TestCheckSafety_Clean(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()
	text := "That surfboard has clearly seen some serious waves 🌊"
	got := f.CheckSafety(text)
	require.True(t, got.IsAppropriate)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.InDelta(t, 0.95, f.SafetyScore(text), 1e-9)
	assert.InDelta(t, 0.15, f.SafetyScore("you are such a loser honestly"), 1e-9)
}

func TestCheckSafety_Deterministic(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()
	text := "I noticed the vintage neon sign, is it original?"
	first := f.CheckSafety(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, f.CheckSafety(text))
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()
	got := f.Sanitize("  check   https://example.com/x?y=1 or mail me@example.org\n or call 555-123-4567  ")
	assert.Equal(t, "check [link] or mail [email] or call [phone]", got)

	assert.Equal(t, "call [phone] or [phone]", f.Sanitize("call 555 123 4567 or 555.123.4567"))
}

func TestSanitize_IdentityOnCleanText(t *testing.T) {
	t.Parallel()

	f := NewSafetyFilter()
	for _, text := range []string{
		"That mural behind you looks hand painted, who did it?",
		"Nice board. Longboard or fish?",
		"  leading and trailing spaces  ",
	} {
		assert.Equal(t, strings.TrimSpace(text), f.Sanitize(text))
	}
}

func TestFilterOpeners_PreservesOrder(t *testing.T) {
	t.Parallel()

	in := []Opener{
		{ID: "1", Text: "That surfboard has seen some serious waves"},
		{ID: "2", Text: "you look like a total idiot with that"},
		{ID: "3", Text: "Is that a vintage camera on your bag?"},
		{ID: "4", Text: "short"},
	}
	got := NewSafetyFilter().FilterOpeners(in)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestContainsEmoji(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsEmoji("surf's up 🏄‍♀️"))
	assert.True(t, ContainsEmoji("rated 1️⃣"))
	assert.False(t, ContainsEmoji("plain text 123 #hashtag"))
}
