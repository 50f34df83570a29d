package opener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpeners_StripsEnumerationAndHeadings(t *testing.T) {
	t.Parallel()

	raw := `Here are five openers:

1. That surfboard has clearly seen some serious waves
2) "Longboard or fish, which one taught you more?"
- I bet you can't name the break this was shot at
* I noticed the wax pattern, are you a regular here
   5.   This beach picked a great day for you`

	got := ParseOpeners(raw)
	require.Len(t, got, 5)

	assert.Equal(t, "That surfboard has clearly seen some serious waves", got[0].Text)
	assert.Equal(t, "Longboard or fish, which one taught you more?", got[1].Text)
	assert.Equal(t, "I bet you can't name the break this was shot at", got[2].Text)
	assert.Equal(t, "This beach picked a great day for you", got[4].Text)

	ids := map[string]bool{}
	for _, o := range got {
		assert.NotEmpty(t, o.ID)
		assert.False(t, ids[o.ID], "duplicate id %s", o.ID)
		ids[o.ID] = true
		assert.InDelta(t, DefaultConfidence, o.Confidence, 1e-9)
		assert.NotEmpty(t, o.Explanation)
		assert.NotEmpty(t, o.Tags)
	}
}

func TestParseOpeners_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ParseOpeners(""))
	assert.Empty(t, ParseOpeners("\n  \n\t\n"))
}

func TestDetectStyle(t *testing.T) {
	t.Parallel()

	cases := map[string]OpenerStyle{
		"Longboard or fish?":                          StyleQuestion,
		"I bet you paddle out before sunrise":         StyleChallenge,
		"I challenge you to a sandcastle contest":     StyleChallenge,
		"I noticed the board is hand shaped":          StyleObservation,
		"That is a beautiful old camera":              StyleCompliment,
		"This view is almost a joke it is so perfect": StylePlayful,
		"The gulls clearly approve of your lunch 😏":   StylePlayful,
		"That board has a better tan than me":         StyleWitty,
		"The alphabet soup of stickers says a lot":    StyleWitty,
	}
	for text, want := range cases {
		assert.Equalf(t, want, DetectStyle(text), "text=%q", text)
	}
}

func TestExtractTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"surfing", "short"}, ExtractTags("Surfing here before work?"))
	assert.Equal(t, []string{"emoji", "short"}, ExtractTags("Sunset duty 🌅"))

	medium := "This is a sentence that lands somewhere between fifty and one hundred chars."
	assert.Equal(t, []string{"medium"}, ExtractTags(medium))

	long := "This one keeps going well past one hundred characters because it describes the mural, the bikes and the dog."
	assert.Equal(t, []string{"long"}, ExtractTags(long))
}
