package opener

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFindMatchingElements(t *testing.T) {
	t.Parallel()

	profile := Profile{
		Username:  "trailmix",
		Interests: []string{"Fitness", "hiking", "  "},
		Personality: &Personality{
			SocialStyle:   "outgoing",
			ActivityLevel: "High",
		},
	}
	analysis := AnalysisRecord{
		Elements: []DetectedElement{
			{Type: ElementScene, Label: "Gym"},
			{Type: ElementActivity, Label: "hiking"},
			{Type: ElementObject, Label: ""},
			{Type: ElementObject, Label: "teacup"},
		},
		Context: SceneContext{Setting: "Outdoor trail", PeopleCount: 3},
	}

	got := FindMatchingElements(profile, analysis)
	want := []Match{
		{ProfileElement: "hiking", AnalysisElement: "hiking", Similarity: 0.9, Kind: MatchInterest},
		{ProfileElement: "Active lifestyle", AnalysisElement: "Outdoor trail", Similarity: 0.8, Kind: MatchPersonality},
		{ProfileElement: "Social personality", AnalysisElement: "Group setting", Similarity: 0.75, Kind: MatchPersonality},
		{ProfileElement: "Fitness", AnalysisElement: "Gym", Similarity: 0.7, Kind: MatchInterest},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestFindMatchingElements_NoPersonalityNoMatches(t *testing.T) {
	t.Parallel()

	profile := Profile{Interests: []string{"opera"}}
	analysis := AnalysisRecord{
		Elements: []DetectedElement{{Type: ElementObject, Label: "skateboard"}},
		Context:  SceneContext{Setting: "gym", PeopleCount: 10},
	}
	assert.Empty(t, FindMatchingElements(profile, analysis))
}

func TestFindMatchingElements_PersonMatchesByKind(t *testing.T) {
	t.Parallel()

	profile := Profile{Interests: []string{"person watching"}}
	analysis := AnalysisRecord{Elements: []DetectedElement{{Type: ElementPerson, Label: "woman in red"}}}

	got := FindMatchingElements(profile, analysis)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "person", got[0].AnalysisElement)
	}
}
