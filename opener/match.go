package opener

import (
	"sort"
	"strings"
)

type MatchKind string

const (
	MatchInterest    MatchKind = "interest"
	MatchPersonality MatchKind = "personality"
)

// Match is a weak correspondence between a profile trait and something in the scene.
type Match struct {
	ProfileElement  string    `json:"profile_element"`
	AnalysisElement string    `json:"analysis_element"`
	Similarity      float64   `json:"similarity"`
	Kind            MatchKind `json:"kind"`
}

const (
	matchThreshold       = 0.6
	similarityDirect     = 0.9
	similarityRelated    = 0.7
	similarityActive     = 0.8
	similaritySocial     = 0.75
	socialGroupMinPeople = 3
)

type relatedTerms struct {
	interest string
	terms    []string
}

var relatedTermsTable = []relatedTerms{
	{"travel", []string{"beach", "mountain", "city", "adventure", "explore"}},
	{"fitness", []string{"gym", "running", "yoga", "sport", "active"}},
	{"food", []string{"restaurant", "cooking", "dining", "meal", "chef"}},
	{"music", []string{"concert", "instrument", "singing", "festival"}},
	{"nature", []string{"outdoor", "hiking", "forest", "park", "wildlife"}},
}

var activeSettings = []string{"gym", "outdoor", "sport"}

// FindMatchingElements pairs profile interests and personality with scene
// elements. Results are sorted by similarity, highest first; ties keep
// discovery order.
func FindMatchingElements(profile Profile, analysis AnalysisRecord) []Match {
	var matches []Match

	for _, interest := range profile.Interests {
		interest = strings.TrimSpace(interest)
		if interest == "" {
			continue
		}
		for _, e := range analysis.Elements {
			label := matchLabel(e)
			if label == "" {
				continue
			}
			if sim := elementSimilarity(interest, label); sim > matchThreshold {
				matches = append(matches, Match{
					ProfileElement:  interest,
					AnalysisElement: label,
					Similarity:      sim,
					Kind:            MatchInterest,
				})
			}
		}
	}

	if p := profile.Personality; p != nil {
		setting := strings.ToLower(analysis.Context.Setting)
		if strings.EqualFold(p.ActivityLevel, "high") && containsAny(setting, activeSettings) {
			matches = append(matches, Match{
				ProfileElement:  "Active lifestyle",
				AnalysisElement: analysis.Context.Setting,
				Similarity:      similarityActive,
				Kind:            MatchPersonality,
			})
		}
		if strings.EqualFold(p.SocialStyle, "outgoing") && analysis.Context.PeopleCount >= socialGroupMinPeople {
			matches = append(matches, Match{
				ProfileElement:  "Social personality",
				AnalysisElement: "Group setting",
				Similarity:      similaritySocial,
				Kind:            MatchPersonality,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

func matchLabel(e DetectedElement) string {
	if e.Type == ElementPerson {
		return "person"
	}
	return strings.TrimSpace(e.Label)
}

func elementSimilarity(interest, label string) float64 {
	in := strings.ToLower(interest)
	el := strings.ToLower(label)
	if strings.Contains(el, in) || strings.Contains(in, el) {
		return similarityDirect
	}
	for _, rt := range relatedTermsTable {
		if !strings.Contains(in, rt.interest) {
			continue
		}
		if containsAny(el, rt.terms) {
			return similarityRelated
		}
	}
	return 0
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
