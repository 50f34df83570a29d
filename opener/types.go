package opener

import (
	"fmt"
	"strings"
	"time"
)

// ElementType tags what kind of thing the analyzer detected.
type ElementType string

const (
	ElementPerson    ElementType = "person"
	ElementObject    ElementType = "object"
	ElementText      ElementType = "text"
	ElementScene     ElementType = "scene"
	ElementActivity  ElementType = "activity"
	ElementClothing  ElementType = "clothing"
	ElementEmotion   ElementType = "emotion"
	ElementAesthetic ElementType = "aesthetic"
	ElementCultural  ElementType = "cultural"
)

func ElementTypes() []ElementType {
	return []ElementType{
		ElementPerson, ElementObject, ElementText, ElementScene, ElementActivity,
		ElementClothing, ElementEmotion, ElementAesthetic, ElementCultural,
	}
}

func (t ElementType) Valid() bool {
	for _, v := range ElementTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// Region is a normalized bounding box (0..1 on both axes).
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectedElement is one thing the analyzer found in a photo.
// For people, Attributes may carry "age" and "gender".
type DetectedElement struct {
	Type       ElementType       `json:"type"`
	Label      string            `json:"label"`
	Details    []string          `json:"details,omitempty"`
	Confidence float64           `json:"confidence"`
	Region     *Region           `json:"region,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SceneContext is the analyzer's derived summary of the whole scene.
type SceneContext struct {
	Setting         string   `json:"setting,omitempty"`
	TimeOfDay       string   `json:"time_of_day,omitempty"`
	Formality       string   `json:"formality,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	Atmosphere      string   `json:"atmosphere,omitempty"`
	PeopleCount     int      `json:"people_count"`
	UniqueDetails   []string `json:"unique_details,omitempty"`
	NotableFeatures []string `json:"notable_features,omitempty"`
}

// AnalysisRecord is the structured description of one photo. It is created once
// by the analyzer and treated as read-only afterwards.
type AnalysisRecord struct {
	ImageID     string            `json:"image_id"`
	Elements    []DetectedElement `json:"elements"`
	Context     SceneContext      `json:"context"`
	Description string            `json:"description,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

type OpenerStyle string

const (
	StyleWitty       OpenerStyle = "witty"
	StylePlayful     OpenerStyle = "playful"
	StyleCompliment  OpenerStyle = "compliment"
	StyleQuestion    OpenerStyle = "question"
	StyleObservation OpenerStyle = "observation"
	StyleChallenge   OpenerStyle = "challenge"
	StyleCallback    OpenerStyle = "callback"
	StyleContextual  OpenerStyle = "contextual"
)

// Styles lists every opener style in declaration order.
func Styles() []OpenerStyle {
	return []OpenerStyle{
		StyleWitty, StylePlayful, StyleCompliment, StyleQuestion,
		StyleObservation, StyleChallenge, StyleCallback, StyleContextual,
	}
}

// ParseStyle accepts a style name in any case. The empty string parses to the
// zero style, which means "no style requested".
func ParseStyle(s string) (OpenerStyle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, st := range Styles() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("ParseStyle: unknown style %q", s)
}

type TonePreference string

const (
	ToneProfessional TonePreference = "professional"
	ToneCasual       TonePreference = "casual"
	ToneFlirty       TonePreference = "flirty"
	ToneFunny        TonePreference = "funny"
	ToneBalanced     TonePreference = "balanced"
)

func ParseTone(s string) (TonePreference, error) {
	switch t := TonePreference(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneProfessional, ToneCasual, ToneFlirty, ToneFunny, ToneBalanced:
		return t, nil
	default:
		return "", fmt.Errorf("ParseTone: unknown tone %q", s)
	}
}

// Opener is one generated conversation starter. Ratings are not stored on the
// opener itself; SessionMemory tracks them per id.
type Opener struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Style       OpenerStyle `json:"style"`
	Confidence  float64     `json:"confidence"`
	Explanation string      `json:"explanation,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// OpenerResult is one generation batch for a single analysis.
// Partial is set when fewer than Requested openers survived filtering.
type OpenerResult struct {
	AnalysisID  string    `json:"analysis_id"`
	Openers     []Opener  `json:"openers"`
	Requested   int       `json:"requested"`
	Partial     bool      `json:"partial,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SessionRecord pairs an analysis with the openers generated for it.
// Ratings maps opener id to the latest 1-5 rating.
type SessionRecord struct {
	Analysis AnalysisRecord `json:"analysis"`
	Result   OpenerResult   `json:"result"`
	Ratings  map[string]int `json:"ratings,omitempty"`
	StoredAt time.Time      `json:"stored_at"`
}

type UserPreferences struct {
	PreferredStyles   []OpenerStyle  `json:"preferred_styles,omitempty"`
	AvoidedTopics     []string       `json:"avoided_topics,omitempty"`
	SuccessfulOpeners []string       `json:"successful_openers,omitempty"`
	Tone              TonePreference `json:"tone,omitempty"`
}

// Patterns summarizes what the session has seen so far.
type Patterns struct {
	CommonElements   []string            `json:"common_elements,omitempty"`
	SuccessfulStyles map[OpenerStyle]int `json:"successful_styles,omitempty"`
}

// SessionContext is the slice of session state handed to the prompt builder.
type SessionContext struct {
	RecentAnalyses []AnalysisRecord `json:"recent_analyses,omitempty"`
	RecentOpeners  []Opener         `json:"recent_openers,omitempty"`
	Preferences    UserPreferences  `json:"preferences"`
	Patterns       Patterns         `json:"patterns"`
}

type SessionStats struct {
	TotalAnalyses  int           `json:"total_analyses"`
	TotalOpeners   int           `json:"total_openers"`
	AverageRating  float64       `json:"average_rating"`
	PopularStyles  []OpenerStyle `json:"popular_styles"`
	CommonElements []string      `json:"common_elements"`
}

// SessionSnapshot is the serializable form of a SessionMemory.
type SessionSnapshot struct {
	Records     []SessionRecord `json:"records"`
	Preferences UserPreferences `json:"preferences"`
	SavedAt     time.Time       `json:"saved_at"`
}

// Profile is a public social profile supplied by an external source.
type Profile struct {
	Username    string        `json:"username"`
	Bio         string        `json:"bio,omitempty"`
	Interests   []string      `json:"interests,omitempty"`
	Personality *Personality  `json:"personality,omitempty"`
	Posts       []ProfilePost `json:"posts,omitempty"`
}

type Personality struct {
	DominantTraits     []string `json:"dominant_traits,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	SocialStyle        string   `json:"social_style,omitempty"`
	ActivityLevel      string   `json:"activity_level,omitempty"`
}

type ProfilePost struct {
	ImageURL  string    `json:"image_url,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Likes     int       `json:"likes"`
	Timestamp time.Time `json:"timestamp"`
}
