package opener

import (
	"sort"
	"strings"
)

const textKeyMaxRunes = 20

// ElementKey is the canonical string used to compare elements across analyses,
// e.g. "object:surfboard". Text content is cut to its first 20 characters and
// people are keyed by their age and gender attributes.
func ElementKey(e DetectedElement) string {
	label := strings.ToLower(strings.TrimSpace(e.Label))
	switch e.Type {
	case ElementPerson:
		age := e.Attributes["age"]
		if age == "" {
			age = "0"
		}
		gender := strings.ToLower(e.Attributes["gender"])
		if gender == "" {
			gender = "unknown"
		}
		return "person:" + age + ":" + gender
	case ElementText:
		if r := []rune(label); len(r) > textKeyMaxRunes {
			label = string(r[:textKeyMaxRunes])
		}
	}
	return string(e.Type) + ":" + label
}

// ElementKeys returns the set of element keys for an analysis.
func ElementKeys(a AnalysisRecord) map[string]struct{} {
	keys := make(map[string]struct{}, len(a.Elements))
	for _, e := range a.Elements {
		keys[ElementKey(e)] = struct{}{}
	}
	return keys
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// describeElement renders an element the way it appears in prompts and matching.
func describeElement(e DetectedElement) string {
	details := strings.Join(e.Details, ", ")
	switch e.Type {
	case ElementPerson:
		if e.Label == "" {
			return "person"
		}
		return e.Label
	case ElementScene:
		return e.Label + " setting"
	case ElementText:
		return "text reading '" + e.Label + "'"
	case ElementAesthetic:
		if details == "" {
			return e.Label
		}
		return e.Label + ": " + details
	case ElementCultural:
		if details == "" {
			return e.Label
		}
		return e.Label + " featuring " + details
	case ElementObject, ElementClothing:
		if details == "" {
			return e.Label
		}
		return e.Label + " with " + details
	default:
		return e.Label
	}
}

// topKeys returns up to n keys ordered by count descending, then key ascending.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupeStyles(in []OpenerStyle) []OpenerStyle {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[OpenerStyle]struct{}, len(in))
	out := make([]OpenerStyle, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneAnalysis(a AnalysisRecord) AnalysisRecord {
	out := a
	if a.Elements != nil {
		out.Elements = make([]DetectedElement, len(a.Elements))
		for i, e := range a.Elements {
			ce := e
			ce.Details = cloneStrings(e.Details)
			if e.Region != nil {
				r := *e.Region
				ce.Region = &r
			}
			if e.Attributes != nil {
				ce.Attributes = make(map[string]string, len(e.Attributes))
				for k, v := range e.Attributes {
					ce.Attributes[k] = v
				}
			}
			out.Elements[i] = ce
		}
	}
	out.Context.UniqueDetails = cloneStrings(a.Context.UniqueDetails)
	out.Context.NotableFeatures = cloneStrings(a.Context.NotableFeatures)
	return out
}

func cloneOpener(o Opener) Opener {
	out := o
	out.Tags = cloneStrings(o.Tags)
	return out
}

func cloneResult(r OpenerResult) OpenerResult {
	out := r
	if r.Openers != nil {
		out.Openers = make([]Opener, len(r.Openers))
		for i, o := range r.Openers {
			out.Openers[i] = cloneOpener(o)
		}
	}
	return out
}

func cloneRecord(r SessionRecord) SessionRecord {
	out := SessionRecord{
		Analysis: cloneAnalysis(r.Analysis),
		Result:   cloneResult(r.Result),
		StoredAt: r.StoredAt,
	}
	if r.Ratings != nil {
		out.Ratings = make(map[string]int, len(r.Ratings))
		for k, v := range r.Ratings {
			out.Ratings[k] = v
		}
	}
	return out
}

func clonePreferences(p UserPreferences) UserPreferences {
	out := p
	if p.PreferredStyles != nil {
		out.PreferredStyles = append([]OpenerStyle(nil), p.PreferredStyles...)
	}
	out.AvoidedTopics = cloneStrings(p.AvoidedTopics)
	out.SuccessfulOpeners = cloneStrings(p.SuccessfulOpeners)
	return out
}
