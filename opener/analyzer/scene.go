package analyzer

import (
	"strings"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

const (
	defaultSetting   = "casual"
	defaultTimeOfDay = "day"
	defaultFormality = "casual"
	defaultMood      = "friendly"
)

var eveningObjects = []string{"wine", "cocktail"}

// FillContext completes ctx from the detected elements. Fields the model
// already set are kept, except PeopleCount which never drops below the
// number of person elements.
func FillContext(ctx opener.SceneContext, elements []opener.DetectedElement) opener.SceneContext {
	setting, timeOfDay, mood := "", "", ""
	people := 0
	for _, e := range elements {
		switch e.Type {
		case opener.ElementScene:
			setting = e.Label
		case opener.ElementPerson:
			people++
		case opener.ElementObject:
			label := strings.ToLower(e.Label)
			for _, w := range eveningObjects {
				if strings.Contains(label, w) {
					mood = "romantic"
					timeOfDay = "evening"
				}
			}
		}
	}

	ctx.Setting = firstNonEmpty(ctx.Setting, setting, defaultSetting)
	ctx.TimeOfDay = firstNonEmpty(ctx.TimeOfDay, timeOfDay, defaultTimeOfDay)
	ctx.Formality = firstNonEmpty(ctx.Formality, defaultFormality)
	ctx.Mood = firstNonEmpty(ctx.Mood, mood, defaultMood)
	ctx.Atmosphere = firstNonEmpty(ctx.Atmosphere, ctx.Mood)
	if ctx.PeopleCount < people {
		ctx.PeopleCount = people
	}
	return ctx
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
