package story

import (
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
)

// DefaultPassage is told when a scene request names none
const DefaultPassage = "1 Samuel 17"

// NormalizeStoryRequest applies the defaults and enumerations; it never fails
func NormalizeStoryRequest(req models.StoryRequest) models.StoryParams {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = DefaultTopic
	}

	age := strings.TrimSpace(req.Age)
	if age == "" {
		age = string(models.AgeEarly)
	}

	return models.StoryParams{
		Topic:     topic,
		Age:       models.NormalizeAgeBucket(age),
		Minutes:   models.NormalizeMinutes(req.Minutes),
		Theme:     strings.TrimSpace(req.Theme),
		Lang:      models.NormalizeLanguage(req.Lang),
		ChildName: strings.TrimSpace(req.ChildName),
	}
}

func normalizeSceneRequest(req models.SceneRequest) sceneParams {
	age := strings.TrimSpace(req.Age)
	if age == "" {
		age = string(models.AgeEarly)
	}

	var theme *models.ThemeTag
	if tag, ok := models.ParseThemeTag(req.Theme); ok {
		theme = &tag
	}

	passage := strings.TrimSpace(req.PassageRef)
	if passage == "" {
		passage = DefaultPassage
	}

	return sceneParams{
		PassageRef:     passage,
		Age:            models.NormalizeAgeBucket(age),
		Language:       models.NormalizeLanguage(req.Language),
		Theme:          theme,
		ChildName:      strings.TrimSpace(req.ChildName),
		TargetDuration: models.NormalizeTargetDuration(req.TargetDuration),
	}
}
