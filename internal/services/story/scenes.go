package story

import (
	"fmt"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"github.com/google/uuid"
)

const (
	templateTitle   = "Bible Bedtime Story"
	templateSummary = "A faithful retelling for children, simplified without altering meaning."
)

// Disclaimers accompany every scene story
var Disclaimers = []string{
	"Told carefully from Scripture for children; simplified without altering meaning.",
	"If a theme is selected, only passages that truly teach that theme are used.",
	"Any child name is for engagement after the story, never inserted into the biblical narrative.",
}

type templateScene struct {
	title, narration, imagePrompt string
	seconds                       int
}

// templateScenes are used when the model output cannot be parsed. Their
// durations add up to the 15 minute preview budget.
var templateScenes = []templateScene{
	{"Scene 1", "Intro to the passage in age-appropriate language.", "gentle picture-book style, faithful biblical illustration", 25},
	{"Scene 2", "Main conflict or lesson, kept faithful to Scripture.", "child-friendly depiction, no sensationalism", 35},
	{"Scene 3", "Resolution emphasizing God’s character and truth.", "hopeful closing illustration", 30},
}

// PlaceholderImage is the image reference used when a scene has no rendered art
func PlaceholderImage(index int) string {
	return fmt.Sprintf("/images/placeholder/scene-%d.jpg", index+1)
}

// TemplateScenes returns the fixed three-scene outline scaled to targetDuration
func TemplateScenes(targetDuration int) []models.StoryScene {
	scenes := make([]models.StoryScene, len(templateScenes))
	for i, t := range templateScenes {
		scenes[i] = models.StoryScene{
			ID:                uuid.NewString(),
			Title:             t.title,
			Narration:         t.narration,
			ImagePrompt:       t.imagePrompt,
			ApproxDurationSec: t.seconds * targetDuration / 15,
		}
	}
	return scenes
}

// scenesFromDraft assigns ids and splits the preview budget evenly, giving any remainder to the last scene
func scenesFromDraft(draft *sceneDraft, targetDuration int) []models.StoryScene {
	total := PreviewSeconds(targetDuration)
	each := total / len(draft.Scenes)

	scenes := make([]models.StoryScene, len(draft.Scenes))
	for i, s := range draft.Scenes {
		title := s.Title
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}
		scenes[i] = models.StoryScene{
			ID:                uuid.NewString(),
			Title:             title,
			Narration:         s.Narration,
			ImagePrompt:       s.ImagePrompt,
			ApproxDurationSec: each,
		}
	}
	scenes[len(scenes)-1].ApproxDurationSec += total - each*len(scenes)
	return scenes
}
