package story

import (
	"strconv"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/utils"

	"github.com/valyala/bytebufferpool"
)

// BuildStoryPrompt renders the single-story prompt for normalized params
func BuildStoryPrompt(p models.StoryParams) string {
	theme := p.Theme
	if theme == "" {
		theme = DefaultTheme
	}

	return utils.BuildString(func(buf *bytebufferpool.ByteBuffer) {
		buf.WriteString("You are a bedtime story writer. Write in ")
		buf.WriteString(p.Lang.Name())
		buf.WriteString(".\nAges: ")
		buf.WriteString(string(p.Age))
		buf.WriteString(" (guidance: ")
		buf.WriteString(AgeGuidance(p.Age))
		buf.WriteString("). Target length: ")
		buf.WriteString(TargetLength(p.Minutes))
		buf.WriteString(".\nTopic: ")
		buf.WriteString(p.Topic)
		buf.WriteString(". Theme: ")
		buf.WriteString(theme)
		buf.WriteString(".\n")
		buf.WriteString("Tone: soothing, gentle, sleepy-time pace. Avoid violence, scary imagery, or complex theology.\n\n")
		buf.WriteString(`Return JSON ONLY (no markdown) with:
{
  "title": "string",
  "summary": "string (1-2 sentences, optional)",
  "story": "string",
  "prayer": "string",
  "scripture": { "reference": "Book chapter:verse", "verseText": "public-domain short wording (prefer KJV)" },
  "questions": ["string","string","string"]
}`)
	})
}

// sceneParams is the normalized input of a scene story; it also keys the memo
type sceneParams struct {
	PassageRef     string           `json:"passageRef"`
	Age            models.AgeBucket `json:"age"`
	Language       models.Language  `json:"language"`
	Theme          *models.ThemeTag `json:"theme"`
	ChildName      string           `json:"childName"`
	TargetDuration int              `json:"targetDuration"`
}

// BuildScenePrompt renders the prompt for a multi-scene illustrated story
func BuildScenePrompt(p sceneParams) string {
	guidance := GuidanceFor(p.Age)

	return utils.BuildString(func(buf *bytebufferpool.ByteBuffer) {
		buf.WriteString("You retell Bible passages for children at bedtime. Write in ")
		buf.WriteString(p.Language.Name())
		buf.WriteString(".\nPassage: ")
		buf.WriteString(p.PassageRef)
		buf.WriteString(". Ages: ")
		buf.WriteString(string(p.Age))
		buf.WriteString(" (vocabulary: ")
		buf.WriteString(guidance.VocabLevel)
		buf.WriteString(", at most ")
		buf.WriteString(strconv.Itoa(guidance.SentenceLimit))
		buf.WriteString(" sentences per scene).\n")
		if p.Theme != nil {
			buf.WriteString("Theme: ")
			buf.WriteString(string(*p.Theme))
			buf.WriteString(". Only draw the theme from what the passage truly teaches.\n")
		}
		buf.WriteString("Write exactly ")
		buf.WriteString(strconv.Itoa(guidance.SceneCount))
		buf.WriteString(" scenes for about ")
		buf.WriteString(strconv.Itoa(PreviewSeconds(p.TargetDuration)))
		buf.WriteString(" seconds of narration in total. Stay faithful to Scripture; simplify without altering meaning.\n")
		if p.ChildName != "" {
			buf.WriteString("You may greet ")
			buf.WriteString(p.ChildName)
			buf.WriteString(" by name in one closing line after the story, never inside the biblical narrative.\n")
		}
		buf.WriteString(`
Return JSON ONLY (no markdown) with:
{
  "title": "string",
  "summary": "string (1-2 sentences)",
  "scenes": [{ "title": "string", "narration": "string", "imagePrompt": "gentle picture-book illustration description" }]
}`)
	})
}
