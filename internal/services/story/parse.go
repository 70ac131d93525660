package story

import (
	"encoding/json"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
)

// Localized fallback content
const (
	fallbackTitle = "Bedtime Story"

	apologyEN = "Sorry, I couldn't generate a story right now."
	apologyES = "Lo siento, no pude generar una historia en este momento."
	prayerEN  = "Jesus, thank You for watching over me tonight. Amen."
	prayerES  = "Jesús, gracias por cuidarme esta noche. Amén."

	fallbackReference = "Psalm 4:8"
	psalmKJV          = "I will both lay me down in peace, and sleep: for thou, LORD, only makest me dwell in safety."
	psalmRVR          = "En paz me acostaré, y asimismo dormiré; porque solo tú, Jehová, me haces vivir confiado."
)

var (
	questionsEN = []string{
		"What part made you feel peaceful?",
		"Where did you see God’s love in the story?",
		"Why can we rest without fear?",
	}
	questionsES = []string{
		"¿Qué parte te hizo sentir paz?",
		"¿Dónde viste el amor de Dios en la historia?",
		"¿Por qué podemos descansar sin miedo?",
	}
)

// stripCodeFence removes a ```json ... ``` wrapper some models add despite instructions
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ParseStoryPayload accepts the model output when every required field is
// present and otherwise builds a complete fallback payload around the raw text.
// The returned bool reports whether the output parsed.
func ParseStoryPayload(raw string, lang models.Language) (models.StoryPayload, bool) {
	var parsed models.StoryPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err == nil && parsed.IsComplete() {
		parsed.Text = parsed.Story
		if parsed.Questions == nil {
			parsed.Questions = []string{}
		}
		return parsed, true
	}
	return FallbackPayload(raw, lang), false
}

// FallbackPayload wraps unstructured text into a complete story
func FallbackPayload(raw string, lang models.Language) models.StoryPayload {
	title := fallbackTitle
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			title = trimmed
			break
		}
	}

	spanish := lang == models.LanguageSpanish
	story := raw
	if story == "" {
		story = pick(spanish, apologyES, apologyEN)
	}

	questions := questionsEN
	if spanish {
		questions = questionsES
	}

	return models.StoryPayload{
		Title:  title,
		Story:  story,
		Prayer: pick(spanish, prayerES, prayerEN),
		Scripture: models.Scripture{
			Reference: fallbackReference,
			VerseText: pick(spanish, psalmRVR, psalmKJV),
		},
		Questions: append([]string(nil), questions...),
		Text:      story,
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// sceneDraft is the model's scene output before ids and durations are assigned
type sceneDraft struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Scenes  []struct {
		Title       string `json:"title"`
		Narration   string `json:"narration"`
		ImagePrompt string `json:"imagePrompt"`
	} `json:"scenes"`
}

func (d *sceneDraft) valid() bool {
	if strings.TrimSpace(d.Title) == "" || len(d.Scenes) == 0 {
		return false
	}
	for _, s := range d.Scenes {
		if strings.TrimSpace(s.Narration) == "" {
			return false
		}
	}
	return true
}

// parseSceneDraft returns nil when the output is unusable
func parseSceneDraft(raw string) *sceneDraft {
	var draft sceneDraft
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &draft); err != nil || !draft.valid() {
		return nil
	}
	return &draft
}
