package story

import "github.com/Egham-7/bedtime-stories/internal/models"

// DefaultTopic is used when a story request names no topic
const DefaultTopic = "God's care at bedtime"

// DefaultTheme is what the prompt asks for when no theme is given
const DefaultTheme = "general comfort and God's care"

// ReadingGuidance shapes scene narration for an age bucket
type ReadingGuidance struct {
	SentenceLimit int
	VocabLevel    string
	SceneCount    int
}

// GuidanceFor returns the reading guidance for an age bucket
func GuidanceFor(age models.AgeBucket) ReadingGuidance {
	switch age {
	case models.AgeToddler:
		return ReadingGuidance{SentenceLimit: 8, VocabLevel: "very-simple", SceneCount: 3}
	case models.AgeEarly:
		return ReadingGuidance{SentenceLimit: 14, VocabLevel: "simple", SceneCount: 3}
	default:
		return ReadingGuidance{SentenceLimit: 22, VocabLevel: "standard", SceneCount: 4}
	}
}

// AgeGuidance describes the writing level for the story prompt
func AgeGuidance(age models.AgeBucket) string {
	switch age {
	case models.AgeToddler:
		return "very simple, toddler-friendly words; short sentences; gentle repetition"
	case models.AgeEarly:
		return "early-reader friendly; simple sentences; warm and encouraging"
	default:
		return "upper elementary; clear, calm tone; simple but slightly richer vocabulary"
	}
}

// TargetLength maps narration minutes to a word budget
func TargetLength(minutes int) string {
	switch minutes {
	case 5:
		return "≈250–350 words"
	case 10:
		return "≈450–650 words"
	case 15:
		return "≈700–900 words"
	case 20:
		return "≈950–1200 words"
	case 30:
		return "≈1300–1600 words"
	case 45:
		return "≈1900–2300 words"
	case 60:
		return "≈2400–2800 words"
	default:
		return "≈700–900 words"
	}
}

// PreviewSeconds is the narration budget for scene stories: a tenth of the target duration
func PreviewSeconds(targetDuration int) int {
	return targetDuration * 60 / 10
}
