package speech

import (
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
)

// Voice defaults per language
const (
	VoiceEnglish = "en-US-Neural2-C"
	VoiceSpanish = "es-US-Neural2-B"

	DefaultPitch = -2.0
)

// Params are the fully resolved synthesis settings
type Params struct {
	Text         string  `json:"text"`
	LanguageCode string  `json:"languageCode"`
	Voice        string  `json:"voice"`
	SpeakingRate float64 `json:"speakingRate"`
	Pitch        float64 `json:"pitch"`
}

// SpeakingRate slows narration down for longer stories
func SpeakingRate(minutes int) float64 {
	switch {
	case minutes >= 45:
		return 0.85
	case minutes >= 30:
		return 0.9
	default:
		return 0.95
	}
}

// ParamsFor resolves a request into synthesis settings
func ParamsFor(req models.SpeechRequest) Params {
	lang := models.NormalizeLanguage(req.Lang)

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = VoiceEnglish
		if lang == models.LanguageSpanish {
			voice = VoiceSpanish
		}
	}

	return Params{
		Text:         req.Text,
		LanguageCode: lang.LanguageCode(),
		Voice:        voice,
		SpeakingRate: SpeakingRate(req.Minutes),
		Pitch:        DefaultPitch,
	}
}
