package models

import "strings"

// AgeBucket is one of the three supported reader age ranges
type AgeBucket string

const (
	AgeToddler    AgeBucket = "2-4"
	AgeEarly      AgeBucket = "5-8"
	AgeElementary AgeBucket = "9-12"
)

// AgeBuckets lists the buckets in ascending order
var AgeBuckets = []AgeBucket{AgeToddler, AgeEarly, AgeElementary}

// NormalizeAgeBucket maps free-form input onto a bucket. Both hyphen and en dash
// spellings are accepted; anything unrecognized lands in the oldest bucket.
func NormalizeAgeBucket(raw string) AgeBucket {
	switch strings.TrimSpace(raw) {
	case "2-4", "2–4":
		return AgeToddler
	case "5-8", "5–8":
		return AgeEarly
	default:
		return AgeElementary
	}
}

// Language is a supported narration language
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// NormalizeLanguage accepts "es" in any case as Spanish and treats the rest as English
func NormalizeLanguage(raw string) Language {
	if strings.EqualFold(strings.TrimSpace(raw), string(LanguageSpanish)) {
		return LanguageSpanish
	}
	return LanguageEnglish
}

// Name returns the language name used in prompts
func (l Language) Name() string {
	if l == LanguageSpanish {
		return "Spanish"
	}
	return "English"
}

// LanguageCode returns the BCP-47 region code used for speech
func (l Language) LanguageCode() string {
	if l == LanguageSpanish {
		return "es-US"
	}
	return "en-US"
}

// DefaultMinutes is used when a requested length is not in AllowedMinutes
const DefaultMinutes = 15

// AllowedMinutes enumerates the narration lengths offered to listeners
var AllowedMinutes = []int{5, 10, 15, 20, 30, 45, 60}

// NormalizeMinutes snaps unknown durations to DefaultMinutes
func NormalizeMinutes(minutes int) int {
	for _, m := range AllowedMinutes {
		if m == minutes {
			return minutes
		}
	}
	return DefaultMinutes
}

// NormalizeTargetDuration restricts scene generation to 15, 30 or 60 minutes
func NormalizeTargetDuration(minutes int) int {
	switch minutes {
	case 15, 30, 60:
		return minutes
	default:
		return 15
	}
}

// ThemeTag constrains which passages qualify for a story
type ThemeTag string

const (
	ThemeFaithfulness ThemeTag = "God's Faithfulness"
	ThemeCourage      ThemeTag = "Courage"
	ThemeObedience    ThemeTag = "Obedience"
	ThemeForgiveness  ThemeTag = "Forgiveness"
	ThemePrayer       ThemeTag = "Prayer"
	ThemeKindness     ThemeTag = "Kindness"
	ThemeWisdom       ThemeTag = "Wisdom"
	ThemeTrust        ThemeTag = "Trust in God"
)

// ThemeTags lists every theme in display order
var ThemeTags = []ThemeTag{
	ThemeFaithfulness, ThemeCourage, ThemeObedience, ThemeForgiveness,
	ThemePrayer, ThemeKindness, ThemeWisdom, ThemeTrust,
}

// ParseThemeTag matches a theme case-insensitively
func ParseThemeTag(raw string) (ThemeTag, bool) {
	raw = strings.TrimSpace(raw)
	for _, t := range ThemeTags {
		if strings.EqualFold(string(t), raw) {
			return t, true
		}
	}
	return "", false
}

// StoryRequest is the body of POST /api/story
type StoryRequest struct {
	Topic     string `json:"topic"`
	Age       string `json:"age"`
	Minutes   int    `json:"minutes"`
	Theme     string `json:"theme,omitempty"`
	Lang      string `json:"lang,omitempty"`
	ChildName string `json:"childName,omitempty"`
}

// StoryParams are the normalized parameters a story is generated and cached from
type StoryParams struct {
	Topic     string    `json:"topic"`
	Age       AgeBucket `json:"age"`
	Minutes   int       `json:"minutes"`
	Theme     string    `json:"theme"`
	Lang      Language  `json:"lang"`
	ChildName string    `json:"-"`
}

// Scripture is a short public-domain verse attached to a story
type Scripture struct {
	Reference string `json:"reference"`
	VerseText string `json:"verseText"`
}

// StoryPayload is the structured story returned to clients
type StoryPayload struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Story     string    `json:"story"`
	Prayer    string    `json:"prayer"`
	Scripture Scripture `json:"scripture"`
	Questions []string  `json:"questions"`
	Text      string    `json:"text,omitempty"` // mirrors Story for older clients
}

// IsComplete reports whether every required field was produced
func (p *StoryPayload) IsComplete() bool {
	return p != nil &&
		strings.TrimSpace(p.Title) != "" &&
		strings.TrimSpace(p.Story) != "" &&
		strings.TrimSpace(p.Prayer) != "" &&
		strings.TrimSpace(p.Scripture.Reference) != ""
}

// SceneRequest is the body of POST /api/stories/generate
type SceneRequest struct {
	PassageRef     string `json:"passageRef"`
	Age            string `json:"age"`
	Theme          string `json:"theme,omitempty"`
	ChildName      string `json:"childName,omitempty"`
	Language       string `json:"language,omitempty"`
	TargetDuration int    `json:"targetDuration,omitempty"`
	WithImages     bool   `json:"withImages,omitempty"`
	WithAudio      bool   `json:"withAudio,omitempty"`
}

// StoryScene is one narrated, illustrated unit of a story
type StoryScene struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Narration         string `json:"narration"`
	ImagePrompt       string `json:"imagePrompt"`
	ApproxDurationSec int    `json:"approxDurationSec"`
}

// AudioRef points at synthesized narration or tells the client to speak locally
type AudioRef struct {
	MP3Base64 string `json:"mp3Base64,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// StoryBundle is the assembled scene story with media references
type StoryBundle struct {
	PassageRef  string       `json:"passageRef"`
	Age         AgeBucket    `json:"age"`
	Language    Language     `json:"language"`
	Theme       *ThemeTag    `json:"theme"`
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	Scenes      []StoryScene `json:"scenes"`
	Disclaimers []string     `json:"disclaimers"`
	ImageURLs   []string     `json:"imageUrls"`
	Audio       *AudioRef    `json:"audio,omitempty"`
}
