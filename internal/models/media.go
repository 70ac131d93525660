package models

// ImageSize describes the pixel dimensions of a rendered illustration
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseImageSize maps the supported size strings, defaulting to a square
func ParseImageSize(raw string) ImageSize {
	switch raw {
	case "768x1024":
		return ImageSize{Width: 768, Height: 1024}
	case "1024x768":
		return ImageSize{Width: 1024, Height: 768}
	default:
		return ImageSize{Width: 1024, Height: 1024}
	}
}

// AspectRatio returns the ratio string understood by the image model
func (s ImageSize) AspectRatio() string {
	switch {
	case s.Width < s.Height:
		return "3:4"
	case s.Width > s.Height:
		return "4:3"
	default:
		return "1:1"
	}
}

// ImageRequest is the body of POST /api/art
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	N      int    `json:"n,omitempty"`
}

// ImageResult carries base64-encoded PNG images
type ImageResult struct {
	Model  string    `json:"model"`
	Images []string  `json:"images"`
	MIME   string    `json:"mime"`
	Size   ImageSize `json:"size"`
}

// SpeechRequest is the body of POST /api/tts
type SpeechRequest struct {
	Text    string `json:"text"`
	Lang    string `json:"lang,omitempty"`
	Voice   string `json:"voice,omitempty"`
	Minutes int    `json:"minutes,omitempty"`
}
