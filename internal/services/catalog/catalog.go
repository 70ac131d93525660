package catalog

import (
	"slices"

	"github.com/Egham-7/bedtime-stories/internal/models"
)

// Entry is one curated passage with the themes it genuinely teaches
type Entry struct {
	PassageRef string            `json:"passageRef"`
	Title      string            `json:"title"`
	Themes     []models.ThemeTag `json:"themes"`
	Languages  []models.Language `json:"languages,omitempty"`
}

// HasTheme reports whether the passage is tagged with theme
func (e Entry) HasTheme(theme models.ThemeTag) bool {
	return slices.Contains(e.Themes, theme)
}

var entries = []Entry{
	{PassageRef: "1 Samuel 17", Title: "David and Goliath", Themes: []models.ThemeTag{models.ThemeCourage, models.ThemeTrust, models.ThemeFaithfulness}},
	{PassageRef: "Daniel 6", Title: "Daniel in the Lions' Den", Themes: []models.ThemeTag{models.ThemeCourage, models.ThemePrayer, models.ThemeObedience, models.ThemeTrust}},
	{PassageRef: "Esther 4-5", Title: "Queen Esther's Courage", Themes: []models.ThemeTag{models.ThemeCourage, models.ThemeWisdom, models.ThemeTrust}},
	{PassageRef: "Genesis 6–9", Title: "Noah's Ark", Themes: []models.ThemeTag{models.ThemeFaithfulness, models.ThemeTrust}},
	{PassageRef: "Exodus 14", Title: "The Red Sea Crossing", Themes: []models.ThemeTag{models.ThemeFaithfulness, models.ThemeTrust}},
	{PassageRef: "Ruth 2", Title: "Ruth's Kindness", Themes: []models.ThemeTag{models.ThemeKindness, models.ThemeWisdom, models.ThemeFaithfulness}},
	{PassageRef: "Luke 10:25-37", Title: "The Good Samaritan", Themes: []models.ThemeTag{models.ThemeKindness, models.ThemeWisdom}},
	{PassageRef: "Psalm 23", Title: "The Lord Is My Shepherd", Themes: []models.ThemeTag{models.ThemeTrust, models.ThemeFaithfulness, models.ThemeWisdom}},
	{PassageRef: "Mark 4:35-41", Title: "Jesus Calms the Storm", Themes: []models.ThemeTag{models.ThemeTrust, models.ThemeCourage}},
	{PassageRef: "Luke 15:11-32", Title: "The Prodigal Son", Themes: []models.ThemeTag{models.ThemeForgiveness, models.ThemeKindness, models.ThemeFaithfulness, models.ThemeWisdom}},
	{PassageRef: "1 Kings 17:1-16", Title: "Elijah Is Fed", Themes: []models.ThemeTag{models.ThemeFaithfulness, models.ThemeTrust, models.ThemePrayer}},
	{PassageRef: "Mark 5:21-43", Title: "Jairus' Daughter", Themes: []models.ThemeTag{models.ThemeTrust, models.ThemePrayer, models.ThemeFaithfulness}},
}

// All returns a copy of the catalog in display order
func All() []Entry {
	return slices.Clone(entries)
}

// ByTheme returns the passages tagged with theme, in catalog order
func ByTheme(theme models.ThemeTag) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.HasTheme(theme) {
			out = append(out, e)
		}
	}
	return out
}

// Find looks a passage up by its exact reference
func Find(passageRef string) (Entry, bool) {
	for _, e := range entries {
		if e.PassageRef == passageRef {
			return e, true
		}
	}
	return Entry{}, false
}

// ChoosePassage keeps the requested passage when it teaches theme, otherwise
// takes the first passage that does. Without a theme, or when no passage
// matches, the request is returned unchanged.
func ChoosePassage(passageRef string, theme *models.ThemeTag) string {
	if theme == nil {
		return passageRef
	}

	matches := ByTheme(*theme)
	for _, m := range matches {
		if m.PassageRef == passageRef {
			return passageRef
		}
	}
	if len(matches) > 0 {
		return matches[0].PassageRef
	}
	return passageRef
}
