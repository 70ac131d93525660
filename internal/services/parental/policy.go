package parental

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
)

// Query is what a player asks before starting a story
type Query struct {
	Duration int
	Slug     string
	Ages     []models.AgeBucket
	Lang     models.Language
}

// Decision is the outcome of applying the parental settings to a Query
type Decision struct {
	Duration int             `json:"duration"`
	Visible  bool            `json:"visible"`
	Lang     models.Language `json:"lang"`
	CanPlay  bool            `json:"canPlay"`
}

// Policy applies one household's settings
type Policy struct {
	settings models.ParentalSettings
	child    *models.ChildProfile
}

func NewPolicy(settings models.ParentalSettings) Policy {
	return Policy{settings: settings, child: settings.ActiveChild()}
}

// Evaluate answers every rule for q at now
func (p Policy) Evaluate(q Query, now time.Time) Decision {
	return Decision{
		Duration: p.EnforceDuration(q.Duration),
		Visible:  p.IsStoryVisible(q.Slug, q.Ages),
		Lang:     p.LockedLanguage(q.Lang),
		CanPlay:  p.CanPlayNow(now),
	}
}

// EnforceDuration caps requested minutes at maxMinutes, or the active child's default
func (p Policy) EnforceDuration(requested int) int {
	limit := 0
	if p.settings.MaxMinutes != nil {
		limit = *p.settings.MaxMinutes
	} else if p.child != nil {
		limit = p.child.DefaultMinutes
	}
	if limit > 0 {
		return min(requested, limit)
	}
	return requested
}

// IsStoryVisible hides listed slugs and, with an active child, stories outside the child's age
func (p Policy) IsStoryVisible(slug string, ages []models.AgeBucket) bool {
	if slices.Contains(p.settings.HiddenStorySlugs, slug) {
		return false
	}
	if !p.settings.RestrictByAge || p.child == nil {
		return true
	}
	return slices.Contains(ages, p.child.Age)
}

// LockedLanguage returns the active child's language when it is locked
func (p Policy) LockedLanguage(fallback models.Language) models.Language {
	if p.settings.LockLanguage && p.child != nil {
		return p.child.Lang
	}
	return fallback
}

// CanPlayNow blocks playback inside the blackout window [bedtimeFrom, bedtimeTo).
// The window wraps midnight when bedtimeTo is earlier than bedtimeFrom; equal
// bounds describe an empty window.
func (p Policy) CanPlayNow(now time.Time) bool {
	from, okFrom := parseClock(p.settings.BedtimeFrom)
	to, okTo := parseClock(p.settings.BedtimeTo)
	if !okFrom || !okTo {
		return true
	}

	h, m, sec := now.Clock()
	at := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second

	var blocked bool
	if from <= to {
		blocked = at >= from && at < to
	} else {
		blocked = at >= from || at < to
	}
	return !blocked
}

// parseClock reads "HH:MM" as an offset from midnight
func parseClock(hhmm string) (time.Duration, bool) {
	hours, minutes, found := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 || len(minutes) != 2 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, true
}

// ParseAges reads a comma separated age list such as "2-4,5-8"
func ParseAges(raw string) []models.AgeBucket {
	var ages []models.AgeBucket
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ages = append(ages, models.NormalizeAgeBucket(part))
		}
	}
	return ages
}
