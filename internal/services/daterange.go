package services

import (
	"time"

	"github.com/lojf/garage/internal/models"
)

// DatePreset is a named range the dashboard resolves before querying.
type DatePreset string

const (
	PresetAll         DatePreset = "all"
	PresetThisWeek    DatePreset = "this-week"
	PresetLastWeek    DatePreset = "last-week"
	PresetThisMonth   DatePreset = "this-month"
	PresetLastMonth   DatePreset = "last-month"
	PresetCustomRange DatePreset = "custom-range"
)

// DateRange is inclusive on both ends.
type DateRange struct {
	From models.Date `json:"from"`
	To   models.Date `json:"to"`
}

// Days counts the calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From.Time)/(24*time.Hour)) + 1
}

// ResolvePreset expands p relative to today. Weeks start on Sunday.
// ok is false when no date predicate should be applied: "all", unknown
// presets, and custom ranges missing either end.
func ResolvePreset(p DatePreset, custom DateRange, today models.Date) (r DateRange, ok bool) {
	switch p {
	case PresetThisWeek:
		from := today.AddDays(-int(today.Weekday()))
		return DateRange{From: from, To: from.AddDays(6)}, true

	case PresetLastWeek:
		to := today.AddDays(-int(today.Weekday()) - 1)
		return DateRange{From: to.AddDays(-6), To: to}, true

	case PresetThisMonth:
		y, m, _ := today.Date()
		return DateRange{From: models.NewDate(y, m, 1), To: models.NewDate(y, m+1, 0)}, true

	case PresetLastMonth:
		y, m, _ := today.Date()
		return DateRange{From: models.NewDate(y, m-1, 1), To: models.NewDate(y, m, 0)}, true

	case PresetCustomRange:
		if custom.From.IsZero() || custom.To.IsZero() {
			return DateRange{}, false
		}
		if custom.To.Before(custom.From.Time) {
			custom.From, custom.To = custom.To, custom.From
		}
		return custom, true
	}
	return DateRange{}, false
}
