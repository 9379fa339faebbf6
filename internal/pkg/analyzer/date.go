package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006.01.02", "2006/01/02",
	"January 2, 2006", "Jan 2, 2006", "2 January 2006"}

var inRelativeRe = regexp.MustCompile(`^in (\d+) (day|days|week|weeks)$`)

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// resolveDeadline turns the model deadline phrase into a calendar date.
// Returns nil when the phrase can't be resolved - better no deadline than a wrong one
func resolveDeadline(s string, now time.Time) *time.Time {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return datePtr(date(t))
		}
	}
	s = strings.ToLower(s)
	if s == "" || s == "null" || s == "none" || s == "no deadline" {
		return nil
	}
	today := date(now)
	switch s {
	case "today":
		return datePtr(today)
	case "tomorrow":
		return datePtr(today.AddDate(0, 0, 1))
	case "next week":
		return datePtr(today.AddDate(0, 0, 7))
	}
	if m := inRelativeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return datePtr(today.AddDate(0, 0, n))
	}
	if wd, ok := weekdays[strings.TrimPrefix(s, "next ")]; ok && strings.HasPrefix(s, "next ") {
		days := int(wd-today.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		return datePtr(today.AddDate(0, 0, days))
	}
	return nil
}

func date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time {
	return &t
}
