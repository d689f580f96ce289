package utils

import (
	"strconv"
	"strings"
	"time"
)

// Recurrence expressions are semicolon-separated KEY=VALUE pairs,
// e.g. "FREQ=WEEKLY;BYDAY=SU;BYHOUR=16". Keys and values are
// case-insensitive; unknown keys are ignored. Supported keys: FREQ
// (DAILY or WEEKLY), BYHOUR, BYMINUTE, BYDAY.

// MinuteTolerance is how far a local wall-clock minute may drift from a
// BYMINUTE target and still match. It is deliberately below half the
// evaluation interval so an evenly-ticked schedule fires at most once
// per occurrence.
const MinuteTolerance = 7

type ScheduleRule struct {
	Freq     string // "DAILY" or "WEEKLY"; anything else never matches
	ByHour   *int
	ByMinute *int
	ByDay    []string // two-letter weekday codes, uppercased

	invalid bool
}

// ParseSchedule parses a recurrence expression. It never errors: an
// expression with an unparsable constraint yields a rule that never
// matches, and unknown keys are skipped.
func ParseSchedule(expr string) ScheduleRule {
	var rule ScheduleRule

	for _, part := range strings.Split(expr, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(kv[0]))
		val := strings.ToUpper(strings.TrimSpace(kv[1]))

		switch key {
		case "FREQ":
			rule.Freq = val

		case "BYHOUR":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 || n > 23 {
				rule.invalid = true
				continue
			}
			rule.ByHour = &n

		case "BYMINUTE":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 || n > 59 {
				rule.invalid = true
				continue
			}
			rule.ByMinute = &n

		case "BYDAY":
			for _, day := range strings.Split(val, ",") {
				day = strings.TrimSpace(day)
				if day != "" {
					rule.ByDay = append(rule.ByDay, day)
				}
			}
		}
	}

	return rule
}

// Matches reports whether the rule matches the given local wall-clock
// moment. Every present constraint must be satisfied.
func (r ScheduleRule) Matches(local time.Time) bool {
	if r.invalid {
		return false
	}

	switch r.Freq {
	case "DAILY", "WEEKLY":
	default:
		return false
	}

	if r.ByHour != nil && local.Hour() != *r.ByHour {
		return false
	}

	if r.ByMinute != nil {
		diff := local.Minute() - *r.ByMinute
		if diff < 0 {
			diff = -diff
		}
		if diff > MinuteTolerance {
			return false
		}
	}

	if len(r.ByDay) > 0 {
		code := WeekdayCode(local.Weekday())
		found := false
		for _, day := range r.ByDay {
			if day == code {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// MatchesSchedule evaluates a recurrence expression against a local
// wall-clock moment.
func MatchesSchedule(expr string, local time.Time) bool {
	if expr == "" {
		return false
	}
	return ParseSchedule(expr).Matches(local)
}

// WeekdayCode returns the two-letter code for a weekday (SU, MO, ...).
func WeekdayCode(day time.Weekday) string {
	return strings.ToUpper(day.String()[:2])
}
