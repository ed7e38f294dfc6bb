// Package recurrence evaluates whether a calendar date is an occurrence of a
// recurrence rule. Rules support daily, weekly and monthly frequencies with an
// interval, an optional end date and an optional weekly day-of-week filter.
//
// The evaluator is deliberately date-only: it decides whether a date recurs
// and knows nothing about time of day. Callers combine it with their own
// time-of-day window checks.
package recurrence

import (
	"fmt"
	"math"
	"time"
)

// Frequency is the recurrence frequency.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Rule describes how a blocked time slot repeats from its anchor date.
type Rule struct {
	Frequency Frequency `json:"frequency"`
	// Interval is the step between occurrences in units of Frequency.
	// Always >= 1 for a valid rule.
	Interval int `json:"interval"`
	// EndDate, when set, is the last date on which the rule can match.
	EndDate *time.Time `json:"endDate,omitempty"`
	// DaysOfWeek restricts weekly rules to the given weekdays. Ignored for
	// other frequencies.
	DaysOfWeek []time.Weekday `json:"daysOfWeek,omitempty"`
}

// Validate reports whether the rule is well formed. Preference updates reject
// malformed rules up front; evaluation stays permissive and treats anything
// unknown as a non-match.
func (r *Rule) Validate() error {
	switch r.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("unknown recurrence frequency %q", r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("recurrence interval must be >= 1, got %d", r.Interval)
	}
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid day of week %d", d)
		}
	}
	return nil
}

// Matches reports whether candidate is an occurrence of the rule anchored at
// anchor. Both arguments are truncated to calendar dates in their own
// locations before comparison. An unknown frequency never matches; blocking
// erroneously is worse than under-blocking here.
func Matches(rule *Rule, anchor, candidate time.Time) bool {
	if rule == nil {
		return false
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	if rule.EndDate != nil && dateOf(candidate).After(dateOf(*rule.EndDate)) {
		return false
	}

	switch rule.Frequency {
	case Daily:
		days := daysBetween(anchor, candidate)
		return days >= 0 && days%interval == 0

	case Weekly:
		if len(rule.DaysOfWeek) > 0 && !containsWeekday(rule.DaysOfWeek, candidate.Weekday()) {
			return false
		}
		days := daysBetween(anchor, candidate)
		if days < 0 {
			return false
		}
		return (days/7)%interval == 0

	case Monthly:
		months := (candidate.Year()-anchor.Year())*12 + int(candidate.Month()) - int(anchor.Month())
		return months >= 0 && months%interval == 0

	default:
		return false
	}
}

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween returns the whole-day difference between the calendar dates of
// from and to. Computed from civil dates rather than raw durations so DST
// transitions cannot shift the count.
func daysBetween(from, to time.Time) int {
	f := dateOf(from)
	t := dateOf(to)
	// Round instead of truncate: a DST transition makes one civil day 23 or
	// 25 hours long.
	return int(math.Round(t.Sub(f).Hours() / 24))
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}
