package availability

import (
	"time"

	"github.com/confluo/confluo/server/scheduler/preference"
)

// Time-of-day base scores. A bucket only pays out when the organizer's
// preference flag for it is set (or no preference record exists).
const (
	scoreMorning   = 100 // [09:00, 12:00)
	scoreAfternoon = 80  // [12:00, 15:00)
	scoreLate      = 60  // [15:00, 18:00)
	scoreOffPeak   = 40
)

// baseScore buckets the slot's start hour into a time-of-day score.
func baseScore(start time.Time, prefs *preference.UserPreferences) int {
	var mt *preference.MeetingTimePrefs
	if prefs != nil {
		mt = prefs.PreferredMeetingTimes
	}

	h := start.Hour()
	switch {
	case h >= 9 && h < 12:
		if mt == nil || mt.Morning {
			return scoreMorning
		}
	case h >= 12 && h < 15:
		if mt == nil || mt.Afternoon {
			return scoreAfternoon
		}
	case h >= 15 && h < 18:
		if mt == nil || mt.Evening {
			return scoreLate
		}
	}
	return scoreOffPeak
}

// scoreSlot applies the optional-conflict penalty to the base score,
// clamped at MinScore.
func scoreSlot(start time.Time, prefs *preference.UserPreferences, optionalConflicts int) int {
	score := baseScore(start, prefs) - OptionalConflictPenalty*optionalConflicts
	if score < MinScore {
		return MinScore
	}
	return score
}
