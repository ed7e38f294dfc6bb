package availability

import (
	"sort"
	"time"

	"github.com/confluo/confluo/server/scheduler/interval"
	"github.com/confluo/confluo/server/scheduler/preference"
)

// Request carries everything the resolver needs for one resolution.
type Request struct {
	// StartDate and EndDate bound the search, inclusive on both ends.
	// Only their calendar dates matter.
	StartDate time.Time
	EndDate   time.Time
	// Duration of the meeting being scheduled.
	Duration time.Duration
	// Attendees with their busy windows. The organizer should appear here
	// as a required attendee.
	Attendees []Attendee
	// Prefs are the organizer's preferences; nil applies the defaults.
	Prefs *preference.UserPreferences
	// Now anchors the same-day minimum-notice check. Zero means the wall
	// clock at call time.
	Now time.Time
}

// Resolve walks a 30-minute grid across each allowed day of the request
// range, drops slots that fail the preference gate or conflict with a
// required attendee, scores the survivors, and returns the top candidates
// ranked by start time then score.
//
// An inverted date range is not an error: the day loop simply never runs
// and the result is empty.
func Resolve(req Request) []CandidateSlot {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := req.Prefs.Location()
	wh := req.Prefs.Hours()

	participants := make([]string, 0, len(req.Attendees))
	for i := range req.Attendees {
		participants = append(participants, req.Attendees[i].Email)
	}

	slots := make([]CandidateSlot, 0, MaxSuggestions)

	startDay := dateIn(req.StartDate, loc)
	endDay := dateIn(req.EndDate, loc)
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if !preference.IsDayAllowed(day, req.Prefs) {
			continue
		}

		for hour := wh.Start; hour < wh.End; hour++ {
			for _, minute := range []int{0, SlotStepMinutes} {
				slotStart := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
				slotEnd := slotStart.Add(req.Duration)
				if slotEnd.Hour() > wh.End {
					break
				}

				if !preference.IsSlotAllowed(slotStart, slotEnd, req.Prefs, now) {
					continue
				}

				slot := interval.TimeInterval{Start: slotStart, End: slotEnd}
				facts := evaluateConflicts(slot, req.Attendees)
				if facts.blocked {
					continue
				}

				slots = append(slots, CandidateSlot{
					Start:                 slotStart,
					End:                   slotEnd,
					Score:                 scoreSlot(slotStart, req.Prefs, facts.optionalConflicts),
					Participants:          participants,
					AvailableParticipants: facts.available,
					OptionalConflicts:     facts.optionalConflicts,
				})
			}
		}
	}

	sortSlots(slots)
	if len(slots) > MaxSuggestions {
		slots = slots[:MaxSuggestions]
	}
	return slots
}

// sortSlots orders chronologically, breaking equal start times by score.
// Soonest-first is deliberate: the cap keeps the earliest qualifying slots,
// not the highest-scoring ones.
func sortSlots(slots []CandidateSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].Score > slots[j].Score
	})
}

// dateIn anchors t's calendar date at midnight in loc. The date components
// are taken literally: a parsed "2025-06-23" means June 23rd in the
// organizer's timezone, whatever zone the parse attached.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
