// Package availability turns attendee busy data and organizer preferences
// into a ranked list of proposable meeting slots.
package availability

import (
	"time"

	"github.com/confluo/confluo/server/scheduler/interval"
)

const (
	// SlotStepMinutes is the granularity of the candidate grid.
	SlotStepMinutes = 30

	// MaxSuggestions caps the resolver output after ranking.
	MaxSuggestions = 10

	// OptionalConflictPenalty is subtracted from a slot's base score per
	// optional attendee with a conflict.
	OptionalConflictPenalty = 15

	// MinScore is the floor below which penalties cannot push a slot.
	MinScore = 10
)

// Attendee is one meeting participant with their known busy windows.
type Attendee struct {
	Email    string                  `json:"email"`
	Optional bool                    `json:"optional"`
	Busy     []interval.TimeInterval `json:"-"`
}

// CandidateSlot is one proposable slot produced by the resolver.
type CandidateSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Score ranks the slot: time-of-day base minus optional-conflict
	// penalties, never below MinScore.
	Score int `json:"score"`
	// Participants lists every attendee email, available or not.
	Participants []string `json:"participants"`
	// AvailableParticipants lists attendees with no conflict in this slot.
	AvailableParticipants []string `json:"availableParticipants"`
	// OptionalConflicts counts optional attendees busy during this slot.
	OptionalConflicts int `json:"optionalConflicts,omitempty"`
}

// slotFacts is the conflict checker's verdict for one candidate slot.
type slotFacts struct {
	blocked           bool
	optionalConflicts int
	available         []string
}

// evaluateConflicts checks each attendee's busy windows against the slot.
// A busy required attendee blocks the slot outright; a busy optional
// attendee only counts toward the penalty.
func evaluateConflicts(slot interval.TimeInterval, attendees []Attendee) slotFacts {
	facts := slotFacts{available: make([]string, 0, len(attendees))}
	for i := range attendees {
		a := &attendees[i]
		busy := false
		for _, b := range a.Busy {
			if slot.Overlaps(b) {
				busy = true
				break
			}
		}
		if !busy {
			facts.available = append(facts.available, a.Email)
			continue
		}
		if a.Optional {
			facts.optionalConflicts++
		} else {
			facts.blocked = true
		}
	}
	return facts
}
