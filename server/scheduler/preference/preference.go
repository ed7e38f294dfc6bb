// Package preference holds the per-user scheduling preference model and the
// gate that decides whether a candidate day or slot is acceptable under those
// preferences. The availability resolver consults this package before it ever
// looks at attendee busy data.
package preference

import (
	"fmt"
	"time"

	"github.com/confluo/confluo/server/scheduler/recurrence"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for partial-day time ranges.
	ClockLayout = "15:04"

	// DefaultTimezone is used when a preference record carries no timezone.
	DefaultTimezone = "America/Mexico_City"

	// DefaultNotice is the minimum lead time applied to same-day slots when
	// the organizer has no preference record (or has not set one).
	DefaultNotice = 30 * time.Minute
)

// WorkingHours is the daily clock window inside which slots may be proposed.
// Hours are 0-23 in the organizer's timezone.
type WorkingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MeetingTimePrefs gates the scorer's time-of-day buckets. A false flag does
// not forbid the bucket, it only withholds the bucket's elevated score.
type MeetingTimePrefs struct {
	Morning   bool `json:"morning"`
	Afternoon bool `json:"afternoon"`
	Evening   bool `json:"evening"`
}

// ClockRange is a same-day time range in "HH:MM" local clock time.
type ClockRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BlockedDay excludes a specific calendar date from scheduling, either wholly
// (PTO) or for the listed time ranges (an appointment).
type BlockedDay struct {
	Date       string       `json:"date"` // YYYY-MM-DD
	Reason     string       `json:"reason,omitempty"`
	AllDay     bool         `json:"allDay"`
	TimeRanges []ClockRange `json:"timeRanges,omitempty"`
}

// BlockedTimeSlot is a "do not schedule me here" window, possibly recurring.
// Unlike BlockedDay it is anchored to a timestamp, not a date.
type BlockedTimeSlot struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	Recurrence *recurrence.Rule `json:"recurrence,omitempty"`
	IsActive   bool             `json:"isActive"`
	CreatedTs  int64            `json:"createdTs,omitempty"`
}

// UserPreferences aggregates one user's scheduling constraints.
//
// Weekday availability has two representations for historical reasons: the
// canonical per-weekday allow-map (WorkingDays, indexed by time.Weekday) and
// a legacy weekday block-list. The gate consults the allow-map when present
// and falls back to the block-list, then to Monday-Friday.
type UserPreferences struct {
	WorkingHours     WorkingHours      `json:"workingHours"`
	WorkingDays      *[7]bool          `json:"workingDays,omitempty"`
	BlockedWeekdays  []time.Weekday    `json:"blockedWeekdays,omitempty"`
	BlockedDays      []BlockedDay      `json:"blockedDays,omitempty"`
	BlockedTimeSlots []BlockedTimeSlot `json:"blockedTimeSlots,omitempty"`
	TimeZone         string            `json:"timeZone"`
	// MinimumNotice is the same-day lead time in hours. Zero means unset,
	// which applies DefaultNotice.
	MinimumNotice int `json:"minimumNotice,omitempty"`
	// BufferTime (minutes between meetings) is stored but not yet enforced
	// by the resolver.
	BufferTime        int               `json:"bufferTime,omitempty"`
	MaxMeetingsPerDay int               `json:"maxMeetingsPerDay,omitempty"`
	PreferredMeetingTimes *MeetingTimePrefs `json:"preferredMeetingTimes,omitempty"`
}

// Default returns the preference record created for a user on first access.
func Default() *UserPreferences {
	return &UserPreferences{
		WorkingHours: WorkingHours{Start: 9, End: 17},
		WorkingDays: &[7]bool{
			time.Sunday:    false,
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
			time.Saturday:  false,
		},
		TimeZone:          DefaultTimezone,
		MinimumNotice:     2,
		BufferTime:        15,
		MaxMeetingsPerDay: 8,
		PreferredMeetingTimes: &MeetingTimePrefs{
			Morning:   true,
			Afternoon: true,
			Evening:   false,
		},
	}
}

// Location resolves the record's timezone, falling back to UTC when the
// record is nil or its timezone is invalid.
func (p *UserPreferences) Location() *time.Location {
	if p == nil || p.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Notice returns the effective same-day minimum notice.
func (p *UserPreferences) Notice() time.Duration {
	if p == nil || p.MinimumNotice <= 0 {
		return DefaultNotice
	}
	return time.Duration(p.MinimumNotice) * time.Hour
}

// Hours returns the effective working-hour window. Absent preferences mean
// the 09:00-18:00 default used for anonymous resolution.
func (p *UserPreferences) Hours() WorkingHours {
	if p == nil || (p.WorkingHours.Start == 0 && p.WorkingHours.End == 0) {
		return WorkingHours{Start: 9, End: 18}
	}
	return p.WorkingHours
}

// Validate rejects malformed preference records at save time. Evaluation is
// permissive, but there is no reason to persist a record that can never
// behave the way its author intended.
func (p *UserPreferences) Validate() error {
	wh := p.WorkingHours
	if wh.Start < 0 || wh.Start > 23 || wh.End < 0 || wh.End > 23 {
		return fmt.Errorf("working hours out of range: %d-%d", wh.Start, wh.End)
	}
	if wh.Start >= wh.End {
		return fmt.Errorf("working hours start %d must be before end %d", wh.Start, wh.End)
	}
	if p.TimeZone != "" {
		if _, err := time.LoadLocation(p.TimeZone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", p.TimeZone, err)
		}
	}
	if p.MinimumNotice < 0 {
		return fmt.Errorf("minimum notice must not be negative")
	}
	for _, d := range p.BlockedDays {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for i := range p.BlockedTimeSlots {
		if err := p.BlockedTimeSlots[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the date and time-range formats of a blocked day.
func (d *BlockedDay) Validate() error {
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return fmt.Errorf("invalid blocked day date %q: %w", d.Date, err)
	}
	for _, r := range d.TimeRanges {
		start, err := parseClock(r.Start)
		if err != nil {
			return err
		}
		end, err := parseClock(r.End)
		if err != nil {
			return err
		}
		if !start.Before(end) {
			return fmt.Errorf("blocked day range %s-%s is empty", r.Start, r.End)
		}
	}
	return nil
}

// Validate checks a blocked time slot, including its recurrence rule.
// Unknown recurrence frequencies are rejected here rather than silently
// ignored at evaluation time.
func (s *BlockedTimeSlot) Validate() error {
	if !s.Start.Before(s.End) {
		return fmt.Errorf("blocked slot %q: start must be before end", s.Title)
	}
	if s.Recurrence != nil {
		if err := s.Recurrence.Validate(); err != nil {
			return fmt.Errorf("blocked slot %q: %w", s.Title, err)
		}
	}
	return nil
}

// parseClock parses "HH:MM" onto an arbitrary reference day for comparison.
func parseClock(s string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t, nil
}
