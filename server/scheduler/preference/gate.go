package preference

import (
	"time"

	"github.com/confluo/confluo/server/scheduler/interval"
	"github.com/confluo/confluo/server/scheduler/recurrence"
)

// IsDayAllowed decides whether any slot may be proposed on the given date.
// Only the calendar date of the argument matters.
//
// Order of checks: explicit whole-day blocks win over the weekday
// configuration, and the weekday allow-map wins over the legacy block-list.
// Without preferences, Monday through Friday are allowed.
func IsDayAllowed(date time.Time, prefs *UserPreferences) bool {
	if prefs != nil {
		dateKey := date.Format(DateLayout)
		for _, d := range prefs.BlockedDays {
			if d.Date != dateKey {
				continue
			}
			if d.AllDay || len(d.TimeRanges) == 0 {
				return false
			}
		}

		if prefs.WorkingDays != nil {
			return prefs.WorkingDays[date.Weekday()]
		}
		if len(prefs.BlockedWeekdays) > 0 {
			for _, wd := range prefs.BlockedWeekdays {
				if wd == date.Weekday() {
					return false
				}
			}
			return true
		}
	}

	wd := date.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsSlotAllowed decides whether the slot [slotStart, slotEnd) passes the
// slot-level preference checks: working hours, same-day minimum notice,
// partial-day blocked ranges and blocked time slots (direct or recurring).
// now is the wall clock at resolution time.
func IsSlotAllowed(slotStart, slotEnd time.Time, prefs *UserPreferences, now time.Time) bool {
	wh := prefs.Hours()
	// Hour-based comparison on both ends: a slot ending exactly on the
	// closing hour is still inside working hours.
	if slotStart.Hour() < wh.Start || slotEnd.Hour() > wh.End {
		return false
	}

	if sameDate(slotStart, now) && !slotStart.After(now.Add(prefs.Notice())) {
		return false
	}

	if prefs == nil {
		return true
	}

	slot := interval.TimeInterval{Start: slotStart, End: slotEnd}

	dateKey := slotStart.Format(DateLayout)
	for _, d := range prefs.BlockedDays {
		if d.Date != dateKey || d.AllDay {
			continue
		}
		for _, r := range d.TimeRanges {
			blocked, ok := rangeOnDate(slotStart, r)
			if ok && slot.Overlaps(blocked) {
				return false
			}
		}
	}

	for i := range prefs.BlockedTimeSlots {
		bs := &prefs.BlockedTimeSlots[i]
		if !bs.IsActive {
			continue
		}
		if slot.Overlaps(interval.TimeInterval{Start: bs.Start, End: bs.End}) {
			return false
		}
		if bs.Recurrence == nil {
			continue
		}
		if !recurrence.Matches(bs.Recurrence, bs.Start, slotStart) {
			continue
		}
		if slot.Overlaps(projectOntoDate(bs, slotStart)) {
			return false
		}
	}

	return true
}

// rangeOnDate applies a "HH:MM" clock range to the calendar date of ref.
func rangeOnDate(ref time.Time, r ClockRange) (interval.TimeInterval, bool) {
	start, err1 := time.Parse(ClockLayout, r.Start)
	end, err2 := time.Parse(ClockLayout, r.End)
	if err1 != nil || err2 != nil || !start.Before(end) {
		return interval.TimeInterval{}, false
	}
	y, m, d := ref.Date()
	loc := ref.Location()
	return interval.TimeInterval{
		Start: time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc),
		End:   time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc),
	}, true
}

// projectOntoDate maps a blocked slot's original time-of-day window onto the
// calendar date of ref, preserving the window's length.
func projectOntoDate(bs *BlockedTimeSlot, ref time.Time) interval.TimeInterval {
	y, m, d := ref.Date()
	loc := ref.Location()
	src := bs.Start.In(loc)
	start := time.Date(y, m, d, src.Hour(), src.Minute(), src.Second(), 0, loc)
	return interval.TimeInterval{Start: start, End: start.Add(bs.End.Sub(bs.Start))}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
