// Package meeting implements the request-facing scheduling operations:
// availability resolution over fetched busy data, and meeting creation
// against the calendar provider.
package meeting

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/confluo/confluo/internal/metrics"
	"github.com/confluo/confluo/internal/util"
	"github.com/confluo/confluo/server/scheduler/availability"
	"github.com/confluo/confluo/server/scheduler/interval"
	schedpref "github.com/confluo/confluo/server/scheduler/preference"
	"github.com/confluo/confluo/server/timezone"
	"github.com/confluo/confluo/store"
)

// BusyProvider supplies busy intervals for one attendee over a window.
// plugin/gcal implements this against Google Calendar.
type BusyProvider interface {
	FreeBusy(ctx context.Context, email string, window interval.TimeInterval) ([]interval.TimeInterval, error)
}

// UpcomingEvent is one provider-side calendar event, including meetings
// booked outside this service.
type UpcomingEvent struct {
	EventID     string    `json:"eventId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// EventLister reads upcoming events from the organizer's calendar.
// plugin/gcal implements this against Google Calendar.
type EventLister interface {
	ListUpcomingEvents(ctx context.Context, max int64) ([]*UpcomingEvent, error)
}

// EventCreator books the chosen slot on the external calendar.
type EventCreator interface {
	CreateEvent(ctx context.Context, event *CalendarEvent) (string, error)
}

// CalendarEvent is the provider-facing shape of a meeting to book. Start and
// End carry the chosen slot's exact boundary timestamps.
type CalendarEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// PreferenceLoader yields the organizer's preferences. The preference
// service implements it.
type PreferenceLoader interface {
	Get(ctx context.Context, userID int32) (*schedpref.UserPreferences, error)
}

// Service coordinates busy-data fetch, resolution and booking.
type Service struct {
	store       *store.Store
	preferences PreferenceLoader
	busy        BusyProvider // nil when no calendar provider is configured
	creator     EventCreator // nil when no calendar provider is configured
	lister      EventLister  // nil when no calendar provider is configured

	// now is the wall clock, replaceable in tests.
	now func() time.Time
}

// NewService creates a meeting service. busy, creator and lister may be nil;
// every attendee is then treated as free and meetings are recorded and
// listed locally only.
func NewService(store *store.Store, preferences PreferenceLoader, busy BusyProvider, creator EventCreator, lister EventLister) *Service {
	return &Service{
		store:       store,
		preferences: preferences,
		busy:        busy,
		creator:     creator,
		lister:      lister,
		now:         time.Now,
	}
}

// AttendeeInput is one requested participant.
type AttendeeInput struct {
	Email    string `json:"email"`
	Optional bool   `json:"optional,omitempty"`
}

// AvailabilityRequest is the wire shape of an availability query.
type AvailabilityRequest struct {
	Attendees       []AttendeeInput `json:"attendees"`
	StartDate       string          `json:"startDate"` // YYYY-MM-DD
	EndDate         string          `json:"endDate"`   // YYYY-MM-DD
	DurationMinutes int             `json:"durationMinutes"`
}

// AttendeeBusy reports the busy data used for one attendee.
type AttendeeBusy struct {
	Email    string                  `json:"email"`
	Optional bool                    `json:"optional"`
	Busy     []interval.TimeInterval `json:"busy"`
}

// AvailabilityResponse is the wire shape of an availability result.
type AvailabilityResponse struct {
	AvailableSlots []availability.CandidateSlot `json:"availableSlots"`
	BusyTimes      []AttendeeBusy               `json:"busyTimes"`
}

// Validate rejects malformed availability requests before any work happens.
func (r *AvailabilityRequest) Validate() (start, end time.Time, err error) {
	if len(r.Attendees) == 0 {
		return start, end, errors.New("at least one attendee is required")
	}
	for _, a := range r.Attendees {
		if a.Email == "" {
			return start, end, errors.New("attendee email must not be empty")
		}
	}
	if r.DurationMinutes <= 0 {
		return start, end, errors.New("durationMinutes must be positive")
	}
	start, err = time.Parse(schedpref.DateLayout, r.StartDate)
	if err != nil {
		return start, end, errors.Wrap(err, "invalid startDate")
	}
	end, err = time.Parse(schedpref.DateLayout, r.EndDate)
	if err != nil {
		return start, end, errors.Wrap(err, "invalid endDate")
	}
	if end.Before(start) {
		return start, end, errors.New("endDate must not be before startDate")
	}
	return start, end, nil
}

// FindAvailability resolves candidate slots for the request. organizerID and
// organizerEmail identify the requester, who is always included as a
// required attendee.
func (s *Service) FindAvailability(ctx context.Context, organizerID int32, organizerEmail string, req *AvailabilityRequest) (*AvailabilityResponse, error) {
	startDate, endDate, err := req.Validate()
	if err != nil {
		return nil, err
	}

	prefs, err := s.preferences.Get(ctx, organizerID)
	if err != nil {
		// Absent preferences never fail a query; the defaults apply.
		slog.Warn("failed to load organizer preferences, using defaults",
			slog.Int("organizer", int(organizerID)), slog.String("error", err.Error()))
		prefs = nil
	}

	inputs := make([]AttendeeInput, 0, len(req.Attendees)+1)
	hasOrganizer := false
	for _, a := range req.Attendees {
		if a.Email == organizerEmail {
			hasOrganizer = true
			a.Optional = false
		}
		inputs = append(inputs, a)
	}
	if !hasOrganizer && organizerEmail != "" {
		inputs = append(inputs, AttendeeInput{Email: organizerEmail})
	}

	// Date strings are calendar dates in the organizer's timezone.
	loc := prefs.Location()
	sy, sm, sd := startDate.Date()
	ey, em, ed := endDate.Date()
	window := interval.TimeInterval{
		Start: timezone.StartOfDay(time.Date(sy, sm, sd, 0, 0, 0, 0, loc), loc),
		End:   timezone.EndOfDay(time.Date(ey, em, ed, 0, 0, 0, 0, loc), loc),
	}
	attendees := s.fetchBusy(ctx, inputs, window)

	started := time.Now()
	slots := availability.Resolve(availability.Request{
		StartDate: startDate,
		EndDate:   endDate,
		Duration:  time.Duration(req.DurationMinutes) * time.Minute,
		Attendees: attendees,
		Prefs:     prefs,
		Now:       s.now(),
	})
	metrics.ObserveResolution(started, len(slots))

	busyTimes := make([]AttendeeBusy, 0, len(attendees))
	for _, a := range attendees {
		busy := a.Busy
		if busy == nil {
			busy = []interval.TimeInterval{}
		}
		busyTimes = append(busyTimes, AttendeeBusy{Email: a.Email, Optional: a.Optional, Busy: busy})
	}

	return &AvailabilityResponse{AvailableSlots: slots, BusyTimes: busyTimes}, nil
}

// fetchBusy retrieves each attendee's busy intervals concurrently. A failed
// fetch is logged and the attendee treated as free; one attendee's calendar
// permissions must never stall everyone's scheduling.
func (s *Service) fetchBusy(ctx context.Context, inputs []AttendeeInput, window interval.TimeInterval) []availability.Attendee {
	attendees := make([]availability.Attendee, len(inputs))
	for i, in := range inputs {
		attendees[i] = availability.Attendee{Email: in.Email, Optional: in.Optional}
	}
	if s.busy == nil {
		return attendees
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range attendees {
		i := i
		g.Go(func() error {
			busy, err := s.busy.FreeBusy(gctx, attendees[i].Email, window)
			if err != nil {
				metrics.CountCalendarFetchFailure()
				slog.Warn("busy fetch failed, treating attendee as free",
					slog.String("email", attendees[i].Email), slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			attendees[i].Busy = busy
			mu.Unlock()
			return nil
		})
	}
	// The closures swallow errors, so the group only propagates ctx
	// cancellation.
	_ = g.Wait()
	return attendees
}

// CreateMeetingRequest is the wire shape of a booking request. Start and End
// come verbatim from a chosen candidate slot.
type CreateMeetingRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Attendees   []AttendeeInput `json:"attendees"`
}

// Validate rejects malformed booking requests.
func (r *CreateMeetingRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if !r.Start.Before(r.End) {
		return errors.New("start must be before end")
	}
	return nil
}

// CreateMeeting books the slot with the calendar provider (when configured)
// and records the meeting locally.
func (s *Service) CreateMeeting(ctx context.Context, organizerID int32, organizerEmail string, req *CreateMeetingRequest) (*store.Meeting, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(req.Attendees)+1)
	emails = append(emails, organizerEmail)
	for _, a := range req.Attendees {
		if a.Email != organizerEmail {
			emails = append(emails, a.Email)
		}
	}

	eventID := ""
	provider := ""
	if s.creator != nil {
		var err error
		// The slot's exact boundary timestamps go to the provider untouched.
		eventID, err = s.creator.CreateEvent(ctx, &CalendarEvent{
			Title:       req.Title,
			Description: req.Description,
			Start:       req.Start,
			End:         req.End,
			Attendees:   emails,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create calendar event")
		}
		provider = "google"
	}

	attendeesDoc, err := json.Marshal(req.Attendees)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode attendees")
	}

	meeting, err := s.store.CreateMeeting(ctx, &store.Meeting{
		UID:         util.GenShortUUID(),
		OrganizerID: organizerID,
		Title:       req.Title,
		Description: req.Description,
		StartTs:     req.Start.Unix(),
		EndTs:       req.End.Unix(),
		Attendees:   string(attendeesDoc),
		Provider:    provider,
		EventID:     eventID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record meeting")
	}
	return meeting, nil
}

// ListUpcoming returns the organizer's meetings starting at or after now.
func (s *Service) ListUpcoming(ctx context.Context, organizerID int32, limit int) ([]*store.Meeting, error) {
	startAfter := s.now().Unix()
	find := &store.FindMeeting{OrganizerID: &organizerID, StartAfter: &startAfter}
	if limit > 0 {
		find.Limit = &limit
	}
	return s.store.ListMeetings(ctx, find)
}

// ListUpcomingEvents returns the organizer's upcoming provider-side calendar
// events. Without a provider, or when the provider fails, the listing is
// empty; local records from ListUpcoming remain the source of truth.
func (s *Service) ListUpcomingEvents(ctx context.Context, limit int) []*UpcomingEvent {
	if s.lister == nil {
		return nil
	}
	events, err := s.lister.ListUpcomingEvents(ctx, int64(limit))
	if err != nil {
		metrics.CountCalendarFetchFailure()
		slog.Warn("failed to list calendar events", slog.String("error", err.Error()))
		return nil
	}
	return events
}
