package meeting

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/server/scheduler/interval"
	schedpref "github.com/confluo/confluo/server/scheduler/preference"
	"github.com/confluo/confluo/store"
)

// memDriver is an in-memory store.Driver for service tests.
type memDriver struct {
	meetings []*store.Meeting
	nextID   int32
}

func (d *memDriver) GetDB() *sql.DB                              { return nil }
func (d *memDriver) Close() error                                { return nil }
func (d *memDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *memDriver) UpsertUserPreferences(context.Context, *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	return nil, errors.New("not implemented")
}

func (d *memDriver) GetUserPreferences(context.Context, *store.FindUserPreferences) (*store.UserPreferences, error) {
	return nil, nil
}

func (d *memDriver) DeleteUserPreferences(context.Context, *store.DeleteUserPreferences) error {
	return nil
}

func (d *memDriver) CreateMeeting(_ context.Context, create *store.Meeting) (*store.Meeting, error) {
	meeting := *create
	d.nextID++
	meeting.ID = d.nextID
	meeting.CreatedTs = time.Now().Unix()
	d.meetings = append(d.meetings, &meeting)
	return &meeting, nil
}

func (d *memDriver) ListMeetings(_ context.Context, find *store.FindMeeting) ([]*store.Meeting, error) {
	list := []*store.Meeting{}
	for _, m := range d.meetings {
		if find.OrganizerID != nil && m.OrganizerID != *find.OrganizerID {
			continue
		}
		if find.StartAfter != nil && m.StartTs < *find.StartAfter {
			continue
		}
		list = append(list, m)
	}
	return list, nil
}

func (d *memDriver) DeleteMeeting(_ context.Context, del *store.DeleteMeeting) error {
	kept := d.meetings[:0]
	for _, m := range d.meetings {
		if m.ID != del.ID {
			kept = append(kept, m)
		}
	}
	d.meetings = kept
	return nil
}

// fixedPrefs always returns the same preference record.
type fixedPrefs struct {
	prefs *schedpref.UserPreferences
	err   error
}

func (f *fixedPrefs) Get(context.Context, int32) (*schedpref.UserPreferences, error) {
	return f.prefs, f.err
}

// fakeBusy serves canned busy intervals, with optional per-email failures.
type fakeBusy struct {
	busy    map[string][]interval.TimeInterval
	failFor map[string]bool
}

func (f *fakeBusy) FreeBusy(_ context.Context, email string, _ interval.TimeInterval) ([]interval.TimeInterval, error) {
	if f.failFor[email] {
		return nil, errors.New("calendar permission denied")
	}
	return f.busy[email], nil
}

// fakeCreator records the last booked event.
type fakeCreator struct {
	last *CalendarEvent
	err  error
}

func (f *fakeCreator) CreateEvent(_ context.Context, event *CalendarEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.last = event
	return "evt-123", nil
}

func testPrefs() *schedpref.UserPreferences {
	p := schedpref.Default()
	p.TimeZone = "UTC"
	return p
}

// fakeLister serves canned upcoming events.
type fakeLister struct {
	events []*UpcomingEvent
	err    error
}

func (f *fakeLister) ListUpcomingEvents(_ context.Context, _ int64) ([]*UpcomingEvent, error) {
	return f.events, f.err
}

func newTestService(busy BusyProvider, creator EventCreator) (*Service, *memDriver) {
	driver := &memDriver{}
	st := store.New(driver, &profile.Profile{Mode: "dev", Driver: "sqlite"})
	svc := NewService(st, &fixedPrefs{prefs: testPrefs()}, busy, creator, nil)
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	}
	return svc, driver
}

func TestAvailabilityRequestValidate(t *testing.T) {
	valid := AvailabilityRequest{
		Attendees:       []AttendeeInput{{Email: "a@example.com"}},
		StartDate:       "2025-06-23",
		EndDate:         "2025-06-27",
		DurationMinutes: 30,
	}

	_, _, err := valid.Validate()
	assert.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*AvailabilityRequest)
	}{
		{"no attendees", func(r *AvailabilityRequest) { r.Attendees = nil }},
		{"empty email", func(r *AvailabilityRequest) { r.Attendees = []AttendeeInput{{}} }},
		{"zero duration", func(r *AvailabilityRequest) { r.DurationMinutes = 0 }},
		{"negative duration", func(r *AvailabilityRequest) { r.DurationMinutes = -30 }},
		{"bad start date", func(r *AvailabilityRequest) { r.StartDate = "June 23" }},
		{"bad end date", func(r *AvailabilityRequest) { r.EndDate = "2025-13-40" }},
		{"inverted range", func(r *AvailabilityRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, _, err := req.Validate()
			assert.Error(t, err)
		})
	}
}

func TestFindAvailability(t *testing.T) {
	busyAt := interval.TimeInterval{
		Start: time.Date(2025, time.June, 23, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 12, 0, 0, 0, time.UTC),
	}
	svc, _ := newTestService(&fakeBusy{
		busy: map[string][]interval.TimeInterval{"colleague@example.com": {busyAt}},
	}, nil)

	resp, err := svc.FindAvailability(context.Background(), 1, "organizer@example.com", &AvailabilityRequest{
		Attendees:       []AttendeeInput{{Email: "colleague@example.com"}},
		StartDate:       "2025-06-23",
		EndDate:         "2025-06-23",
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.AvailableSlots)
	first := resp.AvailableSlots[0]
	assert.Equal(t, 12, first.Start.Hour(), "morning blocked by the required attendee")
	assert.ElementsMatch(t, []string{"colleague@example.com", "organizer@example.com"}, first.Participants)

	require.Len(t, resp.BusyTimes, 2)
	byEmail := map[string][]interval.TimeInterval{}
	for _, bt := range resp.BusyTimes {
		byEmail[bt.Email] = bt.Busy
	}
	assert.Equal(t, []interval.TimeInterval{busyAt}, byEmail["colleague@example.com"])
	assert.Empty(t, byEmail["organizer@example.com"])
}

func TestFindAvailability_FailOpenOnFetchError(t *testing.T) {
	svc, _ := newTestService(&fakeBusy{
		failFor: map[string]bool{"unreachable@example.com": true},
	}, nil)

	resp, err := svc.FindAvailability(context.Background(), 1, "organizer@example.com", &AvailabilityRequest{
		Attendees:       []AttendeeInput{{Email: "unreachable@example.com"}},
		StartDate:       "2025-06-23",
		EndDate:         "2025-06-23",
		DurationMinutes: 30,
	})
	require.NoError(t, err, "a failed fetch never fails the request")

	require.NotEmpty(t, resp.AvailableSlots)
	for _, slot := range resp.AvailableSlots {
		assert.Contains(t, slot.AvailableParticipants, "unreachable@example.com")
	}
}

func TestFindAvailability_OrganizerAlwaysRequired(t *testing.T) {
	// The organizer appears in the attendee list marked optional; the
	// request still treats them as required.
	organizerBusy := interval.TimeInterval{
		Start: time.Date(2025, time.June, 23, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 17, 0, 0, 0, time.UTC),
	}
	svc, _ := newTestService(&fakeBusy{
		busy: map[string][]interval.TimeInterval{"organizer@example.com": {organizerBusy}},
	}, nil)

	resp, err := svc.FindAvailability(context.Background(), 1, "organizer@example.com", &AvailabilityRequest{
		Attendees:       []AttendeeInput{{Email: "organizer@example.com", Optional: true}},
		StartDate:       "2025-06-23",
		EndDate:         "2025-06-23",
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.AvailableSlots, "organizer conflicts block every slot")
}

func TestFindAvailability_PreferenceLoadFailureUsesDefaults(t *testing.T) {
	driver := &memDriver{}
	st := store.New(driver, &profile.Profile{Mode: "dev", Driver: "sqlite"})
	svc := NewService(st, &fixedPrefs{err: errors.New("store down")}, nil, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	}

	resp, err := svc.FindAvailability(context.Background(), 1, "organizer@example.com", &AvailabilityRequest{
		Attendees:       []AttendeeInput{{Email: "a@example.com"}},
		StartDate:       "2025-06-23",
		EndDate:         "2025-06-23",
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AvailableSlots)
	// Default working hours start at 09:00.
	assert.Equal(t, 9, resp.AvailableSlots[0].Start.Hour())
}

func TestCreateMeeting(t *testing.T) {
	creator := &fakeCreator{}
	svc, driver := newTestService(nil, creator)

	start := time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	meeting, err := svc.CreateMeeting(context.Background(), 1, "organizer@example.com", &CreateMeetingRequest{
		Title:     "Design sync",
		Start:     start,
		End:       end,
		Attendees: []AttendeeInput{{Email: "colleague@example.com"}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, meeting.UID)
	assert.Equal(t, "evt-123", meeting.EventID)
	assert.Equal(t, "google", meeting.Provider)
	assert.Equal(t, start.Unix(), meeting.StartTs)

	// The provider sees the slot's exact boundary timestamps.
	require.NotNil(t, creator.last)
	assert.True(t, creator.last.Start.Equal(start))
	assert.True(t, creator.last.End.Equal(end))
	assert.Equal(t, []string{"organizer@example.com", "colleague@example.com"}, creator.last.Attendees)

	require.Len(t, driver.meetings, 1)
}

func TestCreateMeeting_ProviderFailure(t *testing.T) {
	svc, driver := newTestService(nil, &fakeCreator{err: errors.New("quota exceeded")})

	_, err := svc.CreateMeeting(context.Background(), 1, "organizer@example.com", &CreateMeetingRequest{
		Title: "Doomed",
		Start: time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 11, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
	assert.Empty(t, driver.meetings, "nothing recorded when booking fails")
}

func TestCreateMeeting_Validation(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	_, err := svc.CreateMeeting(context.Background(), 1, "organizer@example.com", &CreateMeetingRequest{
		Start: time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 11, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err, "missing title")

	_, err = svc.CreateMeeting(context.Background(), 1, "organizer@example.com", &CreateMeetingRequest{
		Title: "Backwards",
		Start: time.Date(2025, time.June, 23, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err, "inverted window")
}

func TestListUpcoming(t *testing.T) {
	svc, driver := newTestService(nil, nil)

	now := svc.now()
	driver.meetings = []*store.Meeting{
		{ID: 1, OrganizerID: 1, StartTs: now.Add(-time.Hour).Unix()},
		{ID: 2, OrganizerID: 1, StartTs: now.Add(time.Hour).Unix()},
		{ID: 3, OrganizerID: 2, StartTs: now.Add(time.Hour).Unix()},
	}

	list, err := svc.ListUpcoming(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int32(2), list[0].ID)
}

func TestListUpcomingEvents(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	// No provider configured.
	assert.Nil(t, svc.ListUpcomingEvents(context.Background(), 10))

	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	svc.lister = &fakeLister{events: []*UpcomingEvent{
		{EventID: "evt-1", Title: "Standup", Start: start, End: start.Add(30 * time.Minute)},
	}}
	events := svc.ListUpcomingEvents(context.Background(), 10)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].EventID)
	assert.Equal(t, "Standup", events[0].Title)

	// Provider failures leave the local listing usable.
	svc.lister = &fakeLister{err: errors.New("calendar unavailable")}
	assert.Nil(t, svc.ListUpcomingEvents(context.Background(), 10))
}
