package preference

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confluo/confluo/internal/profile"
	schedpref "github.com/confluo/confluo/server/scheduler/preference"
	"github.com/confluo/confluo/store"
)

// memDriver is an in-memory store.Driver for service tests.
type memDriver struct {
	prefs    map[int32]*store.UserPreferences
	meetings []*store.Meeting
	nextID   int32
}

func newMemDriver() *memDriver {
	return &memDriver{prefs: map[int32]*store.UserPreferences{}, nextID: 1}
}

func (d *memDriver) GetDB() *sql.DB { return nil }
func (d *memDriver) Close() error   { return nil }

func (d *memDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *memDriver) UpsertUserPreferences(_ context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	now := time.Now().Unix()
	row, ok := d.prefs[upsert.UserID]
	if !ok {
		row = &store.UserPreferences{UserID: upsert.UserID, CreatedTs: now}
		d.prefs[upsert.UserID] = row
	}
	row.Preferences = upsert.Preferences
	row.UpdatedTs = now
	return row, nil
}

func (d *memDriver) GetUserPreferences(_ context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error) {
	if find.UserID == nil {
		return nil, nil
	}
	return d.prefs[*find.UserID], nil
}

func (d *memDriver) DeleteUserPreferences(_ context.Context, del *store.DeleteUserPreferences) error {
	delete(d.prefs, del.UserID)
	return nil
}

func (d *memDriver) CreateMeeting(_ context.Context, create *store.Meeting) (*store.Meeting, error) {
	meeting := *create
	meeting.ID = d.nextID
	d.nextID++
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
		list = append(list, m)
	}
	return list, nil
}

func (d *memDriver) DeleteMeeting(_ context.Context, delete *store.DeleteMeeting) error {
	kept := d.meetings[:0]
	for _, m := range d.meetings {
		if m.ID != delete.ID {
			kept = append(kept, m)
		}
	}
	d.meetings = kept
	return nil
}

func newTestService() *Service {
	st := store.New(newMemDriver(), &profile.Profile{Mode: "dev", Driver: "sqlite"})
	return NewService(st)
}

func TestGet_CreatesDefaultsOnFirstAccess(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	prefs, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, prefs.WorkingHours.Start)
	assert.Equal(t, 17, prefs.WorkingHours.End)
	require.NotNil(t, prefs.WorkingDays)
	assert.False(t, prefs.WorkingDays[time.Sunday])
	assert.True(t, prefs.WorkingDays[time.Monday])

	// Round trip through the stored JSON document.
	again, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, prefs, again)
}

func TestUpdate_PartialPatch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	updated, err := svc.Update(ctx, 1, []byte(`{"workingHours":{"start":10,"end":16}}`))
	require.NoError(t, err)
	assert.Equal(t, 10, updated.WorkingHours.Start)
	assert.Equal(t, 16, updated.WorkingHours.End)
	// Untouched fields keep their defaults.
	assert.Equal(t, schedpref.DefaultTimezone, updated.TimeZone)
	assert.Equal(t, 2, updated.MinimumNotice)
}

func TestUpdate_RejectsInvalidPatch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, []byte(`{"workingHours":{"start":18,"end":9}}`))
	assert.Error(t, err)

	_, err = svc.Update(ctx, 1, []byte(`{"timeZone":"Nowhere/Invalid"}`))
	assert.Error(t, err)

	// A failed update leaves the stored record untouched.
	prefs, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, prefs.WorkingHours.Start)
}

func TestBlockedSlotLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	slot, err := svc.AddBlockedSlot(ctx, 1, schedpref.BlockedTimeSlot{
		Title: "Focus time",
		Start: time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.True(t, slot.IsActive)

	active, err := svc.ToggleBlockedSlot(ctx, 1, slot.ID)
	require.NoError(t, err)
	assert.False(t, active)

	active, err = svc.ToggleBlockedSlot(ctx, 1, slot.ID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, svc.RemoveBlockedSlot(ctx, 1, slot.ID))

	prefs, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, prefs.BlockedTimeSlots)

	assert.ErrorIs(t, svc.RemoveBlockedSlot(ctx, 1, "missing"), ErrSlotNotFound)
	_, err = svc.ToggleBlockedSlot(ctx, 1, "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestAddBlockedSlot_RejectsUnknownRecurrence(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddBlockedSlot(ctx, 1, schedpref.BlockedTimeSlot{
		Title: "bad",
		Start: time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.AddBlockedSlot(ctx, 1, schedpref.BlockedTimeSlot{
		Title: "inverted",
		Start: time.Date(2025, time.June, 23, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 23, 10, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, []byte(`{"minimumNotice":4}`))
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx, 1))

	prefs, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, prefs.MinimumNotice, "defaults recreated after reset")
}
