package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/server/service/meeting"
	"github.com/confluo/confluo/server/service/preference"
	"github.com/confluo/confluo/store"
)

// memDriver is an in-memory store.Driver for handler tests.
type memDriver struct {
	prefs    map[int32]*store.UserPreferences
	meetings []*store.Meeting
	nextID   int32
}

func newMemDriver() *memDriver {
	return &memDriver{prefs: map[int32]*store.UserPreferences{}}
}

func (d *memDriver) GetDB() *sql.DB                              { return nil }
func (d *memDriver) Close() error                                { return nil }
func (d *memDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *memDriver) UpsertUserPreferences(_ context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	row := &store.UserPreferences{
		UserID:      upsert.UserID,
		Preferences: upsert.Preferences,
		UpdatedTs:   time.Now().Unix(),
	}
	d.prefs[upsert.UserID] = row
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
	row := *create
	d.nextID++
	row.ID = d.nextID
	row.CreatedTs = time.Now().Unix()
	d.meetings = append(d.meetings, &row)
	return &row, nil
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

func newTestAPI(t *testing.T) *APIV1Service {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite"}
	st := store.New(newMemDriver(), p)
	t.Cleanup(func() { _ = st.Close() })
	prefSvc := preference.NewService(st)
	meetingSvc := meeting.NewService(st, prefSvc, nil, nil, nil)
	return NewAPIV1Service(p, st, prefSvc, meetingSvc, nil)
}

func newTestContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(headerUserID, "1")
	req.Header.Set(headerUserEmail, "organizer@example.com")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequesterIdentity(t *testing.T) {
	api := newTestAPI(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences", nil)
	rec := httptest.NewRecorder()
	err := api.GetPreferences(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/preferences", nil)
	req.Header.Set(headerUserID, "not-a-number")
	rec = httptest.NewRecorder()
	err = api.GetPreferences(e.NewContext(req, rec))
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetPreferencesCreatesDefaults(t *testing.T) {
	api := newTestAPI(t)

	c, rec := newTestContext(http.MethodGet, "/api/v1/preferences", "")
	require.NoError(t, api.GetPreferences(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "America/Mexico_City", body["timeZone"])
	hours := body["workingHours"].(map[string]any)
	assert.Equal(t, float64(9), hours["start"])
	assert.Equal(t, float64(17), hours["end"])
}

func TestUpdatePreferences(t *testing.T) {
	api := newTestAPI(t)

	c, rec := newTestContext(http.MethodPatch, "/api/v1/preferences", `{"timeZone":"UTC","workingHours":{"start":8,"end":16}}`)
	require.NoError(t, api.UpdatePreferences(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UTC", body["timeZone"])

	c, rec = newTestContext(http.MethodPatch, "/api/v1/preferences", `{"workingHours":{"start":20,"end":8}}`)
	require.NoError(t, api.UpdatePreferences(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlockedSlotLifecycle(t *testing.T) {
	api := newTestAPI(t)

	c, rec := newTestContext(http.MethodPost, "/api/v1/preferences/blocked-slots",
		`{"title":"focus time","start":"2031-06-02T13:00:00Z","end":"2031-06-02T15:00:00Z"}`)
	require.NoError(t, api.AddBlockedSlot(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	created := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	slotID := created["id"].(string)
	require.NotEmpty(t, slotID)
	assert.Equal(t, true, created["isActive"])

	c, rec = newTestContext(http.MethodPatch, "/api/v1/preferences/blocked-slots/"+slotID+"/toggle", "")
	c.SetParamNames("slotId")
	c.SetParamValues(slotID)
	require.NoError(t, api.ToggleBlockedSlot(c))
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.Equal(t, false, toggled["isActive"])

	c, rec = newTestContext(http.MethodDelete, "/api/v1/preferences/blocked-slots/"+slotID, "")
	c.SetParamNames("slotId")
	c.SetParamValues(slotID)
	require.NoError(t, api.RemoveBlockedSlot(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newTestContext(http.MethodDelete, "/api/v1/preferences/blocked-slots/"+slotID, "")
	c.SetParamNames("slotId")
	c.SetParamValues(slotID)
	require.NoError(t, api.RemoveBlockedSlot(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindAvailabilityEndpoint(t *testing.T) {
	api := newTestAPI(t)

	c, rec := newTestContext(http.MethodPost, "/api/v1/availability",
		`{"attendees":[{"email":"bob@example.com"}],"startDate":"2031-06-02","endDate":"2031-06-02","durationMinutes":30}`)
	require.NoError(t, api.FindAvailability(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := meeting.AvailabilityResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// No calendar provider is wired, so a full workday yields the cap.
	assert.Len(t, body.AvailableSlots, 10)
	require.Len(t, body.BusyTimes, 2)

	c, rec = newTestContext(http.MethodPost, "/api/v1/availability", `{"startDate":"2031-06-02","endDate":"2031-06-02","durationMinutes":30}`)
	require.NoError(t, api.FindAvailability(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndListMeetings(t *testing.T) {
	api := newTestAPI(t)

	c, rec := newTestContext(http.MethodPost, "/api/v1/meetings",
		`{"title":"Planning","start":"2031-06-02T10:00:00Z","end":"2031-06-02T10:30:00Z","attendees":[{"email":"bob@example.com"}]}`)
	require.NoError(t, api.CreateMeeting(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	created := store.Meeting{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, int32(1), created.OrganizerID)

	c, rec = newTestContext(http.MethodPost, "/api/v1/meetings",
		`{"start":"2031-06-02T10:00:00Z","end":"2031-06-02T10:30:00Z","attendees":[{"email":"bob@example.com"}]}`)
	require.NoError(t, api.CreateMeeting(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/api/v1/meetings", "")
	require.NoError(t, api.ListMeetings(c))
	require.Equal(t, http.StatusOK, rec.Code)
	listed := map[string][]*store.Meeting{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed["meetings"], 1)
	assert.Equal(t, "Planning", listed["meetings"][0].Title)

	c, rec = newTestContext(http.MethodGet, "/api/v1/meetings?limit=zero", "")
	require.NoError(t, api.ListMeetings(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistantMessage(t *testing.T) {
	api := newTestAPI(t)

	c, rec := newTestContext(http.MethodPost, "/api/v1/assistant/messages", `{"message":"   "}`)
	require.NoError(t, api.AssistantMessage(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/api/v1/assistant/messages", `{"message":"I need to set up a meeting"}`)
	require.NoError(t, api.AssistantMessage(c))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := AssistantMessageResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Complete)
	assert.Contains(t, resp.Reply, "who should attend")

	c, rec = newTestContext(http.MethodPost, "/api/v1/assistant/messages",
		`{"message":"invite bob@example.com for 30 minutes","data":{"date":"2031-06-02","time":"10:00"}}`)
	require.NoError(t, api.AssistantMessage(c))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = AssistantMessageResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Complete)
	assert.Contains(t, resp.Data.Attendees, "bob@example.com")
	assert.Equal(t, "Meeting with bob@example.com", resp.Data.Title)
	assert.NotEmpty(t, resp.Data.Description)
	require.NotNil(t, resp.Availability)
	assert.NotEmpty(t, resp.Availability.AvailableSlots)
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	api := newTestAPI(t)

	handler := api.rateLimiter.Middleware(requesterKey)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()
	var lastErr error
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences", nil)
		req.Header.Set(headerUserID, "1")
		rec := httptest.NewRecorder()
		lastErr = handler(e.NewContext(req, rec))
	}
	var httpErr *echo.HTTPError
	require.ErrorAs(t, lastErr, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}
