package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/confluo/confluo/server/service/meeting"
)

const defaultMeetingListLimit = 20

// CreateMeeting books a slot and records the meeting.
// POST /api/v1/meetings
func (s *APIV1Service) CreateMeeting(c echo.Context) error {
	userID, email, err := requester(c)
	if err != nil {
		return err
	}

	req := &meeting.CreateMeetingRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	created, err := s.MeetingService.CreateMeeting(c.Request().Context(), userID, email, req)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to create meeting"})
	}
	return c.JSON(http.StatusCreated, created)
}

// ListMeetings returns the requester's upcoming meetings, soonest first:
// the local booking records plus, when a calendar provider is configured,
// the provider-side upcoming events.
// GET /api/v1/meetings
func (s *APIV1Service) ListMeetings(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	limit := defaultMeetingListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = n
	}

	ctx := c.Request().Context()
	meetings, err := s.MeetingService.ListUpcoming(ctx, userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list meetings"})
	}
	resp := map[string]any{"meetings": meetings}
	if events := s.MeetingService.ListUpcomingEvents(ctx, limit); events != nil {
		resp["calendarEvents"] = events
	}
	return c.JSON(http.StatusOK, resp)
}
