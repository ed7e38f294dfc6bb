package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/confluo/confluo/server/service/meeting"
)

// FindAvailability suggests open slots for the requested attendees.
// POST /api/v1/availability
func (s *APIV1Service) FindAvailability(c echo.Context) error {
	userID, email, err := requester(c)
	if err != nil {
		return err
	}

	req := &meeting.AvailabilityRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	resp, err := s.MeetingService.FindAvailability(c.Request().Context(), userID, email, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	slog.Debug("availability resolved", "user", userID, "slots", len(resp.AvailableSlots))
	return c.JSON(http.StatusOK, resp)
}
