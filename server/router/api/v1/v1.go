package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/plugin/ai"
	"github.com/confluo/confluo/server/middleware"
	"github.com/confluo/confluo/server/service/meeting"
	"github.com/confluo/confluo/server/service/preference"
	"github.com/confluo/confluo/store"
)

// Header names identifying the requester. Authentication proper sits in
// front of this service; these carry the already-authenticated identity.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
)

// APIV1Service wires the HTTP surface to the scheduling services.
type APIV1Service struct {
	Profile           *profile.Profile
	Store             *store.Store
	PreferenceService *preference.Service
	MeetingService    *meeting.Service
	Extractor         *ai.Extractor // nil when AI is disabled

	rateLimiter *middleware.RateLimiter
}

// NewAPIV1Service assembles the v1 API. extractor may be nil; the assistant
// endpoint then answers with rule-based extraction only.
func NewAPIV1Service(p *profile.Profile, st *store.Store, prefSvc *preference.Service, meetingSvc *meeting.Service, extractor *ai.Extractor) *APIV1Service {
	return &APIV1Service{
		Profile:           p,
		Store:             st,
		PreferenceService: prefSvc,
		MeetingService:    meetingSvc,
		Extractor:         extractor,
		rateLimiter:       middleware.NewRateLimiter(10, 20),
	}
}

// Register attaches all v1 routes to the echo server.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1", s.rateLimiter.Middleware(requesterKey))

	g.POST("/availability", s.FindAvailability)

	g.GET("/preferences", s.GetPreferences)
	g.PATCH("/preferences", s.UpdatePreferences)
	g.POST("/preferences/reset", s.ResetPreferences)
	g.POST("/preferences/blocked-slots", s.AddBlockedSlot)
	g.DELETE("/preferences/blocked-slots/:slotId", s.RemoveBlockedSlot)
	g.PATCH("/preferences/blocked-slots/:slotId/toggle", s.ToggleBlockedSlot)

	g.POST("/meetings", s.CreateMeeting)
	g.GET("/meetings", s.ListMeetings)

	g.POST("/assistant/messages", s.AssistantMessage)
}

// requester extracts the authenticated identity from request headers.
func requester(c echo.Context) (int32, string, error) {
	raw := c.Request().Header.Get(headerUserID)
	if raw == "" {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return int32(id), c.Request().Header.Get(headerUserEmail), nil
}

func requesterKey(c echo.Context) string {
	return c.Request().Header.Get(headerUserID)
}
