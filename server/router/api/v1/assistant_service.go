package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confluo/confluo/plugin/ai"
	"github.com/confluo/confluo/server/service/meeting"
)

// AssistantMessageRequest carries one user utterance plus the meeting
// details gathered so far. The client echoes Data back on each turn, so the
// server stays stateless.
type AssistantMessageRequest struct {
	Message string          `json:"message"`
	Data    *ai.MeetingData `json:"data,omitempty"`
}

// AssistantMessageResponse is the assistant's turn.
type AssistantMessageResponse struct {
	Reply        string                        `json:"reply"`
	Data         *ai.MeetingData               `json:"data"`
	Complete     bool                          `json:"complete"`
	Availability *meeting.AvailabilityResponse `json:"availability,omitempty"`
}

// AssistantMessage advances a scheduling conversation: it extracts meeting
// details from the message, merges them with what the client already
// gathered, and once enough is known runs an availability search.
// POST /api/v1/assistant/messages
func (s *APIV1Service) AssistantMessage(c echo.Context) error {
	userID, email, err := requester(c)
	if err != nil {
		return err
	}

	req := &AssistantMessageRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	ctx := c.Request().Context()
	now := time.Now()

	var extracted *ai.MeetingData
	if s.Extractor != nil {
		extracted = s.Extractor.Extract(ctx, req.Message, now)
	} else {
		extracted = ai.ExtractWithRules(req.Message, now)
	}

	data := req.Data
	if data == nil {
		data = &ai.MeetingData{}
	}
	data.Merge(extracted)

	resp := &AssistantMessageResponse{Data: data}
	if !data.IsComplete() {
		resp.Reply = askForMissing(data)
		return c.JSON(http.StatusOK, resp)
	}

	// Name the meeting before the handoff to booking.
	if data.Title == "" {
		if s.Extractor != nil {
			data.Title, data.Description = s.Extractor.GenerateTitleAndDescription(ctx, data.Attendees, req.Message)
		} else {
			data.Title, data.Description = ai.FallbackTitleAndDescription(data.Attendees)
		}
	}
	data.WithDefaults()
	attendees := make([]meeting.AttendeeInput, 0, len(data.Attendees))
	for _, a := range data.Attendees {
		attendees = append(attendees, meeting.AttendeeInput{Email: a})
	}
	availability, err := s.MeetingService.FindAvailability(ctx, userID, email, &meeting.AvailabilityRequest{
		Attendees:       attendees,
		StartDate:       data.Date,
		EndDate:         data.Date,
		DurationMinutes: data.DurationMinutes,
	})
	if err != nil {
		resp.Reply = fmt.Sprintf("I could not search for open slots: %s. Could you rephrase the details?", err.Error())
		return c.JSON(http.StatusOK, resp)
	}

	resp.Complete = true
	resp.Availability = availability
	if len(availability.AvailableSlots) == 0 {
		resp.Reply = fmt.Sprintf("Everyone looks busy on %s. Want to try another day?", data.Date)
	} else {
		resp.Reply = fmt.Sprintf("I found %d open slots on %s. Pick one and I will send the invites.",
			len(availability.AvailableSlots), data.Date)
	}
	return c.JSON(http.StatusOK, resp)
}

func askForMissing(data *ai.MeetingData) string {
	missing := []string{}
	if len(data.Attendees) == 0 {
		missing = append(missing, "who should attend (email addresses)")
	}
	if data.Date == "" {
		missing = append(missing, "what day works")
	}
	if data.Time == "" {
		missing = append(missing, "what time you prefer")
	}
	return fmt.Sprintf("Got it so far. Could you tell me %s?", strings.Join(missing, " and "))
}
