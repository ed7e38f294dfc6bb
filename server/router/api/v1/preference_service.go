package v1

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	schedpref "github.com/confluo/confluo/server/scheduler/preference"
	"github.com/confluo/confluo/server/service/preference"
)

// GetPreferences returns the requester's scheduling preferences, creating
// the default record on first access.
// GET /api/v1/preferences
func (s *APIV1Service) GetPreferences(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	prefs, err := s.PreferenceService.Get(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load preferences"})
	}
	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences merges a partial preference document into the stored
// record. Unknown fields are ignored; invalid values reject the whole patch.
// PATCH /api/v1/preferences
func (s *APIV1Service) UpdatePreferences(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	prefs, err := s.PreferenceService.Update(c.Request().Context(), userID, patch)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, prefs)
}

// ResetPreferences discards the stored record and recreates the defaults.
// POST /api/v1/preferences/reset
func (s *APIV1Service) ResetPreferences(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	if err := s.PreferenceService.Reset(c.Request().Context(), userID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reset preferences"})
	}
	prefs, err := s.PreferenceService.Get(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load preferences"})
	}
	return c.JSON(http.StatusOK, prefs)
}

// AddBlockedSlot stores a new blocked time slot for the requester.
// POST /api/v1/preferences/blocked-slots
func (s *APIV1Service) AddBlockedSlot(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	slot := schedpref.BlockedTimeSlot{}
	if err := c.Bind(&slot); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	created, err := s.PreferenceService.AddBlockedSlot(c.Request().Context(), userID, slot)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, created)
}

// RemoveBlockedSlot deletes a blocked time slot by ID.
// DELETE /api/v1/preferences/blocked-slots/:slotId
func (s *APIV1Service) RemoveBlockedSlot(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	slotID := c.Param("slotId")
	if err := s.PreferenceService.RemoveBlockedSlot(c.Request().Context(), userID, slotID); err != nil {
		if errors.Is(err, preference.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "blocked slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to remove blocked slot"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleBlockedSlot flips a blocked slot between active and inactive.
// PATCH /api/v1/preferences/blocked-slots/:slotId/toggle
func (s *APIV1Service) ToggleBlockedSlot(c echo.Context) error {
	userID, _, err := requester(c)
	if err != nil {
		return err
	}

	slotID := c.Param("slotId")
	active, err := s.PreferenceService.ToggleBlockedSlot(c.Request().Context(), userID, slotID)
	if err != nil {
		if errors.Is(err, preference.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "blocked slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to toggle blocked slot"})
	}
	return c.JSON(http.StatusOK, map[string]any{"id": slotID, "isActive": active})
}
