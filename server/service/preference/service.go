// Package preference implements preference management on top of the store:
// get-or-create, partial update, and blocked-slot CRUD. The scheduling shape
// itself is defined in server/scheduler/preference.
package preference

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/confluo/confluo/internal/util"
	schedpref "github.com/confluo/confluo/server/scheduler/preference"
	"github.com/confluo/confluo/store"
)

// ErrSlotNotFound is returned when a blocked-slot id does not exist.
var ErrSlotNotFound = errors.New("blocked slot not found")

// Service manages per-user scheduling preferences.
type Service struct {
	store *store.Store
}

// NewService creates a preference service.
func NewService(store *store.Store) *Service {
	return &Service{store: store}
}

// Get returns the user's preferences, creating the default record on first
// access.
func (s *Service) Get(ctx context.Context, userID int32) (*schedpref.UserPreferences, error) {
	row, err := s.store.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load preferences")
	}
	if row == nil {
		prefs := schedpref.Default()
		if _, err := s.save(ctx, userID, prefs); err != nil {
			return nil, err
		}
		return prefs, nil
	}

	prefs := &schedpref.UserPreferences{}
	if err := json.Unmarshal([]byte(row.Preferences), prefs); err != nil {
		return nil, errors.Wrap(err, "corrupt preference document")
	}
	return prefs, nil
}

// Update applies a partial update: fields present in the patch document
// overwrite the stored ones, absent fields keep their current values. The
// merged record is validated before it is saved.
func (s *Service) Update(ctx context.Context, userID int32, patch []byte) (*schedpref.UserPreferences, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patch, prefs); err != nil {
		return nil, errors.Wrap(err, "malformed preference patch")
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return s.save(ctx, userID, prefs)
}

// AddBlockedSlot appends a blocked time slot and returns it with its
// generated id.
func (s *Service) AddBlockedSlot(ctx context.Context, userID int32, slot schedpref.BlockedTimeSlot) (*schedpref.BlockedTimeSlot, error) {
	slot.ID = util.GenShortUUID()
	slot.IsActive = true
	slot.CreatedTs = time.Now().Unix()
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs.BlockedTimeSlots = append(prefs.BlockedTimeSlots, slot)
	if _, err := s.save(ctx, userID, prefs); err != nil {
		return nil, err
	}
	return &slot, nil
}

// RemoveBlockedSlot deletes the blocked slot with the given id.
func (s *Service) RemoveBlockedSlot(ctx context.Context, userID int32, slotID string) error {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	kept := prefs.BlockedTimeSlots[:0]
	found := false
	for _, slot := range prefs.BlockedTimeSlots {
		if slot.ID == slotID {
			found = true
			continue
		}
		kept = append(kept, slot)
	}
	if !found {
		return ErrSlotNotFound
	}

	prefs.BlockedTimeSlots = kept
	_, err = s.save(ctx, userID, prefs)
	return err
}

// ToggleBlockedSlot flips the active flag of the blocked slot with the given
// id and returns the new state.
func (s *Service) ToggleBlockedSlot(ctx context.Context, userID int32, slotID string) (bool, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	for i := range prefs.BlockedTimeSlots {
		if prefs.BlockedTimeSlots[i].ID != slotID {
			continue
		}
		prefs.BlockedTimeSlots[i].IsActive = !prefs.BlockedTimeSlots[i].IsActive
		if _, err := s.save(ctx, userID, prefs); err != nil {
			return false, err
		}
		return prefs.BlockedTimeSlots[i].IsActive, nil
	}
	return false, ErrSlotNotFound
}

// Reset deletes the stored record; the next Get recreates the defaults.
func (s *Service) Reset(ctx context.Context, userID int32) error {
	return s.store.DeleteUserPreferences(ctx, &store.DeleteUserPreferences{UserID: userID})
}

func (s *Service) save(ctx context.Context, userID int32, prefs *schedpref.UserPreferences) (*schedpref.UserPreferences, error) {
	doc, err := json.Marshal(prefs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode preferences")
	}
	if _, err := s.store.UpsertUserPreferences(ctx, &store.UpsertUserPreferences{
		UserID:      userID,
		Preferences: string(doc),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to save preferences")
	}
	return prefs, nil
}
