package store

import (
	"context"
	"fmt"
	"time"

	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// preferenceCache caches preference documents keyed by user id. The
	// availability path reads preferences on every request.
	preferenceCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
		OnEviction:      nil,
	}

	return &Store{
		driver:          driver,
		profile:         profile,
		cacheConfig:     cacheConfig,
		preferenceCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.preferenceCache.Close()
	return s.driver.Close()
}

func preferenceCacheKey(userID int32) string {
	return fmt.Sprintf("prefs:%d", userID)
}

func (s *Store) UpsertUserPreferences(ctx context.Context, upsert *UpsertUserPreferences) (*UserPreferences, error) {
	result, err := s.driver.UpsertUserPreferences(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.preferenceCache.Set(ctx, preferenceCacheKey(result.UserID), result)
	return result, nil
}

// GetUserPreferences returns the stored preference row, or nil when the user
// has never saved preferences.
func (s *Store) GetUserPreferences(ctx context.Context, find *FindUserPreferences) (*UserPreferences, error) {
	if find.UserID != nil {
		if value, ok := s.preferenceCache.Get(ctx, preferenceCacheKey(*find.UserID)); ok {
			if prefs, ok := value.(*UserPreferences); ok {
				return prefs, nil
			}
		}
	}
	result, err := s.driver.GetUserPreferences(ctx, find)
	if err != nil {
		return nil, err
	}
	if result != nil {
		s.preferenceCache.Set(ctx, preferenceCacheKey(result.UserID), result)
	}
	return result, nil
}

func (s *Store) DeleteUserPreferences(ctx context.Context, delete *DeleteUserPreferences) error {
	if err := s.driver.DeleteUserPreferences(ctx, delete); err != nil {
		return err
	}
	s.preferenceCache.Delete(ctx, preferenceCacheKey(delete.UserID))
	return nil
}

func (s *Store) CreateMeeting(ctx context.Context, create *Meeting) (*Meeting, error) {
	return s.driver.CreateMeeting(ctx, create)
}

func (s *Store) ListMeetings(ctx context.Context, find *FindMeeting) ([]*Meeting, error) {
	return s.driver.ListMeetings(ctx, find)
}

func (s *Store) DeleteMeeting(ctx context.Context, delete *DeleteMeeting) error {
	return s.driver.DeleteMeeting(ctx, delete)
}
