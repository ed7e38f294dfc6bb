package store

// UserPreferences is one user's scheduling preference document. The document
// itself is stored as JSON; the scheduler-facing shape lives in
// server/scheduler/preference.
type UserPreferences struct {
	UserID      int32
	Preferences string // JSON document
	CreatedTs   int64
	UpdatedTs   int64
}

// FindUserPreferences specifies the conditions for finding user preferences.
type FindUserPreferences struct {
	UserID *int32
}

// UpsertUserPreferences specifies the data for upserting user preferences.
type UpsertUserPreferences struct {
	UserID      int32
	Preferences string // JSON document
}

// DeleteUserPreferences resets a user back to the defaults on next access.
type DeleteUserPreferences struct {
	UserID int32
}
