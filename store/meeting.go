package store

// Meeting is the local record of a meeting booked through the service. The
// calendar provider owns the authoritative event; this row exists for
// listing and audit.
type Meeting struct {
	ID          int32
	UID         string
	OrganizerID int32
	Title       string
	Description string
	StartTs     int64
	EndTs       int64
	Attendees   string // JSON list of {email, optional}
	Provider    string // calendar provider name, e.g. "google"
	EventID     string // provider-side event identifier
	CreatedTs   int64
}

// FindMeeting specifies the conditions for listing meetings.
type FindMeeting struct {
	ID          *int32
	UID         *string
	OrganizerID *int32
	// StartAfter filters to meetings starting at or after this unix time.
	StartAfter *int64
	Limit      *int
}

// DeleteMeeting removes the local record. The provider-side event is the
// caller's problem.
type DeleteMeeting struct {
	ID int32
}
