// Package gcal implements the calendar provider against the Google Calendar
// API: free/busy queries for availability resolution and event insertion for
// booking.
package gcal

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/server/scheduler/interval"
	"github.com/confluo/confluo/server/service/meeting"
)

// Client wraps the Google Calendar service for Confluo's scheduling needs.
type Client struct {
	service *calendar.Service
}

// NewClient builds an authenticated calendar client from the profile's
// credentials and cached token files.
func NewClient(ctx context.Context, p *profile.Profile) (*Client, error) {
	config, err := oauthConfig(p.CalendarCredentialsFile)
	if err != nil {
		return nil, err
	}

	token, err := tokenFromFile(p.CalendarTokenFile)
	if err != nil {
		return nil, errors.Wrap(err, "could not load calendar token, run the auth flow first")
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calendar service")
	}

	return &Client{service: service}, nil
}

// FreeBusy returns the busy intervals of one attendee's primary calendar
// inside the window. It implements meeting.BusyProvider.
func (c *Client) FreeBusy(ctx context.Context, email string, window interval.TimeInterval) ([]interval.TimeInterval, error) {
	resp, err := c.service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: window.Start.Format(time.RFC3339),
		TimeMax: window.End.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: email}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "free/busy query failed for %s", email)
	}

	cal, ok := resp.Calendars[email]
	if !ok {
		return nil, nil
	}

	busy := make([]interval.TimeInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err1 := time.Parse(time.RFC3339, period.Start)
		end, err2 := time.Parse(time.RFC3339, period.End)
		if err1 != nil || err2 != nil || !start.Before(end) {
			slog.Warn("skipping malformed busy period",
				slog.String("email", email), slog.String("start", period.Start), slog.String("end", period.End))
			continue
		}
		busy = append(busy, interval.TimeInterval{Start: start, End: end})
	}
	return busy, nil
}

// CreateEvent books the event on the organizer's primary calendar and
// returns the provider event id. It implements meeting.EventCreator.
func (c *Client) CreateEvent(ctx context.Context, event *meeting.CalendarEvent) (string, error) {
	attendees := make([]*calendar.EventAttendee, 0, len(event.Attendees))
	for _, email := range event.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := c.service.Events.Insert("primary", &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start:       &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339)},
		Attendees:   attendees,
	}).Context(ctx).SendUpdates("all").Do()
	if err != nil {
		return "", errors.Wrap(err, "failed to insert calendar event")
	}
	return created.Id, nil
}

// ListUpcomingEvents reads upcoming events from the primary calendar,
// soonest first. All-day events carry no clock time and are skipped.
// It implements meeting.EventLister.
func (c *Client) ListUpcomingEvents(ctx context.Context, max int64) ([]*meeting.UpcomingEvent, error) {
	resp, err := c.service.Events.List("primary").
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(time.Now().Format(time.RFC3339)).
		OrderBy("startTime").
		MaxResults(max).
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list calendar events")
	}

	events := make([]*meeting.UpcomingEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Start == nil || item.Start.DateTime == "" || item.End == nil {
			continue
		}
		start, err1 := time.Parse(time.RFC3339, item.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, item.End.DateTime)
		if err1 != nil || err2 != nil {
			slog.Warn("skipping event with malformed times", slog.String("event", item.Id))
			continue
		}

		attendees := make([]string, 0, len(item.Attendees))
		for _, a := range item.Attendees {
			attendees = append(attendees, a.Email)
		}
		events = append(events, &meeting.UpcomingEvent{
			EventID:     item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Start:       start,
			End:         end,
			Attendees:   attendees,
		})
	}
	return events, nil
}

// oauthConfig reads the OAuth client credentials file.
func oauthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read calendar credentials file")
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse calendar credentials")
	}
	return config, nil
}

// tokenFromFile loads a cached OAuth token.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, errors.Wrap(err, "malformed token file")
	}
	return token, nil
}

// AuthURL returns the consent URL the user must visit to authorize the
// calendar scope for the given credentials.
func AuthURL(credentialsFile string) (string, error) {
	config, err := oauthConfig(credentialsFile)
	if err != nil {
		return "", err
	}
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// Authorize exchanges an authorization code for a token and caches it at
// tokenFile, where NewClient picks it up.
func Authorize(ctx context.Context, credentialsFile, tokenFile, authCode string) error {
	config, err := oauthConfig(credentialsFile)
	if err != nil {
		return err
	}

	token, err := config.Exchange(ctx, authCode)
	if err != nil {
		return errors.Wrap(err, "unable to exchange authorization code")
	}
	return SaveToken(tokenFile, token)
}

// SaveToken writes a token to a file path, used by the auth flow.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "unable to create token file")
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
