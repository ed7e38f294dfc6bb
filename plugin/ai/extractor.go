package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MeetingData is the structured scheduling intent pulled out of a chat
// message. Zero values mean "not mentioned yet".
type MeetingData struct {
	Title           string   `json:"title,omitempty"`
	Description     string   `json:"description,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`
	Date            string   `json:"date,omitempty"` // YYYY-MM-DD
	Time            string   `json:"time,omitempty"` // HH:MM, 24h
	DurationMinutes int      `json:"durationMinutes,omitempty"`
}

// DefaultDurationMinutes is the meeting length assumed when the user never
// mentions one.
const DefaultDurationMinutes = 60

// IsComplete reports whether enough is known to run an availability search.
func (d *MeetingData) IsComplete() bool {
	return d.Date != "" && d.Time != "" && len(d.Attendees) > 0
}

// Merge overlays update onto d: non-zero fields win, attendees are unioned.
func (d *MeetingData) Merge(update *MeetingData) {
	if update == nil {
		return
	}
	if update.Title != "" {
		d.Title = update.Title
	}
	if update.Description != "" {
		d.Description = update.Description
	}
	if update.Date != "" {
		d.Date = update.Date
	}
	if update.Time != "" {
		d.Time = update.Time
	}
	if update.DurationMinutes > 0 {
		d.DurationMinutes = update.DurationMinutes
	}
	for _, email := range update.Attendees {
		if !containsString(d.Attendees, email) {
			d.Attendees = append(d.Attendees, email)
		}
	}
}

// WithDefaults fills the optional fields a booking needs.
func (d *MeetingData) WithDefaults() {
	if d.DurationMinutes <= 0 {
		d.DurationMinutes = DefaultDurationMinutes
	}
	if d.Title == "" {
		d.Title, d.Description = FallbackTitleAndDescription(d.Attendees)
	}
}

// FallbackTitleAndDescription is the static naming used when no LLM is
// configured or its reply is unusable.
func FallbackTitleAndDescription(attendees []string) (string, string) {
	if len(attendees) == 0 {
		return "Meeting", "Scheduled through the chat assistant."
	}
	return fmt.Sprintf("Meeting with %s", strings.Join(attendees, ", ")),
		"Scheduled through the chat assistant."
}

const extractionPrompt = `Extract meeting details from the user's message.
Reply with ONLY a JSON object, no prose, with these fields (omit unknown ones):
{"title": string, "attendees": [email strings], "date": "YYYY-MM-DD", "time": "HH:MM" 24h, "durationMinutes": number}
Resolve relative dates against today, %s (%s).`

// Extractor turns chat messages into MeetingData, preferring the LLM and
// falling back to pattern matching when no backend is available or the
// reply is unusable.
type Extractor struct {
	llm LLMService // nil means rules only
}

// NewExtractor creates an extractor. llm may be nil.
func NewExtractor(llm LLMService) *Extractor {
	return &Extractor{llm: llm}
}

// Extract parses one user message. now anchors relative date words.
func (e *Extractor) Extract(ctx context.Context, message string, now time.Time) *MeetingData {
	if e.llm != nil {
		system := fmt.Sprintf(extractionPrompt, now.Format("2006-01-02"), now.Weekday())
		reply, err := e.llm.Chat(ctx, []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		})
		if err == nil {
			if data := parseExtraction(reply); data != nil {
				return data
			}
			slog.Warn("unparseable extraction reply, falling back to rules")
		} else {
			slog.Warn("llm extraction failed, falling back to rules", slog.String("error", err.Error()))
		}
	}
	return ExtractWithRules(message, now)
}

const namingPrompt = `Write a short professional meeting title and a one-sentence
description for a meeting with %s. The conversation so far: %q.
Reply with ONLY a JSON object: {"title": string, "description": string}`

// GenerateTitleAndDescription names a meeting from its attendee list and the
// conversation context. Without an LLM, or on an unusable reply, it returns
// the static fallback.
func (e *Extractor) GenerateTitleAndDescription(ctx context.Context, attendees []string, conversation string) (string, string) {
	if e.llm == nil {
		return FallbackTitleAndDescription(attendees)
	}

	prompt := fmt.Sprintf(namingPrompt, strings.Join(attendees, ", "), conversation)
	reply, err := e.llm.Chat(ctx, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		slog.Warn("llm naming failed, using static title", slog.String("error", err.Error()))
		return FallbackTitleAndDescription(attendees)
	}

	named := parseExtraction(reply)
	if named == nil || named.Title == "" {
		slog.Warn("unparseable naming reply, using static title")
		return FallbackTitleAndDescription(attendees)
	}
	if named.Description == "" {
		_, named.Description = FallbackTitleAndDescription(attendees)
	}
	return named.Title, named.Description
}

// parseExtraction decodes the LLM reply, tolerating markdown code fences.
func parseExtraction(reply string) *MeetingData {
	reply = strings.TrimSpace(reply)
	if idx := strings.Index(reply, "{"); idx >= 0 {
		if end := strings.LastIndex(reply, "}"); end > idx {
			reply = reply[idx : end+1]
		}
	}
	data := &MeetingData{}
	if err := json.Unmarshal([]byte(reply), data); err != nil {
		return nil
	}
	return data
}

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	hoursPattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	minutesPattern  = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?)\b`)
	clockPattern    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	clock24Pattern  = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	weekdayPatterns = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
)

// ExtractWithRules is the deterministic fallback extractor.
func ExtractWithRules(message string, now time.Time) *MeetingData {
	data := &MeetingData{}
	lower := strings.ToLower(message)

	data.Attendees = emailPattern.FindAllString(message, -1)

	if m := hoursPattern.FindStringSubmatch(message); m != nil {
		if hours, err := strconv.ParseFloat(m[1], 64); err == nil {
			data.DurationMinutes = int(hours * 60)
		}
	} else if m := minutesPattern.FindStringSubmatch(message); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			data.DurationMinutes = minutes
		}
	}

	data.Date = extractDate(lower, now)
	data.Time = extractClock(message)

	return data
}

func extractDate(lower string, now time.Time) string {
	switch {
	case strings.Contains(lower, "today"):
		return now.Format("2006-01-02")
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(lower, "next week"):
		return now.AddDate(0, 0, 7).Format("2006-01-02")
	}

	for name, wd := range weekdayPatterns {
		if !strings.Contains(lower, name) {
			continue
		}
		// "on Tuesday" means the next one, never today.
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days).Format("2006-01-02")
	}
	return ""
}

func extractClock(message string) string {
	if m := clockPattern.FindStringSubmatch(message); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ToLower(m[3])
		if meridiem == "pm" && hour < 12 {
			hour += 12
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
		if hour > 23 || minute > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	if m := clock24Pattern.FindStringSubmatch(message); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
