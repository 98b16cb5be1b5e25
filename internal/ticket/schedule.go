package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"eventsphere/internal/domain"
)

// ParseClock combines a calendar date with a clock string such as "10:00 AM", "2:30 pm" or "22:00".
// Only the year, month and day of date are used; the result is in UTC.
// Errors wrap domain.ErrInvalidEventSchedule.
func ParseClock(date time.Time, clock string) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("%w: missing date", domain.ErrInvalidEventSchedule)
	}
	parts := strings.Fields(clock)
	if len(parts) == 0 || len(parts) > 2 {
		return time.Time{}, fmt.Errorf("%w: malformed time %q", domain.ErrInvalidEventSchedule, clock)
	}
	hm := strings.Split(parts[0], ":")
	if len(hm) < 2 {
		return time.Time{}, fmt.Errorf("%w: malformed time %q", domain.ErrInvalidEventSchedule, clock)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: hour in %q", domain.ErrInvalidEventSchedule, clock)
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: minute in %q", domain.ErrInvalidEventSchedule, clock)
	}

	if len(parts) == 2 {
		switch strings.ToUpper(parts[1]) {
		case "AM":
			if hour == 12 {
				hour = 0
			}
		case "PM":
			if hour != 12 {
				hour += 12
			}
		default:
			return time.Time{}, fmt.Errorf("%w: unknown period in %q", domain.ErrInvalidEventSchedule, clock)
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: time out of range %q", domain.ErrInvalidEventSchedule, clock)
	}

	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, time.UTC), nil
}

// ForEvent builds the ticket for an approved registration of e. The end time is the event's
// end time when it parses and falls after the start, otherwise one hour after the start.
func ForEvent(e *domain.Event, frontendURL string) (string, error) {
	start, err := ParseClock(e.Date, e.StartTime)
	if err != nil {
		return "", err
	}
	var end time.Time
	if e.EndTime != "" {
		if t, err := ParseClock(e.Date, e.EndTime); err == nil && t.After(start) {
			end = t
		}
	}
	url := ""
	if frontendURL != "" {
		url = strings.TrimSuffix(frontendURL, "/") + "/events/" + e.ID
	}
	return Build(Details{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Venue,
		Start:       start,
		End:         end,
		URL:         url,
	}), nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// FileName returns the download name of a ticket for an event title.
func FileName(title string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(title), "_") + "_ticket.ics"
}

// EventFileName returns the download name of an event's public calendar file.
func EventFileName(eventID string) string {
	return "event-" + eventID + ".ics"
}
