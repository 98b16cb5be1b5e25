// Package ticket builds calendar tickets for approved registrations.
package ticket

import (
	"strings"
	"time"
)

const (
	stampLayout     = "20060102T150405Z"
	defaultDuration = time.Hour
)

// Details describes the calendar entry written into a ticket.
type Details struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	// End defaults to Start plus one hour when zero.
	End time.Time
	// URL is omitted from the ticket when empty.
	URL string
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`;`, `\;`,
	"\n", `\n`,
)

// Escape escapes a value for a SUMMARY, DESCRIPTION or LOCATION line.
func Escape(s string) string {
	return textEscaper.Replace(s)
}

// Build renders d as an iCalendar document with CRLF line endings and no trailing line break.
func Build(d Details) string {
	end := d.End
	if end.IsZero() {
		end = d.Start.Add(defaultDuration)
	}
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//EventSphere//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"DTSTART:" + d.Start.UTC().Format(stampLayout),
		"DTEND:" + end.UTC().Format(stampLayout),
		"SUMMARY:" + Escape(d.Title),
		"DESCRIPTION:" + Escape(d.Description),
		"LOCATION:" + Escape(d.Location),
	}
	if d.URL != "" {
		lines = append(lines, "URL:"+d.URL)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")
	return strings.Join(lines, "\r\n")
}
