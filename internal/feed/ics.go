package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okent/rekindle/internal/store"
)

// WriteICS renders a user's published feed entries as an iCalendar
// document. Calendar apps subscribe to this over the HTTP API.
func WriteICS(w io.Writer, entries []store.FeedEntry) error {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//rekindle//suggestion feed//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")

	for _, e := range entries {
		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "UID:%s\r\n", e.UID)
		fmt.Fprintf(&b, "DTSTAMP:%s\r\n", icsTime(e.CreatedAt))
		fmt.Fprintf(&b, "DTSTART:%s\r\n", icsTime(e.StartAt))
		fmt.Fprintf(&b, "DTEND:%s\r\n", icsTime(e.EndAt))
		fmt.Fprintf(&b, "SUMMARY:%s\r\n", icsEscape(e.Summary))
		b.WriteString("END:VEVENT\r\n")
	}

	b.WriteString("END:VCALENDAR\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func icsTime(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format("20060102T150405Z")
}

// icsEscape escapes text per RFC 5545 section 3.3.11.
func icsEscape(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(s)
}
