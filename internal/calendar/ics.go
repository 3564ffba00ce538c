package calendar

import (
	"fmt"
	"strings"
	"time"
)

const icsTimeLayout = "20060102T150405Z"

// BuildICS renders events as one VCALENDAR. Each event with a lead time
// gets a display VALARM.
func BuildICS(events []Event, now time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//studyd//Study Sessions//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	for _, ev := range events {
		title := strings.TrimSpace(ev.Title)
		if title == "" {
			title = "Study session"
		}
		uid := fmt.Sprintf("%s@studyd", strings.TrimSpace(ev.ID))
		if strings.TrimSpace(ev.ID) == "" {
			uid = fmt.Sprintf("event-export-%d@studyd", ev.Start.UnixNano())
		}
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+escapeICSText(uid),
			"DTSTAMP:"+now.UTC().Format(icsTimeLayout),
			"SUMMARY:"+escapeICSText(title),
			"DTSTART:"+ev.Start.UTC().Format(icsTimeLayout),
			"DTEND:"+ev.End.UTC().Format(icsTimeLayout),
		)
		if ev.LeadMinutes > 0 {
			lines = append(lines,
				"BEGIN:VALARM",
				"ACTION:DISPLAY",
				"DESCRIPTION:"+escapeICSText(title),
				fmt.Sprintf("TRIGGER:-PT%dM", ev.LeadMinutes),
				"END:VALARM",
			)
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}
