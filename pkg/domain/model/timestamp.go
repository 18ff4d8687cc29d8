package model

import "time"

var jiraTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseJiraTime parses the timestamp formats emitted by the Jira REST API.
func ParseJiraTime(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range jiraTimeLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ZammadTime converts a Jira timestamp to the RFC 3339 form Zammad stores.
// Unrecognized input is returned unchanged and left for Zammad to interpret.
func ZammadTime(ts string) string {
	t, ok := ParseJiraTime(ts)
	if !ok {
		return ts
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
