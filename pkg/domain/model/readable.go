package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// readableKeys lists the object attributes tried, in order, when a Jira
// field value has to be shown as text.
var readableKeys = []string{
	"displayName", "key", "name", "filename", "value", "scope", "votes", "id", "mimeType", "closed",
}

// Readable renders a decoded Jira field value as human readable text.
// Nested select options are rendered as "Parent - Child".
func Readable(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, Readable(e))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(x, ", ")
	case map[string]any:
		for _, k := range readableKeys {
			if raw, ok := x[k]; ok && raw != nil {
				s := Readable(raw)
				if child, ok := x["child"]; ok && child != nil {
					s += " - " + Readable(child)
				}
				return s
			}
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+Readable(x[k]))
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return fmt.Sprint(x)
	}
}

// ObjectName returns the "name" attribute of a decoded Jira object such as
// status or issuetype. Plain strings are returned as is.
func ObjectName(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case map[string]any:
		if name, ok := x["name"].(string); ok {
			return name, true
		}
	}
	return "", false
}
