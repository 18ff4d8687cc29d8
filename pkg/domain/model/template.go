package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Placeholders available in attachment match templates.
const (
	PlaceholderJiraBaseURL   = "jirabaseurl"
	PlaceholderJiraIssue     = "jiraissue"
	PlaceholderFilename      = "filename"
	PlaceholderFilenameURL   = "filenameurl"
	PlaceholderFilenameUnq   = "filenameunq"
	PlaceholderAttachmentURL = "attachmenturl"
	PlaceholderAttachmentID  = "attachmentid"
)

// ExpandTemplate substitutes {name} placeholders with values. "{{" and "}}"
// produce literal braces. An unknown or unterminated placeholder is an error.
func ExpandTemplate(tmpl string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", goerr.New("unterminated placeholder", goerr.V("template", tmpl))
			}
			name := tmpl[i+1 : i+1+end]
			v, ok := values[name]
			if !ok {
				return "", goerr.New("unknown placeholder", goerr.V("template", tmpl), goerr.V("placeholder", name))
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", goerr.New("single '}' in template", goerr.V("template", tmpl))
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
