package model

import (
	"strings"

	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
)

// JiraUser is a user reference as embedded in Jira issues, comments and attachments.
type JiraUser struct {
	Key          string
	Name         string
	AccountID    string
	EmailAddress string
	DisplayName  string
	Active       bool
}

// String returns the most readable name available, matching how Jira renders a user.
func (u *JiraUser) String() string {
	if u == nil {
		return ""
	}
	for _, s := range []string{u.DisplayName, u.Key, u.Name, u.AccountID} {
		if s != "" {
			return s
		}
	}
	return ""
}

// UserFromField decodes a user-typed field value (reporter, assignee, custom user pickers).
func UserFromField(v any) *JiraUser {
	switch x := v.(type) {
	case *JiraUser:
		return x
	case map[string]any:
		str := func(k string) string {
			s, _ := x[k].(string)
			return s
		}
		active, _ := x["active"].(bool)
		u := &JiraUser{
			Key:          str("key"),
			Name:         str("name"),
			AccountID:    str("accountId"),
			EmailAddress: str("emailAddress"),
			DisplayName:  str("displayName"),
			Active:       active,
		}
		if *u == (JiraUser{}) {
			return nil
		}
		return u
	}
	return nil
}

// JiraAttachment is a file attached to an issue.
type JiraAttachment struct {
	ID         string
	Filename   string
	MimeType   string
	ContentURL string
	Created    string
	Size       int64
	Author     *JiraUser
}

// AuthorName returns the display form of the uploader, or "unknown".
func (a *JiraAttachment) AuthorName() string {
	if s := a.Author.String(); s != "" {
		return s
	}
	return "unknown"
}

// JiraComment is a comment on an issue, with rendered body and properties expanded.
type JiraComment struct {
	ID           string
	Body         string
	RenderedBody string
	Author       *JiraUser
	Created      string
	Updated      string
	Properties   map[string]any
}

// PublicCommentProperty is the service desk property telling whether a comment is internal.
const PublicCommentProperty = "sd.public.comment"

// Internal reports whether the comment was marked internal by the service desk.
// The flag may be a boolean or the string "true".
func (c *JiraComment) Internal() bool {
	prop, ok := c.Properties[PublicCommentProperty].(map[string]any)
	if !ok {
		return false
	}
	switch v := prop["internal"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// PreferredBody returns the rendered body when present, otherwise the plain body.
func (c *JiraComment) PreferredBody() string {
	if c.RenderedBody != "" {
		return c.RenderedBody
	}
	return c.Body
}

// JiraLinkType describes an issue link type with its two directional names.
type JiraLinkType struct {
	Name    string
	Inward  string
	Outward string
}

// JiraLinkedIssue is the other side of an issue link.
type JiraLinkedIssue struct {
	ID  string
	Key string
}

// JiraIssueLink is one link between the owning issue and another issue.
type JiraIssueLink struct {
	ID           string
	Type         JiraLinkType
	InwardIssue  *JiraLinkedIssue
	OutwardIssue *JiraLinkedIssue
}

// Side returns the linked issue and the directional type name for d.
// The issue is nil when the link has no relation in that direction.
func (l *JiraIssueLink) Side(d types.LinkDirection) (*JiraLinkedIssue, string) {
	switch d {
	case types.LinkDirectionOutward:
		return l.OutwardIssue, l.Type.Outward
	case types.LinkDirectionInward:
		return l.InwardIssue, l.Type.Inward
	}
	return nil, ""
}

// JiraIssue is a source issue with its raw field bag and the decoded
// collections the migration works with.
type JiraIssue struct {
	ID       string
	Key      string
	Summary  string
	Created  string
	Updated  string
	Fields   map[string]any
	Rendered map[string]any

	Reporter    *JiraUser
	Labels      []string
	Components  []string
	Attachments []*JiraAttachment
	Links       []*JiraIssueLink
}

// Field returns the raw value of a field. "id" and "key" address the issue itself.
func (i *JiraIssue) Field(name string) any {
	switch name {
	case "id":
		return i.ID
	case "key":
		return i.Key
	}
	if v, ok := i.Fields[name]; ok {
		return v
	}
	return nil
}

// RenderedField returns the rendered (HTML) form of a field if Jira provided one.
func (i *JiraIssue) RenderedField(name string) (any, bool) {
	v, ok := i.Rendered[name]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// Identifier returns the natural key of the issue addressed by field.
func (i *JiraIssue) Identifier(field string) string {
	return Readable(i.Field(field))
}
