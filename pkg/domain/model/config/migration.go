package config

import (
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
)

// Default values applied when the configuration leaves a key unset.
const (
	DefaultIssueKeyJira   = "id"
	DefaultIssueKeyZammad = "number"
	DefaultUserKeyJira    = "emailAddress"
	DefaultUserKeyZammad  = "email"
	NormalLinkType        = "normal"
)

// DefaultAgentRoleKeys is the Zammad "Agent" role.
var DefaultAgentRoleKeys = []int64{2}

// Migration is the merged migration configuration.
type Migration struct {
	Jira       Jira
	Zammad     Zammad
	Mapping    Mapping
	IssueLinks IssueLinks
}

// Jira holds the source connection settings.
type Jira struct {
	BaseURL   string
	AuthUser  string
	AuthPass  string
	AuthToken string
	Project   string
	// Verify enables TLS certificate verification.
	Verify bool
}

// Zammad holds the destination connection settings.
type Zammad struct {
	BaseURL   string
	AuthUser  string
	AuthPass  string
	AuthToken string
	Verify    bool
}

// KeyMapping pairs the field that identifies a record on each side.
type KeyMapping struct {
	Jira   string
	Zammad string
}

// IssueMapping drives the issue to ticket transform.
type IssueMapping struct {
	Key KeyMapping
	// Fields maps a Jira field name to a Zammad field name. "article." addresses the initial article.
	Fields map[string]string
	// Constants are written after Fields with the same addressing.
	Constants map[string]any
	// Transforms selects a built-in value hook per Jira field.
	Transforms map[string]types.ValueTransform
}

// CommentMapping drives the comment to article transform.
type CommentMapping struct {
	Constants map[string]any
}

// UserMapping drives user lookup and creation.
type UserMapping struct {
	Key           KeyMapping
	Constants     map[string]any
	AgentRoleKeys []int64
}

// AttachmentMapping holds the templates used to find attachment references in text.
type AttachmentMapping struct {
	MatchLink   []string
	MatchInline []string
	Replace     map[string]string
}

// ValueTable translates Jira values of one field into Zammad values.
type ValueTable struct {
	Values  map[string]any
	Default any
}

// Mapping is the "mapping" section of the configuration.
type Mapping struct {
	Issue       IssueMapping
	Comment     CommentMapping
	User        UserMapping
	DefaultTags []string
	Attachment  AttachmentMapping
	// ValueTables is keyed by Jira field name (mapping.<field>.values / .default).
	ValueTables map[string]ValueTable
	// ToLower lowercases values before the table lookup (mapping.mapping2lower).
	ToLower bool
}

// ValueTable returns the table configured for a Jira field.
func (x *Mapping) ValueTable(field string) (ValueTable, bool) {
	t, ok := x.ValueTables[field]
	return t, ok
}

// IssueLinks is the "issuelinks" section of the configuration.
type IssueLinks struct {
	Directions []types.LinkDirection
	// Types maps a Zammad link type to a Jira directional link name.
	Types                    map[string]string
	MatchAllUnmappedToNormal bool
}
