package usecase

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
)

// Zammad ticket fields holding user ids.
const (
	customerField = "customer_id"
	ownerField    = "owner_id"
)

var articleAuthorFields = []string{"origin_by_id", "updated_by_id", "created_by_id"}

// FieldMapper turns a Jira issue into a Zammad ticket draft.
type FieldMapper struct {
	identity *IdentityResolver
	mapping  config.Mapping
	hooks    map[string]ValueHook
}

// FieldMapperOption configures FieldMapper
type FieldMapperOption func(*FieldMapper)

// WithValueHook registers hook for a Jira field, replacing any built-in.
func WithValueHook(field string, hook ValueHook) FieldMapperOption {
	return func(m *FieldMapper) {
		m.hooks[field] = hook
	}
}

// NewFieldMapper creates a FieldMapper. Transforms named in the mapping
// override the defaults for status and issuetype.
func NewFieldMapper(identity *IdentityResolver, mapping config.Mapping, opts ...FieldMapperOption) *FieldMapper {
	m := &FieldMapper{
		identity: identity,
		mapping:  mapping,
		hooks:    make(map[string]ValueHook),
	}
	for field, t := range defaultTransforms {
		m.hooks[field] = builtinHook(t)
	}
	for field, t := range mapping.Issue.Transforms {
		if hook := builtinHook(t); hook != nil {
			m.hooks[field] = hook
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *FieldMapper) issueKeys() (jiraKey, zammadKey string) {
	return cmp.Or(m.mapping.Issue.Key.Jira, config.DefaultIssueKeyJira),
		cmp.Or(m.mapping.Issue.Key.Zammad, config.DefaultIssueKeyZammad)
}

// TransformIssue builds the ticket draft for issue, including its initial article.
func (m *FieldMapper) TransformIssue(ctx context.Context, issue *model.JiraIssue) (*model.TicketDraft, error) {
	jiraKey, zammadKey := m.issueKeys()

	draft := model.NewTicketDraft()
	draft.Set(zammadKey, issue.Identifier(jiraKey))
	draft.Set("created_at", model.ZammadTime(issue.Created))
	draft.Set("updated_at", model.ZammadTime(issue.Updated))
	draft.Article.Set("created_at", model.ZammadTime(issue.Created))
	draft.Article.Set("updated_at", model.ZammadTime(issue.Updated))

	var note strings.Builder
	for _, src := range slices.Sorted(maps.Keys(m.mapping.Issue.Fields)) {
		dst := m.mapping.Issue.Fields[src]
		if dst == "" {
			continue
		}

		raw := issue.Field(src)
		if src == "description" {
			if rendered, ok := issue.RenderedField(src); ok {
				raw = rendered
			}
		}

		v, err := m.TransformValue(ctx, dst, src, raw)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to transform field",
				goerr.V(IssueKey, issue.Key), goerr.V(FieldKey, src))
		}

		if v == nil {
			if dst != customerField && dst != ownerField {
				continue
			}
			me, err := m.identity.ServiceUser(ctx)
			if err != nil {
				return nil, goerr.Wrap(err, "no fallback user", goerr.V(IssueKey, issue.Key), goerr.V(FieldKey, dst))
			}
			logging.From(ctx).Info("Replacing unresolved user by service user", "issue", issue.Key, "field", dst)
			v = me.ID
			note.WriteString("\n\noriginal " + dst + " : " + model.Readable(issue.Field(src)))
		}
		draft.Set(dst, v)
	}

	for _, name := range slices.Sorted(maps.Keys(m.mapping.Issue.Constants)) {
		draft.Set(name, m.mapping.Issue.Constants[name])
	}

	if customer := draft.Get(customerField); customer != nil {
		for _, f := range articleAuthorFields {
			draft.Article.Set(f, customer)
		}
	}

	if note.Len() > 0 {
		draft.Article.AppendBody(note.String())
	}
	draft.Article.EnsureBody()
	return draft, nil
}

// TransformValue converts the value of Jira field src for Zammad field dst.
// A nil result means the field should not be set.
func (m *FieldMapper) TransformValue(ctx context.Context, dst, src string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	if hook, ok := m.hooks[src]; ok {
		v, done, err := hook(ctx, value)
		if err != nil {
			return nil, goerr.Wrap(err, "value hook failed", goerr.V(FieldKey, src))
		}
		if done {
			return v, nil
		}
		value = v
	}

	if dst == customerField || dst == ownerField {
		return m.resolveUser(ctx, value, dst == ownerField), nil
	}

	if table, ok := m.mapping.ValueTable(src); ok {
		return m.TransformValueViaTable(table, value), nil
	}
	return value, nil
}

// TransformValueViaTable looks value up in table, falling back to its default.
// An empty table maps everything to nil.
func (m *FieldMapper) TransformValueViaTable(table config.ValueTable, value any) any {
	if len(table.Values) == 0 {
		return nil
	}
	key := model.Readable(value)
	if m.mapping.ToLower {
		key = strings.ToLower(key)
	}
	if v, ok := table.Values[key]; ok {
		return v
	}
	return table.Default
}

// resolveUser returns the Zammad user id for a Jira user value, or nil.
func (m *FieldMapper) resolveUser(ctx context.Context, value any, agent bool) any {
	id, err := m.identity.SourceIdentity(ctx, model.UserFromField(value))
	if err != nil {
		logging.From(ctx).Warn("Cannot map jira user", "user", model.Readable(value), "error", err.Error())
		return nil
	}
	user, err := m.identity.EnsureUser(ctx, id, agent)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to ensure zammad user")
		return nil
	}
	return user.ID
}
