package usecase

import (
	"context"
	"encoding/base64"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
	"github.com/secmon-lab/jira2zammad/pkg/service/jira"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
)

// AttachmentReconciler tracks the attachments of one issue that have not
// been referenced by any text yet. An attachment is consumed by the first
// body of its own author that references it.
type AttachmentReconciler struct {
	jira      jira.Service
	identity  *IdentityResolver
	mapping   config.AttachmentMapping
	constants map[string]any
	baseURL   string
	issueKey  string

	pool    []*model.JiraAttachment
	data    map[string][]byte
	authors map[string]types.Identity
}

// NewAttachmentReconciler creates a reconciler over the attachments of issue.
func NewAttachmentReconciler(jiraSvc jira.Service, identity *IdentityResolver, cfg *config.Migration, issue *model.JiraIssue) *AttachmentReconciler {
	return &AttachmentReconciler{
		jira:      jiraSvc,
		identity:  identity,
		mapping:   cfg.Mapping.Attachment,
		constants: cfg.Mapping.Comment.Constants,
		baseURL:   cfg.Jira.BaseURL,
		issueKey:  issue.Key,
		pool:      slices.Clone(issue.Attachments),
		data:      make(map[string][]byte),
		authors:   make(map[string]types.Identity),
	}
}

// Remaining returns the attachments no text referenced.
func (r *AttachmentReconciler) Remaining() []*model.JiraAttachment {
	return slices.Clone(r.pool)
}

// templateValues returns the placeholder values for a, unescaped.
func (r *AttachmentReconciler) templateValues(a *model.JiraAttachment) map[string]string {
	unq, err := url.QueryUnescape(a.Filename)
	if err != nil {
		unq = a.Filename
	}
	return map[string]string{
		model.PlaceholderJiraBaseURL:   r.baseURL,
		model.PlaceholderJiraIssue:     r.issueKey,
		model.PlaceholderFilename:      a.Filename,
		model.PlaceholderFilenameURL:   url.QueryEscape(a.Filename),
		model.PlaceholderFilenameUnq:   unq,
		model.PlaceholderAttachmentURL: a.ContentURL,
		model.PlaceholderAttachmentID:  a.ID,
	}
}

func transformValues(values map[string]string, fn func(string) string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = fn(v)
	}
	return out
}

func (r *AttachmentReconciler) compile(tmpl string, values map[string]string) (*regexp.Regexp, error) {
	expr, err := model.ExpandTemplate(tmpl, values)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid attachment pattern", goerr.V("pattern", expr))
	}
	return re, nil
}

// CheckReferences looks for references to the author's attachments in body.
// Matched attachments leave the pool and body is rewritten. A link becomes
// the filename and its file comes back in payloads. An inline image becomes
// a data URI in body only. An attachment whose content cannot be downloaded
// stays in the pool and its reference is left as is.
func (r *AttachmentReconciler) CheckReferences(ctx context.Context, body string, author *model.JiraUser) (bool, []model.AttachmentPayload, string, error) {
	if author == nil || body == "" {
		return false, nil, body, nil
	}
	authorID, err := r.identity.SourceIdentity(ctx, author)
	if err != nil {
		logging.From(ctx).Debug("Skipping attachment check for unresolvable author", "author", author.String())
		return false, nil, body, nil
	}

	logger := logging.From(ctx)
	var (
		matchedAny bool
		payloads   []model.AttachmentPayload
	)

	for _, a := range slices.Clone(r.pool) {
		if !r.sameAuthor(ctx, a, authorID) {
			continue
		}

		values := transformValues(r.templateValues(a), regexp.QuoteMeta)
		rewritten, matched, err := r.matchLink(body, a, values)
		if err != nil {
			return false, nil, body, err
		}
		if matched {
			payload, err := r.Payload(ctx, a)
			if err != nil {
				_ = errutil.Handle(ctx, err, "failed to download referenced attachment")
				continue
			}
			payloads = append(payloads, payload)
		} else {
			rewritten, matched, err = r.matchInline(ctx, body, a, values)
			if err != nil {
				return false, nil, body, err
			}
		}
		if !matched {
			continue
		}

		rewritten, err = r.applyReplace(rewritten, a, values)
		if err != nil {
			return false, nil, body, err
		}

		logger.Debug("Attachment referenced", "issue", r.issueKey, "filename", a.Filename)
		body = rewritten
		matchedAny = true
		r.consume(a)
	}

	return matchedAny, payloads, body, nil
}

func (r *AttachmentReconciler) sameAuthor(ctx context.Context, a *model.JiraAttachment, authorID types.Identity) bool {
	if a.Author == nil {
		return false
	}
	// resolved once per attachment; a failed lookup is cached as empty
	id, ok := r.authors[a.ID]
	if !ok {
		id, _ = r.identity.SourceIdentity(ctx, a.Author)
		r.authors[a.ID] = id
	}
	return id != "" && id.Equal(authorID)
}

func (r *AttachmentReconciler) matchLink(body string, a *model.JiraAttachment, values map[string]string) (string, bool, error) {
	for _, tmpl := range r.mapping.MatchLink {
		re, err := r.compile(tmpl, values)
		if err != nil {
			return body, false, err
		}
		if re.MatchString(body) {
			return re.ReplaceAllLiteralString(body, a.Filename), true, nil
		}
	}
	return body, false, nil
}

func (r *AttachmentReconciler) matchInline(ctx context.Context, body string, a *model.JiraAttachment, values map[string]string) (string, bool, error) {
	for _, tmpl := range r.mapping.MatchInline {
		re, err := r.compile(tmpl, values)
		if err != nil {
			return body, false, err
		}
		if !re.MatchString(body) {
			continue
		}

		data, err := r.download(ctx, a)
		if err != nil {
			// left in the pool; it is attached as a note later
			_ = errutil.Handle(ctx, err, "failed to download inline attachment")
			return body, false, nil
		}
		img := `<div><img src="data:` + a.MimeType + `;base64,` + base64.StdEncoding.EncodeToString(data) + `"></div><br />`
		return re.ReplaceAllLiteralString(body, img), true, nil
	}
	return body, false, nil
}

// applyReplace runs the cleanup rules in pattern order. Replacements may use
// regexp group references such as $1 or ${1}.
func (r *AttachmentReconciler) applyReplace(body string, a *model.JiraAttachment, patternValues map[string]string) (string, error) {
	literal := transformValues(r.templateValues(a), func(v string) string {
		return strings.ReplaceAll(v, "$", "$$")
	})

	for _, pattern := range slices.Sorted(maps.Keys(r.mapping.Replace)) {
		re, err := r.compile(pattern, patternValues)
		if err != nil {
			return body, err
		}
		repl, err := model.ExpandTemplate(r.mapping.Replace[pattern], literal)
		if err != nil {
			return body, err
		}
		body = re.ReplaceAllString(body, repl)
	}
	return body, nil
}

func (r *AttachmentReconciler) consume(a *model.JiraAttachment) {
	r.pool = slices.DeleteFunc(r.pool, func(x *model.JiraAttachment) bool { return x == a })
}

func (r *AttachmentReconciler) download(ctx context.Context, a *model.JiraAttachment) ([]byte, error) {
	if data, ok := r.data[a.ID]; ok {
		return data, nil
	}
	data, err := r.jira.Download(ctx, a)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download attachment",
			goerr.V(AttachmentIDKey, a.ID), goerr.V("filename", a.Filename))
	}
	r.data[a.ID] = data
	return data, nil
}

// Payload converts a to the upload form of an article attachment.
func (r *AttachmentReconciler) Payload(ctx context.Context, a *model.JiraAttachment) (model.AttachmentPayload, error) {
	data, err := r.download(ctx, a)
	if err != nil {
		return model.AttachmentPayload{}, err
	}
	return model.AttachmentPayload{
		Filename: a.Filename,
		MimeType: a.MimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// AttachmentNote builds an internal article carrying an attachment that no
// text referenced.
func (r *AttachmentReconciler) AttachmentNote(ctx context.Context, ticketID int64, a *model.JiraAttachment) (*model.ArticleDraft, error) {
	payload, err := r.Payload(ctx, a)
	if err != nil {
		return nil, err
	}

	article := model.NewArticleDraft(r.constants)
	article.Set("ticket_id", ticketID)
	article.SetBody(a.Filename + " attached by " + a.AuthorName())

	author, err := r.author(ctx, a.Author)
	if err != nil {
		return nil, err
	}
	for _, f := range articleAuthorFields {
		article.Set(f, author.ID)
	}

	article.Set("created_at", model.ZammadTime(a.Created))
	article.Set("updated_at", model.ZammadTime(a.Created))
	article.Set("internal", true)
	article.AddAttachment(payload)
	return article, nil
}

// author resolves a Jira user to a Zammad user, falling back to the service user.
func (r *AttachmentReconciler) author(ctx context.Context, user *model.JiraUser) (*model.ZammadUser, error) {
	if id, err := r.identity.SourceIdentity(ctx, user); err == nil {
		zuser, err := r.identity.EnsureUser(ctx, id, false)
		if err == nil {
			return zuser, nil
		}
		_ = errutil.Handle(ctx, err, "failed to ensure attachment author")
	}
	return r.identity.ServiceUser(ctx)
}
