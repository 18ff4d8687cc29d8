package model

import (
	"maps"
	"strings"
)

// ArticleFieldPrefix addresses the embedded article of a ticket in field mappings.
const ArticleFieldPrefix = "article."

// EmptyBody replaces empty article bodies, which Zammad rejects.
const EmptyBody = "..."

// AttachmentPayload is an attachment as uploaded with an article.
type AttachmentPayload struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime-type"`
	Data     string `json:"data"`
}

// ArticleDraft is a Zammad article being assembled before creation.
type ArticleDraft struct {
	Fields      map[string]any
	Attachments []AttachmentPayload
}

// NewArticleDraft returns an article draft seeded with a copy of constants.
func NewArticleDraft(constants map[string]any) *ArticleDraft {
	fields := make(map[string]any, len(constants)+8)
	maps.Copy(fields, constants)
	return &ArticleDraft{Fields: fields}
}

// Set writes a field.
func (a *ArticleDraft) Set(name string, v any) {
	a.Fields[name] = v
}

// Get reads a field.
func (a *ArticleDraft) Get(name string) any {
	return a.Fields[name]
}

// Body returns the body as text.
func (a *ArticleDraft) Body() string {
	return Readable(a.Fields["body"])
}

// SetBody replaces the body.
func (a *ArticleDraft) SetBody(body string) {
	a.Fields["body"] = body
}

// AppendBody appends s to the body.
func (a *ArticleDraft) AppendBody(s string) {
	a.SetBody(a.Body() + s)
}

// EnsureBody replaces a whitespace-only body with EmptyBody.
func (a *ArticleDraft) EnsureBody() {
	if strings.TrimSpace(a.Body()) == "" {
		a.SetBody(EmptyBody)
	}
}

// AddAttachment appends an attachment payload.
func (a *ArticleDraft) AddAttachment(p AttachmentPayload) {
	a.Attachments = append(a.Attachments, p)
}

// Params returns the request body for article creation.
func (a *ArticleDraft) Params() map[string]any {
	params := make(map[string]any, len(a.Fields)+1)
	maps.Copy(params, a.Fields)
	attachments := a.Attachments
	if attachments == nil {
		attachments = []AttachmentPayload{}
	}
	params["attachments"] = attachments
	return params
}

// TicketDraft is a Zammad ticket with its initial article, assembled before creation.
type TicketDraft struct {
	Fields  map[string]any
	Article *ArticleDraft
}

// NewTicketDraft returns an empty ticket draft whose article body is EmptyBody.
func NewTicketDraft() *TicketDraft {
	article := NewArticleDraft(nil)
	article.SetBody(EmptyBody)
	return &TicketDraft{
		Fields:  make(map[string]any),
		Article: article,
	}
}

// Set writes a field. Names prefixed with "article." are written to the article.
func (t *TicketDraft) Set(name string, v any) {
	if sub, ok := strings.CutPrefix(name, ArticleFieldPrefix); ok {
		t.Article.Set(sub, v)
		return
	}
	t.Fields[name] = v
}

// Get reads a field with the same addressing as Set.
func (t *TicketDraft) Get(name string) any {
	if sub, ok := strings.CutPrefix(name, ArticleFieldPrefix); ok {
		return t.Article.Get(sub)
	}
	return t.Fields[name]
}

// Params returns the request body for ticket creation.
func (t *TicketDraft) Params() map[string]any {
	params := make(map[string]any, len(t.Fields)+1)
	maps.Copy(params, t.Fields)
	params["article"] = t.Article.Params()
	return params
}
