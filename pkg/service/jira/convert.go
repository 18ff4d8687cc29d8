package jira

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

type rawUser struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
	Active       bool   `json:"active"`
}

func (u *rawUser) toModel() *model.JiraUser {
	if u == nil {
		return nil
	}
	return &model.JiraUser{
		Key:          u.Key,
		Name:         u.Name,
		AccountID:    u.AccountID,
		EmailAddress: u.EmailAddress,
		DisplayName:  u.DisplayName,
		Active:       u.Active,
	}
}

type rawAttachment struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Author   *rawUser `json:"author"`
	Created  string   `json:"created"`
	Size     int64    `json:"size"`
	MimeType string   `json:"mimeType"`
	Content  string   `json:"content"`
}

type rawLinkedIssue struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type rawIssueLink struct {
	ID   string `json:"id"`
	Type struct {
		Name    string `json:"name"`
		Inward  string `json:"inward"`
		Outward string `json:"outward"`
	} `json:"type"`
	InwardIssue  *rawLinkedIssue `json:"inwardIssue"`
	OutwardIssue *rawLinkedIssue `json:"outwardIssue"`
}

type rawIssueFields struct {
	Summary    string   `json:"summary"`
	Created    string   `json:"created"`
	Updated    string   `json:"updated"`
	Reporter   *rawUser `json:"reporter"`
	Labels     []string `json:"labels"`
	Components []struct {
		Name string `json:"name"`
	} `json:"components"`
	Attachment []rawAttachment `json:"attachment"`
	IssueLinks []rawIssueLink  `json:"issuelinks"`
}

type rawIssue struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Fields         map[string]any `json:"fields"`
	RenderedFields map[string]any `json:"renderedFields"`
}

type rawSearchResult struct {
	StartAt    int               `json:"startAt"`
	MaxResults int               `json:"maxResults"`
	Total      int               `json:"total"`
	Issues     []json.RawMessage `json:"issues"`
}

type rawProperty struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type rawComment struct {
	ID           string        `json:"id"`
	Author       *rawUser      `json:"author"`
	Body         string        `json:"body"`
	RenderedBody string        `json:"renderedBody"`
	Created      string        `json:"created"`
	Updated      string        `json:"updated"`
	Properties   []rawProperty `json:"properties"`
}

type rawCommentPage struct {
	StartAt    int          `json:"startAt"`
	MaxResults int          `json:"maxResults"`
	Total      int          `json:"total"`
	Comments   []rawComment `json:"comments"`
}

// decodeIssue builds the model from one search hit. The field bag keeps the
// generic decoded form; well-known collections are decoded into typed values.
func decodeIssue(data json.RawMessage) (*model.JiraIssue, error) {
	var raw rawIssue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode issue")
	}
	var typed struct {
		Fields rawIssueFields `json:"fields"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, goerr.Wrap(err, "failed to decode issue fields", goerr.V("key", raw.Key))
	}
	f := typed.Fields

	issue := &model.JiraIssue{
		ID:       raw.ID,
		Key:      raw.Key,
		Summary:  f.Summary,
		Created:  f.Created,
		Updated:  f.Updated,
		Fields:   raw.Fields,
		Rendered: raw.RenderedFields,
		Reporter: f.Reporter.toModel(),
		Labels:   f.Labels,
	}
	if issue.Fields == nil {
		issue.Fields = map[string]any{}
	}

	for _, c := range f.Components {
		issue.Components = append(issue.Components, c.Name)
	}
	for _, a := range f.Attachment {
		issue.Attachments = append(issue.Attachments, &model.JiraAttachment{
			ID:         a.ID,
			Filename:   a.Filename,
			MimeType:   a.MimeType,
			ContentURL: a.Content,
			Created:    a.Created,
			Size:       a.Size,
			Author:     a.Author.toModel(),
		})
	}
	for _, l := range f.IssueLinks {
		link := &model.JiraIssueLink{
			ID: l.ID,
			Type: model.JiraLinkType{
				Name:    l.Type.Name,
				Inward:  l.Type.Inward,
				Outward: l.Type.Outward,
			},
		}
		if l.InwardIssue != nil {
			link.InwardIssue = &model.JiraLinkedIssue{ID: l.InwardIssue.ID, Key: l.InwardIssue.Key}
		}
		if l.OutwardIssue != nil {
			link.OutwardIssue = &model.JiraLinkedIssue{ID: l.OutwardIssue.ID, Key: l.OutwardIssue.Key}
		}
		issue.Links = append(issue.Links, link)
	}

	return issue, nil
}

func (c *rawComment) toModel() *model.JiraComment {
	props := make(map[string]any, len(c.Properties))
	for _, p := range c.Properties {
		props[p.Key] = p.Value
	}
	return &model.JiraComment{
		ID:           c.ID,
		Body:         c.Body,
		RenderedBody: c.RenderedBody,
		Author:       c.Author.toModel(),
		Created:      c.Created,
		Updated:      c.Updated,
		Properties:   props,
	}
}
