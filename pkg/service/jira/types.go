package jira

import (
	"context"
	"iter"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

// DefaultMaxResults is the page size used for issue search.
const DefaultMaxResults = 50

// Service provides read access to the Jira REST API (v2, rendered HTML fields)
type Service interface {
	// SearchIssues iterates the issues matched by jql, page by page, starting at opt.StartAt.
	// Rendered fields are expanded.
	SearchIssues(ctx context.Context, jql string, opt SearchOption) iter.Seq2[*model.JiraIssue, error]

	// Comments returns all comments of an issue with rendered body and properties expanded.
	Comments(ctx context.Context, issueID string) ([]*model.JiraComment, error)

	// LookupUser fetches the full user record for a reference by accountId (Cloud) or key (Server).
	LookupUser(ctx context.Context, user *model.JiraUser) (*model.JiraUser, error)

	// Download fetches the content of an attachment.
	Download(ctx context.Context, attachment *model.JiraAttachment) ([]byte, error)
}

// SearchOption controls issue search pagination.
type SearchOption struct {
	StartAt    int
	MaxResults int
}
