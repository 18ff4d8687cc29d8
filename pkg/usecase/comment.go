package usecase

import (
	"context"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
)

// CommentMapper turns Jira comments into Zammad articles.
type CommentMapper struct {
	identity  *IdentityResolver
	constants map[string]any
}

// NewCommentMapper creates a CommentMapper seeding every article with constants.
func NewCommentMapper(identity *IdentityResolver, constants map[string]any) *CommentMapper {
	return &CommentMapper{identity: identity, constants: constants}
}

// TransformComment builds the article for c on ticketID. Comments by users
// that cannot be mapped are posted as the service user with the original
// author appended to the body.
func (m *CommentMapper) TransformComment(ctx context.Context, ticketID int64, c *model.JiraComment) (*model.ArticleDraft, error) {
	article := model.NewArticleDraft(m.constants)
	article.Set("ticket_id", ticketID)
	article.SetBody(c.PreferredBody())

	author, ok := m.author(ctx, c.Author)
	if !ok {
		me, err := m.identity.ServiceUser(ctx)
		if err != nil {
			return nil, err
		}
		author = me
		article.AppendBody("\n\noriginal author: " + c.Author.String())
	}
	for _, f := range articleAuthorFields {
		article.Set(f, author.ID)
	}

	article.Set("created_at", model.ZammadTime(c.Updated))
	article.Set("updated_at", model.ZammadTime(c.Updated))
	article.Set("internal", c.Internal())
	return article, nil
}

func (m *CommentMapper) author(ctx context.Context, user *model.JiraUser) (*model.ZammadUser, bool) {
	id, err := m.identity.SourceIdentity(ctx, user)
	if err != nil {
		return nil, false
	}
	zuser, err := m.identity.EnsureUser(ctx, id, false)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to ensure comment author")
		return nil, false
	}
	return zuser, true
}
