package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/repository/memory"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
)

func TestCommentMapper_TransformComment(t *testing.T) {
	ctx := context.Background()
	z := newFakeZammad()
	z.addUser(7, "jane@example.com", true)

	ledger, err := usecase.NewDamageLedger(ctx, memory.NewDamage(nil), false)
	gt.NoError(t, err).Required()
	identity := usecase.NewIdentityResolver(&mockJira{}, z, ledger, testMigrationConfig().Mapping.User)
	constants := map[string]any{"type": "note", "sender": "Customer"}
	mapper := usecase.NewCommentMapper(identity, constants)

	t.Run("known author", func(t *testing.T) {
		c := &model.JiraComment{
			ID:           "1",
			Body:         "plain",
			RenderedBody: "<p>rendered</p>",
			Author:       jane,
			Updated:      "2023-05-01T09:30:00.000+0000",
			Properties:   map[string]any{"sd.public.comment": map[string]any{"internal": "true"}},
		}
		article, err := mapper.TransformComment(ctx, 42, c)
		gt.NoError(t, err).Required()

		gt.Value(t, article.Body()).Equal("<p>rendered</p>")
		gt.Value(t, article.Get("ticket_id")).Equal(any(int64(42)))
		gt.Value(t, article.Get("created_by_id")).Equal(any(int64(7)))
		gt.Value(t, article.Get("updated_at")).Equal(any("2023-05-01T09:30:00.000Z"))
		gt.Value(t, article.Get("internal")).Equal(any(true))
		gt.Value(t, article.Get("sender")).Equal(any("Customer"))
		gt.Array(t, article.Params()["attachments"].([]model.AttachmentPayload)).Length(0)
	})

	t.Run("unknown author posts as service user", func(t *testing.T) {
		c := &model.JiraComment{
			ID:     "2",
			Body:   "plain",
			Author: &model.JiraUser{Key: "ghost", DisplayName: "Ghost"},
		}
		article, err := mapper.TransformComment(ctx, 42, c)
		gt.NoError(t, err).Required()

		gt.Value(t, article.Body()).Equal("plain\n\noriginal author: Ghost")
		gt.Value(t, article.Get("origin_by_id")).Equal(any(int64(1)))
		gt.Value(t, article.Get("internal")).Equal(any(false))
	})

	t.Run("constants are not shared between articles", func(t *testing.T) {
		_, err := mapper.TransformComment(ctx, 43, &model.JiraComment{ID: "3", Body: "x", Author: jane})
		gt.NoError(t, err).Required()
		_, leaked := constants["ticket_id"]
		gt.Bool(t, leaked).False()
	})
}
