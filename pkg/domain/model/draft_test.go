package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

func TestTicketDraft_Set(t *testing.T) {
	d := model.NewTicketDraft()
	d.Set("title", "Broken printer")
	d.Set("article.type", "note")

	gt.Value(t, d.Get("title")).Equal(any("Broken printer"))
	gt.Value(t, d.Article.Get("type")).Equal(any("note"))
	_, leaked := d.Fields["article.type"]
	gt.Bool(t, leaked).False()
	gt.Value(t, d.Article.Body()).Equal(model.EmptyBody)
}

func TestArticleDraft_EnsureBody(t *testing.T) {
	a := model.NewArticleDraft(map[string]any{"type": "note"})
	a.SetBody(" \n\t ")
	a.EnsureBody()
	gt.Value(t, a.Body()).Equal(model.EmptyBody)

	a.SetBody("text")
	a.AppendBody("\n\nmore")
	a.EnsureBody()
	gt.Value(t, a.Body()).Equal("text\n\nmore")
}

func TestTicketDraft_Params(t *testing.T) {
	d := model.NewTicketDraft()
	d.Set("number", "10001")
	d.Article.AddAttachment(model.AttachmentPayload{Filename: "a.txt", MimeType: "text/plain", Data: "YQ=="})

	params := d.Params()
	gt.Value(t, params["number"]).Equal(any("10001"))

	article, ok := params["article"].(map[string]any)
	gt.Bool(t, ok).True()
	gt.Value(t, article["body"]).Equal(any(model.EmptyBody))
	attachments, ok := article["attachments"].([]model.AttachmentPayload)
	gt.Bool(t, ok).True()
	gt.Array(t, attachments).Length(1)
}

func TestArticleDraft_ConstantsAreCopied(t *testing.T) {
	constants := map[string]any{"type": "note"}
	a := model.NewArticleDraft(constants)
	a.Set("type", "email")
	gt.Value(t, constants["type"]).Equal(any("note"))
}
