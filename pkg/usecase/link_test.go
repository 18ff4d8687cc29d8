package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
)

func linkConfig() *config.Migration {
	cfg := testMigrationConfig()
	cfg.IssueLinks = config.IssueLinks{
		Directions: []types.LinkDirection{types.LinkDirectionOutward, types.LinkDirectionInward},
		Types:      map[string]string{"parent": "is parent of", "child": "is child of", "normal": "relates to"},
	}
	return cfg
}

func hierarchyLink() *model.JiraIssueLink {
	return &model.JiraIssueLink{
		Type:         model.JiraLinkType{Name: "Hierarchy", Inward: "is child of", Outward: "is parent of"},
		OutwardIssue: &model.JiraLinkedIssue{ID: "2", Key: "PRJ-2"},
		InwardIssue:  &model.JiraLinkedIssue{ID: "3", Key: "PRJ-3"},
	}
}

func TestLinkMapper_ResolveLink(t *testing.T) {
	ctx := context.Background()

	t.Run("outward preferred", func(t *testing.T) {
		cfg := linkConfig()
		m := usecase.NewLinkMapper(newFakeZammad(), nil, cfg)

		target, linkType, ok := m.ResolveLink(ctx, hierarchyLink())
		gt.Bool(t, ok).True()
		gt.Value(t, target).Equal("PRJ-2")
		gt.Value(t, linkType).Equal("parent")
	})

	t.Run("direction order decides", func(t *testing.T) {
		cfg := linkConfig()
		cfg.IssueLinks.Directions = []types.LinkDirection{types.LinkDirectionInward, types.LinkDirectionOutward}
		m := usecase.NewLinkMapper(newFakeZammad(), nil, cfg)

		target, linkType, ok := m.ResolveLink(ctx, hierarchyLink())
		gt.Bool(t, ok).True()
		gt.Value(t, target).Equal("PRJ-3")
		gt.Value(t, linkType).Equal("child")
	})

	t.Run("falls through to present direction", func(t *testing.T) {
		link := hierarchyLink()
		link.OutwardIssue = nil
		m := usecase.NewLinkMapper(newFakeZammad(), nil, linkConfig())

		target, _, ok := m.ResolveLink(ctx, link)
		gt.Bool(t, ok).True()
		gt.Value(t, target).Equal("PRJ-3")
	})

	t.Run("numeric id key", func(t *testing.T) {
		cfg := linkConfig()
		cfg.Mapping.Issue.Key.Jira = "id"
		m := usecase.NewLinkMapper(newFakeZammad(), nil, cfg)

		target, _, ok := m.ResolveLink(ctx, hierarchyLink())
		gt.Bool(t, ok).True()
		gt.Value(t, target).Equal("2")
	})

	t.Run("unsupported key field", func(t *testing.T) {
		cfg := linkConfig()
		cfg.Mapping.Issue.Key.Jira = "customfield_1"
		m := usecase.NewLinkMapper(newFakeZammad(), nil, cfg)

		_, _, ok := m.ResolveLink(ctx, hierarchyLink())
		gt.Bool(t, ok).False()
	})

	t.Run("unmapped type", func(t *testing.T) {
		link := hierarchyLink()
		link.Type = model.JiraLinkType{Name: "Duplicate", Inward: "is duplicated by", Outward: "duplicates"}

		m := usecase.NewLinkMapper(newFakeZammad(), nil, linkConfig())
		_, _, ok := m.ResolveLink(ctx, link)
		gt.Bool(t, ok).False()

		cfg := linkConfig()
		cfg.IssueLinks.MatchAllUnmappedToNormal = true
		m = usecase.NewLinkMapper(newFakeZammad(), nil, cfg)
		_, linkType, ok := m.ResolveLink(ctx, link)
		gt.Bool(t, ok).True()
		gt.Value(t, linkType).Equal("normal")
	})

	t.Run("no direction configured", func(t *testing.T) {
		cfg := linkConfig()
		cfg.IssueLinks.Directions = nil
		m := usecase.NewLinkMapper(newFakeZammad(), nil, cfg)
		_, _, ok := m.ResolveLink(ctx, hierarchyLink())
		gt.Bool(t, ok).False()
	})
}

func TestLinkMapper_LinkIssue(t *testing.T) {
	ctx := context.Background()
	cfg := linkConfig()

	z := newFakeZammad()
	z.tickets = []*model.ZammadTicket{
		{ID: 201, Number: "PRJ-1"},
		{ID: 202, Number: "PRJ-2"},
		{ID: 203, Number: "PRJ-3"},
	}
	finder := usecase.NewTicketFinder(z, cfg.Mapping)
	m := usecase.NewLinkMapper(z, finder, cfg)

	issue := &model.JiraIssue{
		Key: "PRJ-1",
		Links: []*model.JiraIssueLink{
			hierarchyLink(),
			{Type: model.JiraLinkType{Outward: "relates to"}, OutwardIssue: &model.JiraLinkedIssue{Key: "PRJ-9"}},
		},
	}

	result, err := m.LinkIssue(ctx, issue)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Created).Equal(1)
	gt.Value(t, result.Skipped).Equal(1)
	gt.Value(t, z.links).Equal([]string{"PRJ-1->202:parent"})

	t.Run("duplicate links are benign", func(t *testing.T) {
		z.addLinkFn = func(context.Context, int64, string, string) error {
			return fmt.Errorf("dup: %w", model.ErrAlreadyExists)
		}
		result, err := m.LinkIssue(ctx, issue)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Errors).Equal(0)
		gt.Value(t, result.Skipped).Equal(2)
	})

	t.Run("other failures are counted", func(t *testing.T) {
		z.addLinkFn = func(context.Context, int64, string, string) error {
			return fmt.Errorf("down: %w", model.ErrUpstreamFailure)
		}
		result, err := m.LinkIssue(ctx, issue)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Errors).Equal(1)
	})

	t.Run("source ticket missing", func(t *testing.T) {
		_, err := m.LinkIssue(ctx, &model.JiraIssue{Key: "PRJ-404", Links: issue.Links})
		gt.Error(t, err).Is(model.ErrRecordNotFound)
	})
}
