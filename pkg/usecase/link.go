package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
)

// TicketFinder looks up migrated tickets by their natural key.
type TicketFinder struct {
	zammad zammad.Service
	field  string
	tags   []string
}

// NewTicketFinder creates a TicketFinder matching field exactly and
// narrowing the search to tickets carrying all default tags.
func NewTicketFinder(svc zammad.Service, mapping config.Mapping) *TicketFinder {
	return &TicketFinder{
		zammad: svc,
		field:  cmp.Or(mapping.Issue.Key.Zammad, config.DefaultIssueKeyZammad),
		tags:   mapping.DefaultTags,
	}
}

// Matches returns the tickets whose key field equals ident.
func (f *TicketFinder) Matches(ctx context.Context, ident string) ([]*model.ZammadTicket, error) {
	var q strings.Builder
	fmt.Fprintf(&q, "%s:%s", f.field, ident)
	for _, tag := range f.tags {
		fmt.Fprintf(&q, " AND tags:%s", tag)
	}

	found, err := f.zammad.SearchTickets(ctx, q.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search tickets", goerr.V(IssueKey, ident))
	}

	var matches []*model.ZammadTicket
	for _, t := range found {
		if t.Attr(f.field) == ident {
			matches = append(matches, t)
		}
	}
	return matches, nil
}

// Find returns the single ticket with key ident, or ErrRecordNotFound.
func (f *TicketFinder) Find(ctx context.Context, ident string) (*model.ZammadTicket, error) {
	matches, err := f.Matches(ctx, ident)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, goerr.Wrap(model.ErrRecordNotFound, "no unique ticket",
			goerr.V(IssueKey, ident), goerr.V("matches", len(matches)))
	}
	return matches[0], nil
}

// LinkMapper recreates Jira issue links between migrated tickets.
type LinkMapper struct {
	zammad  zammad.Service
	finder  *TicketFinder
	links   config.IssueLinks
	jiraKey string
}

// NewLinkMapper creates a LinkMapper.
func NewLinkMapper(svc zammad.Service, finder *TicketFinder, cfg *config.Migration) *LinkMapper {
	return &LinkMapper{
		zammad:  svc,
		finder:  finder,
		links:   cfg.IssueLinks,
		jiraKey: cmp.Or(cfg.Mapping.Issue.Key.Jira, config.DefaultIssueKeyJira),
	}
}

// ResolveLink returns the key of the linked issue and the Zammad link type.
// ok is false when either is missing.
func (m *LinkMapper) ResolveLink(ctx context.Context, link *model.JiraIssueLink) (string, string, bool) {
	var target, jiraType string
	for _, d := range m.links.Directions {
		issue, name := link.Side(d)
		if issue == nil {
			continue
		}
		switch m.jiraKey {
		case "id":
			target = issue.ID
		case "key":
			target = issue.Key
		default:
			logging.From(ctx).Warn("Issue links require mapping.issue.key.jira to be id or key", "key", m.jiraKey)
			return "", "", false
		}
		jiraType = name
		if target != "" {
			break
		}
	}
	if target == "" {
		return "", "", false
	}

	linkType := ""
	if m.links.MatchAllUnmappedToNormal {
		linkType = config.NormalLinkType
	}
	for _, ztype := range slices.Sorted(maps.Keys(m.links.Types)) {
		if m.links.Types[ztype] == jiraType {
			linkType = ztype
			break
		}
	}
	if linkType == "" {
		return "", "", false
	}
	return target, linkType, true
}

// LinkResult counts the outcome of LinkIssue
type LinkResult struct {
	Created int
	Skipped int
	Errors  int
}

// LinkIssue creates the Zammad links for every link of issue.
func (m *LinkMapper) LinkIssue(ctx context.Context, issue *model.JiraIssue) (*LinkResult, error) {
	result := &LinkResult{}
	if len(issue.Links) == 0 {
		return result, nil
	}

	ident := issue.Identifier(m.jiraKey)
	source, err := m.finder.Find(ctx, ident)
	if err != nil {
		return nil, goerr.Wrap(err, "no ticket for linked issue", goerr.V(IssueKey, issue.Key))
	}

	logger := logging.From(ctx)
	for _, link := range issue.Links {
		targetKey, linkType, ok := m.ResolveLink(ctx, link)
		if !ok {
			result.Skipped++
			continue
		}

		target, err := m.finder.Find(ctx, targetKey)
		if err != nil {
			logger.Warn("Link target not migrated", "issue", issue.Key, "target", targetKey)
			result.Skipped++
			continue
		}

		err = m.zammad.AddLink(ctx, target.ID, source.Number, linkType)
		switch {
		case err == nil:
			logger.Info("Linked tickets", "source", source.Number, "target", target.ID, "type", linkType)
			result.Created++
		case errors.Is(err, model.ErrAlreadyExists):
			logger.Debug("Link already exists", "source", source.Number, "target", target.ID, "type", linkType)
			result.Skipped++
		default:
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to add link",
				goerr.V(IssueKey, issue.Key), goerr.V(TicketIDKey, target.ID), goerr.V("link_type", linkType)),
				"failed to link tickets")
			result.Errors++
		}
	}
	return result, nil
}
