package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/service/jira"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
)

// Migrator copies the issues of a Jira project into Zammad tickets.
type Migrator struct {
	cfg      *config.Migration
	jira     jira.Service
	zammad   zammad.Service
	damage   *DamageLedger
	identity *IdentityResolver
	fields   *FieldMapper
	comments *CommentMapper
	tickets  *TicketFinder
	links    *LinkMapper
	notifier *Notifier
	poll     Poll
}

// MigrateOption holds options for the Run operation
type MigrateOption struct {
	// Issues restricts the run to these issue keys
	Issues     []string
	StartAt    int
	MaxResults int
	// UndoDamage reverts the recorded user changes after the run
	UndoDamage bool
}

// MigrateResult holds the result of a migration run
type MigrateResult struct {
	RunID           string
	Project         string
	Issues          int
	Created         int
	Skipped         int
	Failed          int
	Comments        int
	AttachmentNotes int
	Links           int
	Errors          int
	Revert          *RevertResult
	Duration        time.Duration
}

// issueResult holds the outcome for a single issue
type issueResult struct {
	skipped  bool
	ticketID int64
	comments int
	notes    int
	errors   int
}

// Run migrates every matching issue, then recreates the issue links, then
// optionally reverts the user changes. Failures of single issues, comments
// and links are logged and counted; only search failures and cancellation
// abort the run.
func (m *Migrator) Run(ctx context.Context, opt MigrateOption) (*MigrateResult, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = logging.With(ctx, logging.From(ctx).With("run_id", runID))
	logger := logging.From(ctx)

	result := &MigrateResult{RunID: runID, Project: m.cfg.Jira.Project}
	jql, search := m.query(opt)
	logger.Info("Starting migration", "jql", jql, "start_at", search.StartAt, "max_results", search.MaxResults)

	for issue, err := range m.jira.SearchIssues(ctx, jql, search) {
		if errors.Is(err, model.ErrInvalidRecord) {
			_ = errutil.Handle(ctx, err, "failed to decode jira issue")
			result.Issues++
			result.Failed++
			continue
		}
		if err != nil {
			return result, goerr.Wrap(err, "failed to search jira issues", goerr.V("jql", jql))
		}
		result.Issues++

		ir, err := m.migrateIssue(ctx, issue)
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to migrate issue")
			result.Failed++
			continue
		}
		if ir.skipped {
			result.Skipped++
			continue
		}

		result.Created++
		result.Comments += ir.comments
		result.AttachmentNotes += ir.notes
		result.Errors += ir.errors
		logger.Info("Migrated issue", "issue", issue.Key, "ticket_id", ir.ticketID,
			"comments", ir.comments, "attachment_notes", ir.notes, "errors", ir.errors)
	}
	if err := ctx.Err(); err != nil {
		return result, goerr.Wrap(err, "migration interrupted")
	}

	logger.Info("Start postprocessing: issue links")
	for issue, err := range m.jira.SearchIssues(ctx, jql, search) {
		if errors.Is(err, model.ErrInvalidRecord) {
			// counted as failed in the first pass
			continue
		}
		if err != nil {
			return result, goerr.Wrap(err, "failed to search jira issues for links", goerr.V("jql", jql))
		}
		lr, err := m.links.LinkIssue(ctx, issue)
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to link issue")
			result.Errors++
			continue
		}
		result.Links += lr.Created
		result.Errors += lr.Errors
	}
	if err := ctx.Err(); err != nil {
		return result, goerr.Wrap(err, "migration interrupted")
	}

	if opt.UndoDamage {
		logger.Info("Start postprocessing: revert user changes", "location", m.damage.Location())
		revert, err := m.damage.RevertAll(ctx, m.zammad)
		result.Revert = revert
		if err != nil {
			return result, goerr.Wrap(err, "failed to revert user changes")
		}
	}

	result.Duration = time.Since(started)
	logger.Info("Migration completed",
		"issues", result.Issues,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"links", result.Links,
		"errors", result.Errors,
		"duration", result.Duration.String(),
	)

	if m.notifier != nil {
		if err := m.notifier.NotifyResult(ctx, result); err != nil {
			_ = errutil.Handle(ctx, err, "failed to post migration summary")
		}
	}
	return result, nil
}

// query returns the JQL and paging for opt.
func (m *Migrator) query(opt MigrateOption) (string, jira.SearchOption) {
	if len(opt.Issues) > 0 {
		return fmt.Sprintf("key in (%s) ORDER BY key ASC", strings.Join(opt.Issues, ",")),
			jira.SearchOption{StartAt: opt.StartAt, MaxResults: 1}
	}
	return fmt.Sprintf("project = %s ORDER BY key ASC", m.cfg.Jira.Project),
		jira.SearchOption{StartAt: opt.StartAt, MaxResults: cmp.Or(opt.MaxResults, jira.DefaultMaxResults)}
}

func (m *Migrator) migrateIssue(ctx context.Context, issue *model.JiraIssue) (*issueResult, error) {
	logger := logging.From(ctx).With("issue", issue.Key)
	ctx = logging.With(ctx, logger)
	ir := &issueResult{}

	jiraKey := cmp.Or(m.cfg.Mapping.Issue.Key.Jira, config.DefaultIssueKeyJira)
	ident := issue.Identifier(jiraKey)
	existing, err := m.tickets.Matches(ctx, ident)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logger.Warn("Issue already exists in zammad", "ident", ident, "ticket_id", existing[0].ID)
		ir.skipped = true
		return ir, nil
	}

	draft, err := m.fields.TransformIssue(ctx, issue)
	if err != nil {
		return nil, err
	}

	attachments := NewAttachmentReconciler(m.jira, m.identity, m.cfg, issue)
	if err := m.scrub(ctx, attachments, draft.Article, issue.Reporter); err != nil {
		return nil, err
	}

	ticket, err := m.zammad.CreateTicket(ctx, draft.Params())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create ticket", goerr.V(IssueKey, issue.Key))
	}
	ir.ticketID = ticket.ID
	logger.Info("Created ticket", "ticket_id", ticket.ID, "number", ticket.Number)

	// the default tags make the ticket findable
	for _, tag := range m.cfg.Mapping.DefaultTags {
		if err := m.zammad.AddTag(ctx, ticket.ID, tag); err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to add tag", goerr.V("tag", tag)), "failed to tag ticket")
			ir.errors++
		}
	}
	if err := m.poll.wait(ctx, func() (bool, error) {
		found, err := m.tickets.Matches(ctx, ident)
		return len(found) > 0, err
	}); err != nil {
		return nil, goerr.Wrap(err, "created ticket is not searchable", goerr.V(TicketIDKey, ticket.ID))
	}

	m.migrateComments(ctx, ir, attachments, issue, ticket.ID)

	for _, a := range attachments.Remaining() {
		note, err := attachments.AttachmentNote(ctx, ticket.ID, a)
		if err == nil {
			_, err = m.zammad.CreateArticle(ctx, note.Params())
		}
		if err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to attach file",
				goerr.V(AttachmentIDKey, a.ID), goerr.V("filename", a.Filename)), "failed to create attachment note")
			ir.errors++
			continue
		}
		ir.notes++
	}

	for _, tag := range DeriveTags(m.cfg.Mapping.DefaultTags, issue.Components, issue.Labels) {
		if err := m.zammad.AddTag(ctx, ticket.ID, tag); err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to add tag", goerr.V("tag", tag)), "failed to tag ticket")
			ir.errors++
		}
	}
	return ir, nil
}

func (m *Migrator) migrateComments(ctx context.Context, ir *issueResult, attachments *AttachmentReconciler, issue *model.JiraIssue, ticketID int64) {
	comments, err := m.jira.Comments(ctx, issue.ID)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to fetch comments")
		ir.errors++
		return
	}

	for _, c := range comments {
		article, err := m.comments.TransformComment(ctx, ticketID, c)
		if err == nil {
			err = m.scrub(ctx, attachments, article, c.Author)
		}
		if err == nil {
			_, err = m.zammad.CreateArticle(ctx, article.Params())
		}
		if err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to migrate comment", goerr.V(CommentIDKey, c.ID)), "failed to create article")
			ir.errors++
			continue
		}
		ir.comments++
	}
}

// scrub rewrites attachment references in the article body and attaches the
// files referenced by links.
func (m *Migrator) scrub(ctx context.Context, attachments *AttachmentReconciler, article *model.ArticleDraft, author *model.JiraUser) error {
	matched, payloads, body, err := attachments.CheckReferences(ctx, article.Body(), author)
	if err != nil {
		return err
	}
	if !matched {
		return nil
	}

	article.SetBody(body)
	for _, p := range payloads {
		article.AddAttachment(p)
	}
	return nil
}
