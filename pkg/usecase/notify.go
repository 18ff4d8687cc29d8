package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

// Notifier posts run summaries to a Slack channel
type Notifier struct {
	slack   slack.Service
	channel string
}

// NewNotifier creates a Notifier posting to channelID
func NewNotifier(svc slack.Service, channelID string) *Notifier {
	return &Notifier{slack: svc, channel: channelID}
}

// NotifyResult posts the summary of a migration run
func (n *Notifier) NotifyResult(ctx context.Context, r *MigrateResult) error {
	blocks, text := buildResultBlocks(r)
	if _, err := n.slack.PostMessage(ctx, n.channel, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to notify migration result", goerr.V("channel_id", n.channel))
	}
	return nil
}

func buildResultBlocks(r *MigrateResult) ([]goslack.Block, string) {
	text := fmt.Sprintf("Jira project %s: %d of %d issues migrated", r.Project, r.Created, r.Issues)

	header := goslack.NewHeaderBlock(
		goslack.NewTextBlockObject(goslack.PlainTextType, "Jira to Zammad migration", false, false),
	)

	field := func(label string, v any) *goslack.TextBlockObject {
		return goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*%s*\n%v", label, v), false, false)
	}
	fields := []*goslack.TextBlockObject{
		field("Project", r.Project),
		field("Issues", r.Issues),
		field("Created", r.Created),
		field("Skipped", r.Skipped),
		field("Failed", r.Failed),
		field("Comments", r.Comments),
		field("Attachment notes", r.AttachmentNotes),
		field("Links", r.Links),
		field("Errors", r.Errors),
	}
	if r.Revert != nil {
		fields = append(fields, field("Users reverted", fmt.Sprintf("%d (%d failed)", r.Revert.Reverted, r.Revert.Failed)))
	}

	footer := goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("run `%s` took %s", r.RunID, r.Duration.Round(time.Second)), false, false),
	)

	// a section block holds at most 10 fields
	blocks := []goslack.Block{header}
	for len(fields) > 0 {
		n := min(len(fields), 10)
		blocks = append(blocks, goslack.NewSectionBlock(nil, fields[:n], nil))
		fields = fields[n:]
	}
	blocks = append(blocks, footer)
	return blocks, text
}
