package config

import (
	"log/slog"

	"github.com/secmon-lab/jira2zammad/pkg/service/slack"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Slack is the flag group for posting run summaries
type Slack struct {
	botToken  string
	channelID string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack bot token used to post the migration summary",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID receiving the migration summary",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_SLACK_CHANNEL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("configured", x.IsConfigured()),
		slog.String("channel", x.channelID),
	)
}

func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure returns nil when Slack is not configured
func (x *Slack) Configure(opts ...slack.Option) (*usecase.Notifier, error) {
	if !x.IsConfigured() {
		return nil, nil
	}
	svc, err := slack.New(x.botToken, opts...)
	if err != nil {
		return nil, err
	}
	return usecase.NewNotifier(svc, x.channelID), nil
}
