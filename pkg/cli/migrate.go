package cli

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/cli/config"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
	"github.com/secmon-lab/jira2zammad/pkg/utils/errutil"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var (
		mappingCfg config.Mapping
		damageCfg  config.Damage
		zammadCfg  config.Zammad
		slackCfg   config.Slack

		noUndo      bool
		issues      []string
		startAt     int
		maxResults  int
		noUserCache bool
		attempts    int
		interval    time.Duration
	)

	var flags []cli.Flag
	flags = append(flags, mappingCfg.Flags()...)
	flags = append(flags, damageCfg.Flags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "no-undo-damage",
			Aliases:     []string{"u"},
			Usage:       "Keep the user changes made for the migration instead of reverting them",
			Destination: &noUndo,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_NO_UNDO_DAMAGE"),
		},
		&cli.StringSliceFlag{
			Name:        "jira-issue",
			Aliases:     []string{"j"},
			Usage:       "Migrate only this issue key (repeatable)",
			Destination: &issues,
		},
		&cli.IntFlag{
			Name:        "start-at",
			Aliases:     []string{"s"},
			Usage:       "Offset of the first issue in the search result",
			Destination: &startAt,
		},
		&cli.IntFlag{
			Name:        "max-results",
			Aliases:     []string{"m"},
			Usage:       "Page size of the Jira search",
			Value:       50,
			Destination: &maxResults,
		},
		&cli.BoolFlag{
			Name:        "no-user-cache",
			Aliases:     []string{"U"},
			Usage:       "Search Zammad for every user instead of caching resolved users",
			Destination: &noUserCache,
		},
		&cli.IntFlag{
			Name:        "visibility-attempts",
			Usage:       "Times to check that a created ticket or user became searchable",
			Value:       usecase.DefaultPoll.Attempts,
			Destination: &attempts,
		},
		&cli.DurationFlag{
			Name:        "visibility-interval",
			Usage:       "Wait between visibility checks",
			Value:       usecase.DefaultPoll.Interval,
			Destination: &interval,
		},
	)
	flags = append(flags, zammadCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Jira issues, comments, attachments and links into Zammad",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			cfg, err := mappingCfg.Load()
			if err != nil {
				return err
			}
			if err := config.ValidateMigration(cfg, len(issues) == 0); err != nil {
				return err
			}

			logger.Info("Migrate configuration",
				"mapping", mappingCfg,
				"damage", damageCfg,
				"zammad", zammadCfg,
				"slack", slackCfg,
				"project", cfg.Jira.Project,
				"issues", issues,
				"undo_damage", !noUndo,
			)

			jiraSvc, err := config.NewJira(cfg.Jira)
			if err != nil {
				return goerr.Wrap(err, "failed to create jira client")
			}
			zammadSvc, err := zammadCfg.Configure(cfg.Zammad)
			if err != nil {
				return goerr.Wrap(err, "failed to create zammad client")
			}
			notifier, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to create slack client")
			}

			repo, closeRepo, err := damageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open damage storage")
			}
			defer closeRepo()

			ledger, err := usecase.NewDamageLedger(ctx, repo, damageCfg.Resume())
			if err != nil {
				if errors.Is(err, usecase.ErrDamageExists) {
					logger.Error("A damage ledger of a previous run exists. Revert it with `damage revert` or resume with --continue-damage-file",
						"location", repo.Location())
				}
				return err
			}

			var identityOpts []usecase.IdentityOption
			if noUserCache {
				identityOpts = append(identityOpts, usecase.WithoutUserCache())
			}
			opts := []usecase.Option{
				usecase.WithIdentityOptions(identityOpts...),
				usecase.WithVisibilityPoll(usecase.Poll{Attempts: attempts, Interval: interval}),
			}
			if notifier != nil {
				opts = append(opts, usecase.WithNotifier(notifier))
			}

			uc := usecase.New(cfg, jiraSvc, zammadSvc, ledger, opts...)
			result, err := uc.Migrator.Run(ctx, usecase.MigrateOption{
				Issues:     issues,
				StartAt:    startAt,
				MaxResults: maxResults,
				UndoDamage: !noUndo,
			})
			if err != nil {
				if len(ledger.Snapshot()) > 0 {
					logger.Warn("Changed users were not reverted. Run `damage revert` to restore them",
						"location", ledger.Location())
				}
				return errutil.Handle(ctx, err, "migration failed")
			}

			logger.Info("Migration finished",
				"run_id", result.RunID,
				"issues", result.Issues,
				"created", result.Created,
				"skipped", result.Skipped,
				"failed", result.Failed,
				"comments", result.Comments,
				"attachment_notes", result.AttachmentNotes,
				"links", result.Links,
				"errors", result.Errors,
			)
			if result.Revert != nil && result.Revert.Failed > 0 {
				logger.Warn("Some users could not be reverted",
					"failed", result.Revert.Failed,
					"location", ledger.Location())
			}
			return nil
		},
	}
}
