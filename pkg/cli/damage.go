package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/cli/config"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdDamage() *cli.Command {
	return &cli.Command{
		Name:  "damage",
		Usage: "Inspect or revert the user changes recorded by a migration",
		Commands: []*cli.Command{
			cmdDamageShow(),
			cmdDamageRevert(),
		},
	}
}

func cmdDamageShow() *cli.Command {
	var damageCfg config.Damage

	return &cli.Command{
		Name:  "show",
		Usage: "Print the recorded original values of changed users",
		Flags: damageCfg.LocationFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, closeRepo, err := damageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open damage storage")
			}
			defer closeRepo()

			exists, err := repo.Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				_, _ = fmt.Fprintf(c.Root().Writer, "No damage ledger at %s\n", repo.Location())
				return nil
			}

			damage, err := repo.Load(ctx)
			if err != nil {
				return err
			}
			printDamage(c.Root().Writer, repo.Location(), damage)
			return nil
		},
	}
}

func printDamage(w io.Writer, location string, damage model.Damage) {
	header := color.New(color.Bold)
	user := color.New(color.FgCyan)
	field := color.New(color.FgYellow)

	_, _ = header.Fprintf(w, "%s: %d user(s)\n", location, len(damage))
	for _, id := range damage.UserIDs() {
		_, _ = user.Fprintf(w, "user %d\n", id)
		fields := damage[id]
		for _, name := range slices.Sorted(maps.Keys(fields)) {
			_, _ = field.Fprintf(w, "  %s", name)
			_, _ = fmt.Fprintf(w, ": %v\n", fields[name])
		}
	}
}

func cmdDamageRevert() *cli.Command {
	var mappingCfg config.Mapping
	var damageCfg config.Damage
	var zammadCfg config.Zammad

	var flags []cli.Flag
	flags = append(flags, mappingCfg.Flags()...)
	flags = append(flags, damageCfg.LocationFlags()...)
	flags = append(flags, zammadCfg.Flags()...)

	return &cli.Command{
		Name:  "revert",
		Usage: "Restore the recorded original values of changed users",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			cfg, err := mappingCfg.Load()
			if err != nil {
				return err
			}
			zammadSvc, err := zammadCfg.Configure(cfg.Zammad)
			if err != nil {
				return goerr.Wrap(err, "failed to create zammad client")
			}

			repo, closeRepo, err := damageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open damage storage")
			}
			defer closeRepo()

			ledger, err := usecase.NewDamageLedger(ctx, repo, true)
			if err != nil {
				return err
			}
			if len(ledger.Snapshot()) == 0 {
				logger.Info("Nothing to revert", "location", ledger.Location())
				return nil
			}

			result, err := ledger.RevertAll(ctx, zammadSvc)
			if err != nil {
				return err
			}
			logger.Info("Revert finished",
				"reverted", result.Reverted,
				"failed", result.Failed,
				"location", ledger.Location(),
			)
			if result.Failed > 0 {
				return goerr.New("some users could not be reverted",
					goerr.V("failed", result.Failed), goerr.V("location", ledger.Location()))
			}
			return nil
		},
	}
}
