package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/cli/config"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var mappingCfg config.Mapping

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate configuration files and print a summary of the mapping",
		Flags:   mappingCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			cfg, err := mappingCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			if err := config.ValidateMigration(cfg, false); err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			if cfg.Jira.Project == "" {
				logger.Warn("jira.project is not set, migrate requires --jira-issue")
			}

			logger.Info("Configuration validation passed", "paths", mappingCfg.Paths())

			w := c.Root().Writer
			_, _ = fmt.Fprintf(w, "jira:   %s (project %q)\n", cfg.Jira.BaseURL, cfg.Jira.Project)
			_, _ = fmt.Fprintf(w, "zammad: %s\n", cfg.Zammad.BaseURL)
			_, _ = fmt.Fprintf(w, "issue key: %s -> %s\n", cfg.Mapping.Issue.Key.Jira, cfg.Mapping.Issue.Key.Zammad)
			_, _ = fmt.Fprintf(w, "user key:  %s -> %s\n", cfg.Mapping.User.Key.Jira, cfg.Mapping.User.Key.Zammad)
			for _, src := range slices.Sorted(maps.Keys(cfg.Mapping.Issue.Fields)) {
				_, _ = fmt.Fprintf(w, "field: %s -> %s\n", src, cfg.Mapping.Issue.Fields[src])
			}
			for _, field := range slices.Sorted(maps.Keys(cfg.Mapping.ValueTables)) {
				_, _ = fmt.Fprintf(w, "value table: %s (%d values)\n", field, len(cfg.Mapping.ValueTables[field].Values))
			}
			_, _ = fmt.Fprintf(w, "link directions: %v\n", cfg.IssueLinks.Directions)
			return nil
		},
	}
}
