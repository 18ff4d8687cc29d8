package config

import (
	"context"
	"log/slog"
	"strings"

	"github.com/secmon-lab/jira2zammad/pkg/domain/interfaces"
	"github.com/secmon-lab/jira2zammad/pkg/repository/file"
	"github.com/secmon-lab/jira2zammad/pkg/repository/gcs"
	"github.com/secmon-lab/jira2zammad/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// Damage is the flag group locating the damage ledger
type Damage struct {
	location string
	resume   bool
}

func (x *Damage) Flags() []cli.Flag {
	return append(x.LocationFlags(),
		&cli.BoolFlag{
			Name:        "continue-damage-file",
			Aliases:     []string{"D"},
			Usage:       "Resume an existing damage ledger instead of refusing to start",
			Category:    "Damage",
			Destination: &x.resume,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_CONTINUE_DAMAGE_FILE"),
		},
	)
}

// LocationFlags returns only the ledger location flag
func (x *Damage) LocationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "damage-file",
			Aliases:     []string{"d"},
			Usage:       "Damage ledger location, a local path or " + gcs.Scheme + "bucket/object",
			Category:    "Damage",
			Value:       file.DefaultPath,
			Destination: &x.location,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_DAMAGE_FILE"),
		},
	}
}

func (x Damage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("location", x.location),
		slog.Bool("resume", x.resume),
	)
}

// Resume reports whether an existing ledger may be continued
func (x *Damage) Resume() bool {
	return x.resume
}

// Configure opens the ledger storage. The returned closer releases any client.
func (x *Damage) Configure(ctx context.Context) (interfaces.DamageRepository, func(), error) {
	if strings.HasPrefix(x.location, gcs.Scheme) {
		repo, err := gcs.NewDamage(ctx, x.location)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { safe.Close(ctx, repo) }, nil
	}
	return file.NewDamage(x.location), func() {}, nil
}
