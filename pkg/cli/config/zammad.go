package config

import (
	"log/slog"
	"time"

	domainConfig "github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
	"github.com/urfave/cli/v3"
)

// Zammad is the flag group tuning requests against the destination
type Zammad struct {
	rate      float64
	threshold uint
	open      time.Duration
}

func (x *Zammad) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "zammad-rate",
			Usage:       "Maximum Zammad requests per second (0 for unlimited)",
			Category:    "Zammad",
			Destination: &x.rate,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_ZAMMAD_RATE"),
		},
		&cli.UintFlag{
			Name:        "zammad-failure-threshold",
			Usage:       "Consecutive server failures that suspend Zammad requests",
			Category:    "Zammad",
			Value:       zammad.DefaultFailureThreshold,
			Destination: &x.threshold,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_ZAMMAD_FAILURE_THRESHOLD"),
		},
		&cli.DurationFlag{
			Name:        "zammad-open-timeout",
			Usage:       "How long Zammad requests stay suspended after the threshold is hit",
			Category:    "Zammad",
			Value:       zammad.DefaultOpenTimeout,
			Destination: &x.open,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_ZAMMAD_OPEN_TIMEOUT"),
		},
	}
}

func (x Zammad) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("rate", x.rate),
		slog.Uint64("failure_threshold", uint64(x.threshold)),
		slog.Duration("open_timeout", x.open),
	)
}

// Configure builds the Zammad client. A token takes precedence over basic auth.
func (x *Zammad) Configure(cfg domainConfig.Zammad) (zammad.Service, error) {
	var opts []zammad.Option
	switch {
	case cfg.AuthToken != "":
		opts = append(opts, zammad.WithToken(cfg.AuthToken))
	case cfg.AuthUser != "":
		opts = append(opts, zammad.WithBasicAuth(cfg.AuthUser, cfg.AuthPass))
	}
	if !cfg.Verify {
		opts = append(opts, zammad.WithInsecureSkipVerify())
	}
	if x.rate > 0 {
		opts = append(opts, zammad.WithRateLimit(x.rate))
	}
	if x.threshold > 0 {
		opts = append(opts, zammad.WithCircuitBreaker(uint32(x.threshold), x.open)) // #nosec G115
	}

	return zammad.New(cfg.BaseURL, opts...)
}
