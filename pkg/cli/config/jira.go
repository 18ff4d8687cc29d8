package config

import (
	domainConfig "github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/service/jira"
)

// NewJira builds the Jira client from the migration configuration.
// A token takes precedence over basic auth.
func NewJira(cfg domainConfig.Jira) (jira.Service, error) {
	var opts []jira.Option
	switch {
	case cfg.AuthToken != "":
		opts = append(opts, jira.WithToken(cfg.AuthToken))
	case cfg.AuthUser != "":
		opts = append(opts, jira.WithBasicAuth(cfg.AuthUser, cfg.AuthPass))
	}
	if !cfg.Verify {
		opts = append(opts, jira.WithInsecureSkipVerify())
	}
	return jira.New(cfg.BaseURL, opts...)
}
