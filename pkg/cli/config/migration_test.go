package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/cli/config"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
)

const baseYAML = `
jira:
  baseurl: https://jira.example.com
  authuser: migrator
  authpass: secret
  project: PRJ
  options:
    verify: false
zammad:
  baseurl: https://zammad.example.com
  authtoken: ztoken
mapping:
  issue:
    fields:
      summary: title
      description: article.body
    constants:
      group: Users
      article.type: note
    transforms:
      status: text
  comment:
    constants:
      type: note
  tags:
    default: [jira, migrated]
  attachment:
    matchlink:
      - '\[\^{filename}\]'
    matchinline:
      - '!{filename}(\|[^!]*)?!'
    replace:
      '<img src="{filenameurl}">': '[{filename}]'
  priority:
    values:
      blocker: "1 high"
      minor: "3 low"
    default: "2 normal"
issuelinks:
  directions: [inwardIssue, outwardIssue]
  mapping:
    parent: is child of
  match_all_unmapped_to_normal: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestLoadMigration(t *testing.T) {
	cfg, err := config.LoadMigration(writeFile(t, "base.yml", baseYAML))
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.Jira.BaseURL).Equal("https://jira.example.com")
	gt.Value(t, cfg.Jira.Project).Equal("PRJ")
	gt.Bool(t, cfg.Jira.Verify).False()
	gt.Bool(t, cfg.Zammad.Verify).True()
	gt.Value(t, cfg.Zammad.AuthToken).Equal("ztoken")

	gt.Value(t, cfg.Mapping.Issue.Key.Jira).Equal("id")
	gt.Value(t, cfg.Mapping.Issue.Key.Zammad).Equal("number")
	gt.Value(t, cfg.Mapping.User.Key.Jira).Equal("emailAddress")
	gt.Value(t, cfg.Mapping.User.Key.Zammad).Equal("email")
	gt.Array(t, cfg.Mapping.User.AgentRoleKeys).Length(1).Required()
	gt.Value(t, cfg.Mapping.User.AgentRoleKeys[0]).Equal(int64(2))

	gt.Value(t, cfg.Mapping.Issue.Fields["description"]).Equal("article.body")
	gt.Value(t, cfg.Mapping.Issue.Constants["article.type"]).Equal("note")
	gt.Value(t, cfg.Mapping.Issue.Transforms["status"]).Equal(types.ValueTransformText)
	gt.Value(t, cfg.Mapping.Comment.Constants["type"]).Equal("note")
	gt.Array(t, cfg.Mapping.DefaultTags).Length(2)
	gt.Bool(t, cfg.Mapping.ToLower).True()

	gt.Array(t, cfg.Mapping.Attachment.MatchLink).Length(1)
	gt.Value(t, cfg.Mapping.Attachment.Replace[`<img src="{filenameurl}">`]).Equal("[{filename}]")

	table, ok := cfg.Mapping.ValueTable("priority")
	gt.Bool(t, ok).True()
	gt.Value(t, table.Values["blocker"]).Equal("1 high")
	gt.Value(t, table.Default).Equal("2 normal")
	_, ok = cfg.Mapping.ValueTable("tags")
	gt.Bool(t, ok).False()

	gt.Array(t, cfg.IssueLinks.Directions).Length(2).Required()
	gt.Value(t, cfg.IssueLinks.Directions[0]).Equal(types.LinkDirectionInward)
	gt.Value(t, cfg.IssueLinks.Types["parent"]).Equal("is child of")
	gt.Bool(t, cfg.IssueLinks.MatchAllUnmappedToNormal).True()

	gt.NoError(t, config.ValidateMigration(cfg, true))
}

func TestLoadMigration_Merge(t *testing.T) {
	override := `
jira:
  project: OPS
mapping:
  issue:
    constants:
      group: Operations
  tags:
    default: [ops]
  mapping2lower: false
`
	cfg, err := config.LoadMigration(
		writeFile(t, "base.yml", baseYAML),
		writeFile(t, "override.yaml", override),
	)
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.Jira.Project).Equal("OPS")
	gt.Value(t, cfg.Jira.BaseURL).Equal("https://jira.example.com")
	gt.Value(t, cfg.Mapping.Issue.Constants["group"]).Equal("Operations")
	gt.Value(t, cfg.Mapping.Issue.Constants["article.type"]).Equal("note")
	gt.Array(t, cfg.Mapping.DefaultTags).Length(1).Required()
	gt.Value(t, cfg.Mapping.DefaultTags[0]).Equal("ops")
	gt.Bool(t, cfg.Mapping.ToLower).False()
}

func TestLoadMigration_TOML(t *testing.T) {
	doc := `
[jira]
baseurl = "https://jira.example.com"
project = "PRJ"

[zammad]
baseurl = "https://zammad.example.com"

[mapping.issue.key]
jira = "key"
zammad = "jira_key"

[mapping.issue.constants]
"article.internal" = true
`
	cfg, err := config.LoadMigration(writeFile(t, "config.toml", doc))
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.Mapping.Issue.Key.Jira).Equal("key")
	gt.Value(t, cfg.Mapping.Issue.Key.Zammad).Equal("jira_key")
	gt.Value(t, cfg.Mapping.Issue.Constants["article.internal"]).Equal(true)
	gt.Bool(t, cfg.Jira.Verify).True()
}

func TestLoadMigration_Env(t *testing.T) {
	t.Setenv("JIRA2ZAMMAD_CFG_ZAMMAD__AUTHTOKEN", "from-env")
	t.Setenv("JIRA2ZAMMAD_CFG_JIRA__PROJECT", "ENV")

	cfg, err := config.LoadMigration(writeFile(t, "base.yml", baseYAML))
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Zammad.AuthToken).Equal("from-env")
	gt.Value(t, cfg.Jira.Project).Equal("ENV")
}

func TestLoadMigration_Errors(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		_, err := config.LoadMigration()
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadMigration(filepath.Join(t.TempDir(), "none.yml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	t.Run("bad direction", func(t *testing.T) {
		_, err := config.LoadMigration(writeFile(t, "c.yml", "issuelinks:\n  directions: [sideways]\n"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("bad transform", func(t *testing.T) {
		_, err := config.LoadMigration(writeFile(t, "c.yml", "mapping:\n  issue:\n    transforms:\n      status: upper\n"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestValidateMigration(t *testing.T) {
	load := func(t *testing.T, doc string) error {
		t.Helper()
		cfg, err := config.LoadMigration(writeFile(t, "c.yml", doc))
		gt.NoError(t, err).Required()
		return config.ValidateMigration(cfg, true)
	}

	t.Run("missing zammad", func(t *testing.T) {
		err := load(t, "jira:\n  baseurl: https://jira\n  project: P\n")
		gt.Error(t, err).Is(config.ErrMissingValue)
	})

	t.Run("project optional when issues given", func(t *testing.T) {
		cfg, err := config.LoadMigration(writeFile(t, "c.yml",
			"jira:\n  baseurl: https://jira\nzammad:\n  baseurl: https://zammad\n"))
		gt.NoError(t, err).Required()
		gt.Error(t, config.ValidateMigration(cfg, true)).Is(config.ErrMissingValue)
		gt.NoError(t, config.ValidateMigration(cfg, false))
	})

	t.Run("unknown placeholder", func(t *testing.T) {
		doc := "jira:\n  baseurl: https://jira\n  project: P\nzammad:\n  baseurl: https://zammad\n" +
			"mapping:\n  attachment:\n    matchlink: ['{unknown}']\n"
		gt.Error(t, load(t, doc)).Is(config.ErrInvalidConfig)
	})

	t.Run("pattern does not compile", func(t *testing.T) {
		doc := "jira:\n  baseurl: https://jira\n  project: P\nzammad:\n  baseurl: https://zammad\n" +
			"mapping:\n  attachment:\n    matchinline: ['({filename}']\n"
		gt.Error(t, load(t, doc)).Is(config.ErrInvalidConfig)
	})
}
