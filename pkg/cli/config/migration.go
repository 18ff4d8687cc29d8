package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	domainConfig "github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

const (
	// EnvPrefix marks environment variables overriding configuration keys.
	// JIRA2ZAMMAD_CFG_JIRA__AUTHTOKEN sets jira.authtoken.
	EnvPrefix = "JIRA2ZAMMAD_CFG_"

	// keyDelim separates koanf key paths. Configuration keys such as
	// "article.type" or attachment patterns contain dots themselves.
	keyDelim = "::"
)

// reservedMappingKeys are the sections of "mapping" that are not value tables.
var reservedMappingKeys = []string{"issue", "comment", "user", "tags", "attachment", "mapping2lower"}

type rawKey struct {
	Jira   string `koanf:"jira"`
	Zammad string `koanf:"zammad"`
}

type rawDocument struct {
	Jira struct {
		BaseURL   string `koanf:"baseurl"`
		AuthUser  string `koanf:"authuser"`
		AuthPass  string `koanf:"authpass"`
		AuthToken string `koanf:"authtoken"`
		Project   string `koanf:"project"`
		Options   struct {
			Verify *bool `koanf:"verify"`
		} `koanf:"options"`
	} `koanf:"jira"`

	Zammad struct {
		BaseURL   string `koanf:"baseurl"`
		AuthUser  string `koanf:"authuser"`
		AuthPass  string `koanf:"authpass"`
		AuthToken string `koanf:"authtoken"`
		Verify    *bool  `koanf:"verify"`
	} `koanf:"zammad"`

	Mapping struct {
		Issue struct {
			Key        rawKey            `koanf:"key"`
			Fields     map[string]string `koanf:"fields"`
			Constants  map[string]any    `koanf:"constants"`
			Transforms map[string]string `koanf:"transforms"`
		} `koanf:"issue"`
		Comment struct {
			Constants map[string]any `koanf:"constants"`
		} `koanf:"comment"`
		User struct {
			Key           rawKey         `koanf:"key"`
			Constants     map[string]any `koanf:"constants"`
			AgentRoleKeys []int64        `koanf:"agent_role_keys"`
		} `koanf:"user"`
		Tags struct {
			Default []string `koanf:"default"`
		} `koanf:"tags"`
		Attachment struct {
			MatchLink   []string          `koanf:"matchlink"`
			MatchInline []string          `koanf:"matchinline"`
			Replace     map[string]string `koanf:"replace"`
		} `koanf:"attachment"`
		Mapping2Lower *bool `koanf:"mapping2lower"`
	} `koanf:"mapping"`

	IssueLinks struct {
		Directions               []string          `koanf:"directions"`
		Mapping                  map[string]string `koanf:"mapping"`
		MatchAllUnmappedToNormal bool              `koanf:"match_all_unmapped_to_normal"`
	} `koanf:"issuelinks"`
}

type rawValueTable struct {
	Values  map[string]any `koanf:"values"`
	Default any            `koanf:"default"`
}

// Mapping is the flag group selecting the migration configuration files
type Mapping struct {
	paths []string
}

func (x *Mapping) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Configuration file (YAML or TOML); repeat to merge, later files win",
			Category:    "Configuration",
			Required:    true,
			Destination: &x.paths,
			Sources:     cli.EnvVars("JIRA2ZAMMAD_CONFIG"),
		},
	}
}

func (x Mapping) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("paths", x.paths))
}

// Paths returns the configured files
func (x *Mapping) Paths() []string {
	return x.paths
}

// Load reads and merges the configured files
func (x *Mapping) Load() (*domainConfig.Migration, error) {
	return LoadMigration(x.paths...)
}

// LoadMigration merges the files in order, applies the environment layer and
// defaults, and decodes the result. Later files override earlier ones; maps
// merge deeply and lists are replaced.
func LoadMigration(paths ...string) (*domainConfig.Migration, error) {
	if len(paths) == 0 {
		return nil, goerr.Wrap(ErrConfigNotFound, "no configuration file given")
	}

	k := koanf.New(keyDelim)
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, goerr.Wrap(ErrConfigNotFound, "cannot read configuration file",
				goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
		}

		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			parser = tomlParser{}
		default:
			parser = yaml.Parser()
		}

		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, goerr.Wrap(err, "failed to load configuration file", goerr.V(ConfigPathKey, path))
		}
	}

	envProvider := env.Provider(EnvPrefix, keyDelim, func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", keyDelim)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, goerr.Wrap(err, "failed to load environment configuration")
	}

	return decode(k)
}

func decode(k *koanf.Koanf) (*domainConfig.Migration, error) {
	var raw rawDocument
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to decode configuration", goerr.V("cause", err.Error()))
	}

	cfg := &domainConfig.Migration{
		Jira: domainConfig.Jira{
			BaseURL:   raw.Jira.BaseURL,
			AuthUser:  raw.Jira.AuthUser,
			AuthPass:  raw.Jira.AuthPass,
			AuthToken: raw.Jira.AuthToken,
			Project:   raw.Jira.Project,
			Verify:    boolOr(raw.Jira.Options.Verify, true),
		},
		Zammad: domainConfig.Zammad{
			BaseURL:   raw.Zammad.BaseURL,
			AuthUser:  raw.Zammad.AuthUser,
			AuthPass:  raw.Zammad.AuthPass,
			AuthToken: raw.Zammad.AuthToken,
			Verify:    boolOr(raw.Zammad.Verify, true),
		},
		Mapping: domainConfig.Mapping{
			Issue: domainConfig.IssueMapping{
				Key: domainConfig.KeyMapping{
					Jira:   stringOr(raw.Mapping.Issue.Key.Jira, domainConfig.DefaultIssueKeyJira),
					Zammad: stringOr(raw.Mapping.Issue.Key.Zammad, domainConfig.DefaultIssueKeyZammad),
				},
				Fields:    raw.Mapping.Issue.Fields,
				Constants: raw.Mapping.Issue.Constants,
			},
			Comment: domainConfig.CommentMapping{
				Constants: raw.Mapping.Comment.Constants,
			},
			User: domainConfig.UserMapping{
				Key: domainConfig.KeyMapping{
					Jira:   stringOr(raw.Mapping.User.Key.Jira, domainConfig.DefaultUserKeyJira),
					Zammad: stringOr(raw.Mapping.User.Key.Zammad, domainConfig.DefaultUserKeyZammad),
				},
				Constants:     raw.Mapping.User.Constants,
				AgentRoleKeys: raw.Mapping.User.AgentRoleKeys,
			},
			DefaultTags: raw.Mapping.Tags.Default,
			Attachment: domainConfig.AttachmentMapping{
				MatchLink:   raw.Mapping.Attachment.MatchLink,
				MatchInline: raw.Mapping.Attachment.MatchInline,
				Replace:     raw.Mapping.Attachment.Replace,
			},
			ValueTables: make(map[string]domainConfig.ValueTable),
			ToLower:     boolOr(raw.Mapping.Mapping2Lower, true),
		},
		IssueLinks: domainConfig.IssueLinks{
			Types:                    raw.IssueLinks.Mapping,
			MatchAllUnmappedToNormal: raw.IssueLinks.MatchAllUnmappedToNormal,
		},
	}
	if len(cfg.Mapping.User.AgentRoleKeys) == 0 {
		cfg.Mapping.User.AgentRoleKeys = slices.Clone(domainConfig.DefaultAgentRoleKeys)
	}

	if len(raw.Mapping.Issue.Transforms) > 0 {
		cfg.Mapping.Issue.Transforms = make(map[string]types.ValueTransform, len(raw.Mapping.Issue.Transforms))
		for field, name := range raw.Mapping.Issue.Transforms {
			t, err := types.ParseValueTransform(name)
			if err != nil {
				return nil, goerr.Wrap(ErrInvalidConfig, err.Error(), goerr.V(ConfigKeyKey, "mapping.issue.transforms."+field))
			}
			cfg.Mapping.Issue.Transforms[field] = t
		}
	}

	for _, d := range raw.IssueLinks.Directions {
		dir, err := types.ParseLinkDirection(d)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidConfig, err.Error(), goerr.V(ConfigKeyKey, "issuelinks.directions"))
		}
		cfg.IssueLinks.Directions = append(cfg.IssueLinks.Directions, dir)
	}

	for _, field := range k.MapKeys("mapping") {
		if slices.Contains(reservedMappingKeys, field) {
			continue
		}
		path := "mapping" + keyDelim + field
		if !k.Exists(path + keyDelim + "values") {
			continue
		}
		var table rawValueTable
		if err := k.Unmarshal(path, &table); err != nil {
			return nil, goerr.Wrap(ErrInvalidConfig, "failed to decode value table",
				goerr.V(ConfigKeyKey, "mapping."+field), goerr.V("cause", err.Error()))
		}
		cfg.Mapping.ValueTables[field] = domainConfig.ValueTable{Values: table.Values, Default: table.Default}
	}

	return cfg, nil
}

// ValidateMigration checks that cfg can drive a migration. The Jira project
// may be omitted when issues are selected explicitly.
func ValidateMigration(cfg *domainConfig.Migration, requireProject bool) error {
	required := []struct {
		key   string
		value string
	}{
		{"jira.baseurl", cfg.Jira.BaseURL},
		{"zammad.baseurl", cfg.Zammad.BaseURL},
		{"mapping.issue.key.jira", cfg.Mapping.Issue.Key.Jira},
		{"mapping.issue.key.zammad", cfg.Mapping.Issue.Key.Zammad},
	}
	if requireProject {
		required = append(required, struct {
			key   string
			value string
		}{"jira.project", cfg.Jira.Project})
	}
	for _, r := range required {
		if r.value == "" {
			return goerr.Wrap(ErrMissingValue, "configuration key is required", goerr.V(ConfigKeyKey, r.key))
		}
	}

	for _, d := range cfg.IssueLinks.Directions {
		if !d.IsValid() {
			return goerr.Wrap(ErrInvalidConfig, "invalid link direction", goerr.V(ConfigKeyKey, "issuelinks.directions"), goerr.V("direction", d.String()))
		}
	}

	patterns := slices.Concat(cfg.Mapping.Attachment.MatchLink, cfg.Mapping.Attachment.MatchInline)
	for p := range cfg.Mapping.Attachment.Replace {
		patterns = append(patterns, p)
	}
	for _, p := range patterns {
		if err := checkPattern(p); err != nil {
			return err
		}
	}
	for p, repl := range cfg.Mapping.Attachment.Replace {
		if _, err := model.ExpandTemplate(repl, samplePlaceholders); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid attachment replacement",
				goerr.V(PatternKey, p), goerr.V("cause", err.Error()))
		}
	}
	return nil
}

var samplePlaceholders = map[string]string{
	model.PlaceholderJiraBaseURL:   regexp.QuoteMeta("https://jira.example.com"),
	model.PlaceholderJiraIssue:     regexp.QuoteMeta("PRJ-1"),
	model.PlaceholderFilename:      regexp.QuoteMeta("file name.png"),
	model.PlaceholderFilenameURL:   regexp.QuoteMeta("file+name.png"),
	model.PlaceholderFilenameUnq:   regexp.QuoteMeta("file name.png"),
	model.PlaceholderAttachmentURL: regexp.QuoteMeta("https://jira.example.com/secure/attachment/1/file+name.png"),
	model.PlaceholderAttachmentID:  "1",
}

func checkPattern(p string) error {
	expr, err := model.ExpandTemplate(p, samplePlaceholders)
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid attachment pattern", goerr.V(PatternKey, p), goerr.V("cause", err.Error()))
	}
	if _, err := regexp.Compile(expr); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "attachment pattern does not compile", goerr.V(PatternKey, p), goerr.V("cause", err.Error()))
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
