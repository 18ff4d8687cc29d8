package config

import (
	"github.com/knadh/koanf/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// tomlParser lets koanf read TOML files.
type tomlParser struct{}

var _ koanf.Parser = tomlParser{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML")
	}
	return out, nil
}

func (tomlParser) Marshal(o map[string]any) ([]byte, error) {
	b, err := toml.Marshal(o)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode TOML")
	}
	return b, nil
}
