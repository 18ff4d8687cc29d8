package model

import (
	"bytes"
	"maps"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Damage maps a Zammad user id to the original values of the fields the
// migration changed on that user.
type Damage map[int64]map[string]any

// UserIDs returns the recorded user ids in ascending order.
func (d Damage) UserIDs() []int64 {
	return slices.Sorted(maps.Keys(d))
}

// Clone returns an independent copy.
func (d Damage) Clone() Damage {
	c := make(Damage, len(d))
	for id, fields := range d {
		c[id] = maps.Clone(fields)
	}
	return c
}

// Encode renders the ledger as a YAML document with explicit start and sorted keys.
func (d Damage) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[int64]map[string]any(d)); err != nil {
		return nil, goerr.Wrap(err, "failed to encode damage")
	}
	if err := enc.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to flush damage encoder")
	}
	return buf.Bytes(), nil
}

// DecodeDamage parses a document written by Encode. An empty document yields an empty ledger.
func DecodeDamage(data []byte) (Damage, error) {
	var raw map[int64]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode damage")
	}
	d := make(Damage, len(raw))
	for id, fields := range raw {
		if fields == nil {
			fields = map[string]any{}
		}
		d[id] = fields
	}
	return d, nil
}
