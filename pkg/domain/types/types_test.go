package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
)

func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.Identity
		wantErr bool
	}{
		{"plain address", "jane@example.com", false},
		{"subdomain", "j.doe@mail.example.org", false},
		{"empty", "", true},
		{"missing at", "jane.example.com", true},
		{"missing dot in domain", "jane@localhost", true},
		{"whitespace", "jane doe@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Identity.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentity_Equal(t *testing.T) {
	gt.Bool(t, types.Identity("Jane@Example.com").Equal("jane@example.COM")).True()
	gt.Bool(t, types.Identity("jane@example.com").Equal("john@example.com")).False()
	gt.Value(t, types.Identity("Jane@Example.com").Lower()).Equal(types.Identity("jane@example.com"))
}

func TestParseLinkDirection(t *testing.T) {
	for _, d := range types.AllLinkDirections() {
		got, err := types.ParseLinkDirection(d.String())
		gt.NoError(t, err)
		gt.Value(t, got).Equal(d)
	}

	_, err := types.ParseLinkDirection("sideways")
	gt.Error(t, err)
}

func TestParseValueTransform(t *testing.T) {
	for _, v := range types.AllValueTransforms() {
		got, err := types.ParseValueTransform(v.String())
		gt.NoError(t, err)
		gt.Value(t, got).Equal(v)
	}

	_, err := types.ParseValueTransform("upper")
	gt.Error(t, err)
}
