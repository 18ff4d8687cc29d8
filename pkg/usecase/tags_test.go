package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
)

func TestDeriveTags(t *testing.T) {
	tests := []struct {
		name       string
		defaults   []string
		components []string
		labels     []string
		want       []string
	}{
		{"underscore labels are dropped", nil, nil, []string{"foo_bar"}, []string{}},
		{"short labels are upper-cased", nil, nil, []string{"ab"}, []string{"AB"}},
		{"long labels are capitalized", nil, nil, []string{"longlabel"}, []string{"Longlabel"}},
		{"hyphenated labels keep segments", nil, nil, []string{"multi-word-tag"}, []string{"Multi-Word-Tag"}},
		{"garbage is stripped", nil, nil, []string{"c++!"}, []string{"C"}},
		{"empty result is skipped", nil, nil, []string{"!!!"}, []string{}},
		{
			"defaults then components then labels",
			[]string{"jira"}, []string{"BACKEND"}, []string{"urgent"},
			[]string{"jira", "Backend", "Urgent"},
		},
		{
			"duplicates appear once",
			[]string{"Backend"}, []string{"backend"}, []string{"backend", "Backend", "ab", "AB"},
			[]string{"Backend", "AB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.DeriveTags(tt.defaults, tt.components, tt.labels)
			gt.Value(t, got).Equal(tt.want)
		})
	}
}
