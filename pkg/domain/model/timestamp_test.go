package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

func TestZammadTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"jira server offset", "2024-03-01T10:15:30.123+0100", "2024-03-01T09:15:30.123Z"},
		{"utc", "2024-03-01T10:15:30.000Z", "2024-03-01T10:15:30.000Z"},
		{"rfc3339", "2024-03-01T10:15:30+02:00", "2024-03-01T08:15:30.000Z"},
		{"unknown passes through", "yesterday", "yesterday"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, model.ZammadTime(tt.in)).Equal(tt.want)
		})
	}
}
