package gcs_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/repository/gcs"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"nested object", "gs://migrations/jira/damage.yml", "migrations", "jira/damage.yml", false},
		{"flat object", "gs://b/d.yml", "b", "d.yml", false},
		{"not gs", "/var/tmp/damage.yml", "", "", true},
		{"bucket only", "gs://migrations", "", "", true},
		{"empty object", "gs://migrations/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := gcs.ParseURL(tt.url)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, bucket).Equal(tt.bucket)
			gt.Value(t, object).Equal(tt.object)
		})
	}
}
