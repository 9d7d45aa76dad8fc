package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Ingest.UploadPath = "uploads/"
	s.Ingest.MaxUploadSize = 100 * 1024 * 1024
	s.Retention.Enabled = true
	s.Retention.MaxAge = "365d"
	s.Retention.CheckHour = 2
	s.Retention.CheckMinute = 0
	s.WebServer.Enabled = true
	s.WebServer.Port = "8080"
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "callvault.db"
	return s
}

func TestValidateSettingsValid(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty upload path", func(s *Settings) { s.Ingest.UploadPath = "" }},
		{"zero max upload size", func(s *Settings) { s.Ingest.MaxUploadSize = 0 }},
		{"bad retention period", func(s *Settings) { s.Retention.MaxAge = "soon" }},
		{"check hour out of range", func(s *Settings) { s.Retention.CheckHour = 24 }},
		{"check minute out of range", func(s *Settings) { s.Retention.CheckMinute = 60 }},
		{"bad web server port", func(s *Settings) { s.WebServer.Port = "http" }},
		{"both outputs enabled", func(s *Settings) { s.Output.MySQL.Enabled = true }},
		{"no output enabled", func(s *Settings) { s.Output.SQLite.Enabled = false }},
		{"sqlite without path", func(s *Settings) { s.Output.SQLite.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestValidateSettingsRetentionDisabledSkipsChecks(t *testing.T) {
	s := validSettings()
	s.Retention.Enabled = false
	s.Retention.MaxAge = "nonsense"
	assert.NoError(t, ValidateSettings(s))
}
