package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetentionPeriod(t *testing.T) {
	tests := []struct {
		input     string
		wantHours int
		wantErr   bool
	}{
		{"24h", 24, false},
		{"365d", 365 * 24, false},
		{"2w", 2 * 24 * 7, false},
		{"3m", 3 * 24 * 30, false},
		{"1y", 24 * 365, false},
		{"48", 48, false},
		{"", 0, true},
		{"d", 0, true},
		{"12x", 0, true},
		{"x12", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hours, err := ParseRetentionPeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, hours)
		})
	}
}

func TestGenerateRandomSecret(t *testing.T) {
	a := GenerateRandomSecret()
	b := GenerateRandomSecret()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b, "two generated secrets should differ")
	assert.GreaterOrEqual(t, len(a), 32)
}
