package envelope

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraceID(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Za-z0-9]{10,35}$`)
	for i := 0; i < 10; i++ {
		traceID, err := NewTraceID()
		require.NoError(t, err)
		assert.Regexp(t, pattern, traceID)
	}
}

func TestTimestampCompact(t *testing.T) {
	tests := []struct {
		name     string
		instant  time.Time
		expected string
	}{
		{
			name:     "UTC instant shifted to IST",
			instant:  time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			expected: "20240315173000",
		},
		{
			name:     "midnight rollover across the zone offset",
			instant:  time.Date(2024, 12, 31, 20, 45, 0, 0, time.UTC),
			expected: "20250101021500",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, TimestampCompact(test.instant))
		})
	}
}
