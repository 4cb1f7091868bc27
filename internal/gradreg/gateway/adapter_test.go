package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBillDeskAdapterMapAuthStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected Outcome
	}{
		{
			name:     "success code",
			code:     "0300",
			expected: OutcomePaid,
		},
		{
			name:     "failure code",
			code:     "0399",
			expected: OutcomeFailed,
		},
		{
			name:     "pending code stays pending",
			code:     "0002",
			expected: OutcomePending,
		},
		{
			name:     "unknown code stays pending",
			code:     "0777",
			expected: OutcomePending,
		},
		{
			name:     "empty code stays pending",
			code:     "",
			expected: OutcomePending,
		},
	}
	adapter := NewBillDeskAdapter()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, adapter.MapAuthStatus(test.code))
		})
	}
}
