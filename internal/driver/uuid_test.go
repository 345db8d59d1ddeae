package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short form passes through",
			input:    "2a19",
			expected: "2a19",
		},
		{
			name:     "uppercase is lowered",
			input:    "2A19",
			expected: "2a19",
		},
		{
			name:     "0x prefix is stripped",
			input:    "0x180F",
			expected: "180f",
		},
		{
			name:     "dashes are stripped",
			input:    "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
			expected: "6e400001b5a3f393e0a9e50e24dcca9e",
		},
		{
			name:     "SIG base UUID collapses to short form",
			input:    "00002a19-0000-1000-8000-00805f9b34fb",
			expected: "2a19",
		},
		{
			name:     "non-base 128-bit UUID keeps full form",
			input:    "12342a19-0000-1000-8000-00805f9b34fb",
			expected: "12342a1900001000800000805f9b34fb",
		},
		{
			name:     "surrounding whitespace is trimmed",
			input:    "  180f ",
			expected: "180f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestNormalizeUUIDs(t *testing.T) {
	assert.Nil(t, NormalizeUUIDs(nil))
	assert.Equal(t, []string{"180f", "2a19"},
		NormalizeUUIDs([]string{"180F", "00002a19-0000-1000-8000-00805f9b34fb"}))
}

func TestValidateUUIDs(t *testing.T) {
	t.Run("valid list normalizes", func(t *testing.T) {
		out, err := ValidateUUIDs("180F", "2a19")
		assert.NoError(t, err)
		assert.Equal(t, []string{"180f", "2a19"}, out)
	})

	t.Run("empty argument list rejected", func(t *testing.T) {
		_, err := ValidateUUIDs()
		assert.Error(t, err)
	})

	t.Run("empty UUID rejected", func(t *testing.T) {
		_, err := ValidateUUIDs("180f", "")
		assert.Error(t, err)
	})

	t.Run("non-hex characters rejected", func(t *testing.T) {
		_, err := ValidateUUIDs("batt")
		assert.Error(t, err)
	})
}
