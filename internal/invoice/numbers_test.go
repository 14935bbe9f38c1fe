package invoice

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected *float64
	}{
		{"european grouping", "1.234,56", ptr(1234.56)},
		{"english grouping", "1,234.56", ptr(1234.56)},
		{"several thousands separators", "1.234.567,89", ptr(1234567.89)},
		{"decimal comma", " 7,5 ", ptr(7.5)},
		{"negative decimal comma", "-3,5", ptr(-3.5)},
		{"plain integer string", "42", ptr(42)},
		{"numeric prefix", "12abc", ptr(12)},
		{"exponent", "1e3", ptr(1000)},
		{"empty string", "", nil},
		{"blank string", "   ", nil},
		{"letters", "abc", nil},
		{"nil", nil, nil},
		{"float", 19.99, ptr(19.99)},
		{"int", 7, ptr(7)},
		{"json number", json.Number("3.25"), ptr(3.25)},
		{"NaN", math.NaN(), nil},
		{"bool is not a number", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumber(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}
