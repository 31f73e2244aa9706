package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsNumberDecimalComma(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3.5", 3.5, true},
		{"2,5", 2.5, true},
		{"1.234,56", 1234.56, true},
		{"1.234.567,8", 1234567.8, true},
		{" -0,75 ", -0.75, true},
		{"1,234.56", 0, false},
		{"1,2,3", 0, false},
		{"12.34,5", 0, false},
		{"1.,5", 0, false},
		{"1,", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := asNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestAsTextLargeFloat(t *testing.T) {
	s, ok := asText(1e20)
	assert.True(t, ok)
	assert.Equal(t, "100000000000000000000", s)

	s, _ = asText(-1e300)
	assert.Equal(t, "-1", s[:2])
	assert.Len(t, s, 302)

	s, _ = asText(float64(42))
	assert.Equal(t, "42", s)
}

func TestDropdownLargeNumericValue(t *testing.T) {
	f := field("d", TypeDropdown, true)
	f.Options = []FieldOption{{ID: "1", Label: "Grande", Value: "100000000000000000000"}}
	assert.Empty(t, NewValidator(nil).Validate([]DynamicField{f}, map[string]any{"d": 1e20}))
}
