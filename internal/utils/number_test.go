package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"101.6869", 101.6869, true},
		{"3,1390", 3.139, true},
		{"1,234.50", 1234.5, true},
		{"1.234,50", 1234.5, true},
		{"1 234,5", 1234.5, true},
		{"-2.5", -2.5, true},
		{"abc", 0, false},
		{"12 orang", 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDecimal(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 0, ParseCount(""))
	assert.Equal(t, 512, ParseCount("512"))
	assert.Equal(t, 12, ParseCount("12.9"))
	assert.Equal(t, 1200, ParseCount("1,200.0"))
	assert.Equal(t, 1234, ParseCount("1,234"))
	assert.Equal(t, 2500, ParseCount("2.500"))
}

func TestParseCoordinate(t *testing.T) {
	assert.Nil(t, ParseCoordinate(""))
	assert.Nil(t, ParseCoordinate("0"))
	assert.Nil(t, ParseCoordinate("n/a"))
	if c := ParseCoordinate("3.1390"); assert.NotNil(t, c) {
		assert.InDelta(t, 3.139, *c, 1e-9)
	}
}
