package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want Position
		ok   bool
	}{
		{"address", PositionAddress, true},
		{"TOP", PositionTop, true},
		{" impact ", PositionImpact, true},
		{"follow_through", PositionFollowThrough, true},
		{"follow-through", "", false},
		{"backswing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePosition(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestPositionsCSV_RoundTrip(t *testing.T) {
	// Upload order is preserved, not canonical order.
	in := []Position{PositionImpact, PositionAddress}
	csv := PositionsCSV(in)
	assert.Equal(t, "impact,address", csv)
	assert.Equal(t, in, PositionsFromCSV(csv))
}

func TestPositionsFromCSV_SkipsUnknown(t *testing.T) {
	assert.Equal(t, []Position{PositionTop}, PositionsFromCSV("top,warmup"))
	assert.Nil(t, PositionsFromCSV(""))
}

func TestAnnotationEmpty(t *testing.T) {
	assert.True(t, Annotation{}.Empty())
	assert.True(t, Annotation{Club: "  "}.Empty())
	assert.False(t, Annotation{ShotOutcome: "slice"}.Empty())
}
