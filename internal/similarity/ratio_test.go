package similarity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"ben", "ben", 1},
		{"abcd", "bcde", 0.75},
		{"jon", "john", 6.0 / 7.0},
		{"katherine", "catherine", 16.0 / 18.0},
		{"ben", "benjamin", 6.0 / 11.0},
		{"xyz", "abc", 0},
		{"zoë", "zoe", 4.0 / 6.0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			require.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatioRecursesOnBothSides(t *testing.T) {
	// "abc" matches first, then "d" on the right of the differing characters.
	require.InDelta(t, 8.0/10.0, Ratio("abcxd", "abcyd"), 1e-9)
}

func TestRatioIsSymmetricForNames(t *testing.T) {
	require.InDelta(t, Ratio("smith", "smyth"), Ratio("smyth", "smith"), 1e-9)
}
