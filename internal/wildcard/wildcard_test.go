package wildcard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/wildcard"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"*", "anything", true},
		{"", "anything", true},
		{"   ", "anything", true},
		{" * ", "anything", true},
		{"ABC-*", "ABC-123", true},
		{"ABC-*", "XYZ-1", false},
		{"A.1", "A.1", true},
		{"A.1", "AX1", false},
		{"ABC", "ABC-123", true},
		{"abc", "ABC", false},
		{"A*9", "A-long-9-tail", true},
		{"A*9", "A-long-tail", false},
		{"X(1", "X(1)", true},
		{"[", "[abc", true},
		{"B*", "AB", false},
		{"A**B", "AxB", true},
		{"A*B*C", "A-C-B", false},
		{"A*B*C", "A-B-B-C-rest", true},
		{"*-2", "SW10000-2", true},
		{"*-2", "SW10000.2", false},
		{"A\\d", "A\\d", true},
		{"A+", "AA", false},
		{"A?", "A?", true},
		{"ABC", "AB", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, wildcard.Match(tc.pattern, tc.subject), "pattern %q subject %q", tc.pattern, tc.subject)
	}
}

func TestMatchAny(t *testing.T) {
	patterns := wildcard.SplitPatterns("A*, B100 ,C.2")
	require.True(t, wildcard.MatchAny(patterns, "A55"))
	require.True(t, wildcard.MatchAny(patterns, "B100"))
	require.True(t, wildcard.MatchAny(patterns, "C.2"))
	require.False(t, wildcard.MatchAny(patterns, "C-2"))
	require.False(t, wildcard.MatchAny(nil, "A55"))
}

func TestSplitPatternsKeepsEmptyEntries(t *testing.T) {
	require.Equal(t, []string{"A", "", "B"}, wildcard.SplitPatterns("A,,B"))
	// an empty entry matches everything, the same way a lone "*" does
	require.True(t, wildcard.MatchAny(wildcard.SplitPatterns("Z*,"), "A1"))
}

func BenchmarkMatch(b *testing.B) {
	patterns := wildcard.SplitPatterns("SW1*, SAMPLE-*,*.9, GIFT")
	for i := 0; i < b.N; i++ {
		wildcard.MatchAny(patterns, "SW20000.2")
	}
}
