package rest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIntDefault(t *testing.T) {
	require.Equal(t, 1, parseIntDefault("", 1))
	require.Equal(t, 1, parseIntDefault("abc", 1))
	require.Equal(t, 7, parseIntDefault(" 7 ", 1))
	require.Equal(t, -2, parseIntDefault("-2", 1))
}

func TestParseRentBound(t *testing.T) {
	require.Nil(t, parseRentBound(""))
	require.Nil(t, parseRentBound("cheap"))

	got := parseRentBound("1500")
	require.NotNil(t, got)
	require.Equal(t, int64(1500), *got)
}
