package httpapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken_LengthAndAlphabet(t *testing.T) {
	tok, err := GenerateToken(24)
	require.NoError(t, err)
	require.Len(t, tok, 48)

	for _, c := range tok {
		require.Contains(t, nixBase32Alphabet, string(c))
	}
}

func TestGenerateToken_DiffersAcrossCalls(t *testing.T) {
	a, err := GenerateToken(24)
	require.NoError(t, err)
	b, err := GenerateToken(24)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestGenerateToken_ZeroLength(t *testing.T) {
	tok, err := GenerateToken(0)
	require.NoError(t, err)
	require.Empty(t, tok)
}
