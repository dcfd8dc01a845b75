package httpapi

import (
	"crypto/rand"
	"strings"
)

// nixBase32Alphabet is the alphabet used by Nix's base32 variant: digits
// first, then lowercase letters, with the visually ambiguous e, o, u, t
// removed.
const nixBase32Alphabet = "0123456789abcdfghijklmnpqrsvwxyz"

// GenerateToken returns a random nix-base32-style token of n source bytes,
// used as the server's URL path prefix (§6): the façade is authenticated by
// obscurity, not credentials, so the token's only job is to be
// unguessable.
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(n * 2)
	for _, c := range buf {
		b.WriteByte(nixBase32Alphabet[int(c)%len(nixBase32Alphabet)])
		b.WriteByte(nixBase32Alphabet[int(c>>3)%len(nixBase32Alphabet)])
	}
	return b.String(), nil
}
