package disasm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTextName(t *testing.T) {
	cases := map[string]bool{
		"__text":     true,
		".text":      true,
		".text$mn":   true,
		"__TEXT":     false, // segment name, not section name; must be exact/substring on "text"
		".data":      false,
		".rdata":     false,
		"__cstring":  false,
	}
	for name, want := range cases {
		require.Equal(t, want, isTextName(name), "isTextName(%q)", name)
	}
}

func TestOpenObjectImage_UnrecognizedFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-binary.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an object file at all"), 0o644))

	_, err := openObjectImage(path)
	require.Error(t, err)
}
