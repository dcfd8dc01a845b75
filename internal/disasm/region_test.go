package disasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func u32(v uint32) *uint32 { return &v }

func TestBuildRegions_EmptyWhenNoSampledInstructions(t *testing.T) {
	insts := []Instruction{{AddressRelative: 0}, {AddressRelative: 1}}
	regions := buildRegions(insts, nil)
	require.Empty(t, regions)
}

func TestBuildRegions_SingleHotWindow(t *testing.T) {
	insts := make([]Instruction, 20)
	for i := range insts {
		insts[i] = Instruction{AddressRelative: uint64(i)}
	}
	insts[10].Sampled = true

	regions := buildRegions(insts, nil)
	require.Len(t, regions, 1)
	require.False(t, regions[0].IsGap)

	var total int
	for _, sr := range regions[0].SubRegions {
		total += len(sr.Instructions)
	}
	require.Equal(t, 11, total) // indices 5..15 inclusive
}

func TestBuildRegions_GapMarkerBetweenDistantHotRanges(t *testing.T) {
	insts := make([]Instruction, 60)
	for i := range insts {
		insts[i] = Instruction{AddressRelative: uint64(i)}
	}
	insts[5].Sampled = true
	insts[50].Sampled = true

	regions := buildRegions(insts, nil)
	require.Len(t, regions, 3)
	require.False(t, regions[0].IsGap)
	require.True(t, regions[1].IsGap)
	require.False(t, regions[2].IsGap)
}

func TestBuildRegions_SplitsSubRegionsOnSourceLineChange(t *testing.T) {
	insts := []Instruction{
		{AddressRelative: 0, Sampled: true, SourceLine: u32(10)},
		{AddressRelative: 1, SourceLine: u32(10)},
		{AddressRelative: 2, SourceLine: u32(11)},
	}
	regions := buildRegions(insts, nil)
	require.Len(t, regions, 1)
	require.Len(t, regions[0].SubRegions, 2)
	require.Equal(t, uint32(10), *regions[0].SubRegions[0].SourceLine)
	require.Equal(t, uint32(11), *regions[0].SubRegions[1].SourceLine)
}

func TestResolveArchMode(t *testing.T) {
	cases := map[string]archMode{
		"":          archX86_64,
		"x86_64":    archX86_64,
		"x86-64":    archX86_64,
		"x86":       archX86,
		"i386":      archX86,
		"arm64":     archARM64,
		"aarch64":   archARM64,
	}
	for arch, want := range cases {
		got, err := resolveArchMode(arch)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := resolveArchMode("mips")
	require.Error(t, err)
}
