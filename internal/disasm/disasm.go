package disasm

import (
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Instruction is one decoded instruction within a disassembled function
// (4.E step 8).
type Instruction struct {
	AddressRelative uint64  `json:"address_relative"`
	Text            string  `json:"text"`
	Sampled         bool    `json:"sampled,omitempty"`
	Percent         float64 `json:"percent,omitempty"`
	SourceLine      *uint32 `json:"source_line,omitempty"`
	Len             int     `json:"-"`
}

// archMode selects the disassembler for a library's arch tag (4.E step 7).
type archMode int

const (
	archX86_64 archMode = iota
	archX86
	archARM64
)

func resolveArchMode(arch string) (archMode, error) {
	switch arch {
	case "aarch64", "arm64":
		return archARM64, nil
	case "", "x86_64", "x86-64":
		return archX86_64, nil
	case "x86", "i386":
		return archX86, nil
	default:
		return 0, unsupportedArchErr(arch)
	}
}

// decodeRange disassembles every instruction in code, which represents the
// bytes starting at baseAddr (relative address, not the absolute VA).
func decodeRange(mode archMode, code []byte, baseAddr uint64) ([]Instruction, error) {
	var out []Instruction
	offset := 0
	for offset < len(code) {
		text, n, ok := decodeOne(mode, code[offset:], baseAddr+uint64(offset))
		if !ok || n <= 0 {
			// Unable to decode further bytes; stop rather than loop forever
			// or misinterpret padding as instructions.
			break
		}
		out = append(out, Instruction{
			AddressRelative: baseAddr + uint64(offset),
			Text:            text,
			Len:             n,
		})
		offset += n
	}
	return out, nil
}

func decodeOne(mode archMode, code []byte, pc uint64) (string, int, bool) {
	switch mode {
	case archARM64:
		inst, err := arm64asm.Decode(code)
		if err != nil {
			return "", 4, false
		}
		return arm64asm.GNUSyntax(inst), 4, true
	case archX86_64:
		inst, err := x86asm.Decode(code, 64)
		if err != nil {
			return "", 1, false
		}
		return x86asm.GNUSyntax(inst, pc, nil), inst.Len, true
	case archX86:
		inst, err := x86asm.Decode(code, 32)
		if err != nil {
			return "", 1, false
		}
		return x86asm.GNUSyntax(inst, pc, nil), inst.Len, true
	default:
		return "", 0, false
	}
}
