// Package disasm implements spec component E: resolving a function to its
// absolute virtual address, locating its bytes inside the owning library's
// on-disk object file, disassembling them, and grouping the result into
// sampled regions.
package disasm

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mbbill/samply-for-ai/internal/analysis"
	"github.com/mbbill/samply-for-ai/internal/profile"
)

// FunctionInfo carries the metadata AsmResult reports about the resolved
// function regardless of whether disassembly itself succeeded.
type FunctionInfo struct {
	Name        string `json:"name"`
	Library     string `json:"library,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	BaseAddress uint64 `json:"base_address,omitempty"`
	Size        uint32 `json:"func_size,omitempty"`
}

// AsmResult is the response shape for the asm query (4.E / §6 AsmResponse).
type AsmResult struct {
	Function FunctionInfo `json:"function"`
	Regions  []Region     `json:"regions,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Service disassembles functions out of a decoded profile's libraries. It
// holds no cache: every call re-reads the binary from disk (§5 Resource
// policy).
type Service struct {
	profile *profile.Profile
}

// NewService builds a disassembly service bound to a decoded profile.
func NewService(p *profile.Profile) *Service {
	return &Service{profile: p}
}

// Disassemble resolves pattern to a function and, when its metadata and
// owning library can be recovered, disassembles its full byte range,
// annotated with per-instruction sample counts and grouped into regions
// (4.E steps 1-10).
func (s *Service) Disassemble(pattern, threadFilter string) AsmResult {
	agg := analysis.Aggregate(s.profile, threadFilter)
	name := analysis.ResolvePattern(agg.FuncStats, pattern)

	fs, ok := agg.FuncStats[name]
	if !ok {
		return AsmResult{Function: FunctionInfo{Name: name}, Error: fmt.Sprintf("function %q not found", name)}
	}

	threadIdx, funcIdx := fs.FirstSeen.ThreadIndex, fs.FirstSeen.FuncIndex
	frameIdx := -1
	th := &s.profile.Threads[threadIdx]
	for fi, funcRef := range th.Frames.Func {
		if funcRef == funcIdx {
			frameIdx = fi
			break
		}
	}

	base, size, _, ok := s.profile.NativeSymbolFor(threadIdx, frameIdx)
	if !ok || size == 0 {
		return AsmResult{Function: FunctionInfo{Name: name}, Error: missingMetadataErr("base address or size unavailable").Error()}
	}
	lib, ok := s.profile.FuncLibrary(threadIdx, funcIdx)
	if !ok {
		return AsmResult{Function: FunctionInfo{Name: name}, Error: missingMetadataErr("owning library could not be resolved").Error()}
	}

	info := FunctionInfo{Name: name, Library: lib.Name, FilePath: lib.Path, BaseAddress: base, Size: size}
	if fp, ok := s.profile.FuncFileName(threadIdx, funcIdx); ok {
		info.FilePath = fp
	}

	img, err := openObjectImage(lib.Path)
	if err != nil {
		return AsmResult{Function: info, Error: binaryMissingErr(lib.Path, err).Error()}
	}
	defer img.close()

	absoluteVA := base + img.imageBase()
	sec, found := img.textSectionFor(absoluteVA)
	if !found {
		return AsmResult{Function: info, Error: outOfSectionErr(fmt.Sprintf("0x%x not inside any executable section", absoluteVA)).Error()}
	}

	mode, err := resolveArchMode(lib.Arch)
	if err != nil {
		return AsmResult{Function: info, Error: err.Error()}
	}

	offset := absoluteVA - sec.addr
	if offset >= uint64(len(sec.data)) {
		return AsmResult{Function: info, Error: outOfSectionErr("function offset beyond section data").Error()}
	}
	end := offset + uint64(size)
	if end > uint64(len(sec.data)) {
		end = uint64(len(sec.data))
	}
	code := sec.data[offset:end]

	insts, err := decodeRange(mode, code, base)
	if err != nil {
		return AsmResult{Function: info, Error: err.Error()}
	}
	annotateInstructions(insts, fs)

	regions := buildRegions(insts, sourceLineReader(info.FilePath))

	return AsmResult{Function: info, Regions: regions}
}

func annotateInstructions(insts []Instruction, fs *analysis.FuncStats) {
	for i := range insts {
		stat, ok := fs.AddressSamples[insts[i].AddressRelative]
		if !ok {
			continue
		}
		insts[i].Sampled = true
		if fs.SelfSamples > 0 {
			insts[i].Percent = 100 * float64(stat.Weight) / float64(fs.SelfSamples)
		}
		insts[i].SourceLine = stat.FirstLine
	}
}

// sourceLineReader returns a reader that pulls a single line of text out of
// path on demand; it never caches, matching the service's no-cache
// resource policy, and silently returns "" for any failure (missing file,
// short file, permission error).
func sourceLineReader(path string) func(line uint32) string {
	return func(line uint32) string {
		if path == "" {
			return ""
		}
		f, err := os.Open(path)
		if err != nil {
			return ""
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		var n uint32
		for scanner.Scan() {
			n++
			if n == line {
				return scanner.Text()
			}
		}
		return ""
	}
}
