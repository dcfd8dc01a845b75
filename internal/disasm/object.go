package disasm

import (
	"debug/elf"
	"debug/macho"
	"fmt"
	"os"
	"strings"

	"github.com/saferwall/pe"
)

// textSection is the one executable section an absolute VA resolved into,
// along with the bytes needed to slice the requested function out of it.
type textSection struct {
	name      string
	addr      uint64
	data      []byte
}

// objectImage is the minimal view over an ELF/Mach-O/PE object file this
// package needs: an image base and a way to locate the executable section
// containing an absolute virtual address.
type objectImage interface {
	imageBase() uint64
	textSectionFor(absoluteVA uint64) (textSection, bool)
	close() error
}

// openObjectImage opens path and parses it as whichever object format its
// magic bytes indicate (4.E step 4).
func openObjectImage(path string) (objectImage, error) {
	if img, err := openELF(path); err == nil {
		return img, nil
	}
	if img, err := openMachO(path); err == nil {
		return img, nil
	}
	if img, err := openPE(path); err == nil {
		return img, nil
	}
	return nil, parseFailureErr(fmt.Sprintf("%s is not a recognized ELF, Mach-O, or PE object", path), nil)
}

// --- ELF ---

type elfImage struct {
	f    *elf.File
	base uint64
}

func openELF(path string) (objectImage, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	var base uint64
	first := true
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		if first || prog.Vaddr < base {
			base = prog.Vaddr
			first = false
		}
	}
	return &elfImage{f: f, base: base}, nil
}

func (i *elfImage) imageBase() uint64 { return i.base }

func (i *elfImage) textSectionFor(absoluteVA uint64) (textSection, bool) {
	for _, sec := range i.f.Sections {
		if !isTextName(sec.Name) {
			continue
		}
		if absoluteVA < sec.Addr || absoluteVA >= sec.Addr+sec.Size {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		return textSection{name: sec.Name, addr: sec.Addr, data: data}, true
	}
	return textSection{}, false
}

func (i *elfImage) close() error { return i.f.Close() }

// --- Mach-O ---

type machoImage struct {
	f    *macho.File
	base uint64
}

func openMachO(path string) (objectImage, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, err
	}
	var base uint64
	first := true
	for _, load := range f.Loads {
		seg, ok := load.(*macho.Segment)
		if !ok || seg.Filesz == 0 || seg.Name == "__PAGEZERO" {
			continue
		}
		if first || seg.Addr < base {
			base = seg.Addr
			first = false
		}
	}
	return &machoImage{f: f, base: base}, nil
}

func (i *machoImage) imageBase() uint64 { return i.base }

func (i *machoImage) textSectionFor(absoluteVA uint64) (textSection, bool) {
	for _, sec := range i.f.Sections {
		if !isTextName(sec.Name) {
			continue
		}
		if absoluteVA < sec.Addr || absoluteVA >= sec.Addr+sec.Size {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		return textSection{name: sec.Name, addr: sec.Addr, data: data}, true
	}
	return textSection{}, false
}

func (i *machoImage) close() error { return i.f.Close() }

// --- PE ---

type peImage struct {
	f       *pe.File
	raw     []byte
	base    uint64
}

func openPE(path string) (objectImage, error) {
	f, err := pe.New(path, &pe.Options{})
	if err != nil {
		return nil, err
	}
	if err := f.Parse(); err != nil {
		f.CloseFile()
		return nil, err
	}

	// saferwall/pe doesn't expose raw file bytes through its public API
	// (its mmap is unexported), so section payloads are read independently
	// using the header/section-table metadata it parsed.
	raw, err := os.ReadFile(path)
	if err != nil {
		f.CloseFile()
		return nil, err
	}

	var base uint64
	switch oh := f.NtHeader.OptionalHeader.(type) {
	case pe.ImageOptionalHeader64:
		base = oh.ImageBase
	case pe.ImageOptionalHeader32:
		base = uint64(oh.ImageBase)
	}
	return &peImage{f: f, raw: raw, base: base}, nil
}

func (i *peImage) imageBase() uint64 { return i.base }

func (i *peImage) textSectionFor(absoluteVA uint64) (textSection, bool) {
	rva := absoluteVA - i.base
	for _, sec := range i.f.Sections {
		name := strings.TrimRight(string(sec.Header.Name[:]), "\x00")
		if !isTextName(name) {
			continue
		}
		start := uint64(sec.Header.VirtualAddress)
		size := uint64(sec.Header.VirtualSize)
		if rva < start || rva >= start+size {
			continue
		}
		rawStart := uint64(sec.Header.PointerToRawData)
		rawEnd := rawStart + uint64(sec.Header.SizeOfRawData)
		if rawEnd > uint64(len(i.raw)) {
			rawEnd = uint64(len(i.raw))
		}
		if rawStart >= rawEnd {
			continue
		}
		return textSection{name: name, addr: i.base + start, data: i.raw[rawStart:rawEnd]}, true
	}
	return textSection{}, false
}

func (i *peImage) close() error {
	i.f.CloseFile()
	return nil
}

func isTextName(name string) bool {
	return name == "__text" || name == ".text" || strings.Contains(name, "text")
}
