package profile

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// wireProfile mirrors the on-disk JSON shape described in spec §3 and §6:
// a columnar struct-of-arrays table per thread, each column sharing a
// declared length that the decoder validates against the column's actual
// size (Open Question #2).
type wireProfile struct {
	Meta    wireMeta     `json:"meta"`
	Libs    []wireLib    `json:"libs"`
	Shared  wireShared   `json:"shared"`
	Threads []wireThread `json:"threads"`
}

type wireMeta struct {
	Product   string  `json:"product"`
	Interval  float64 `json:"interval"`
	StartTime float64 `json:"startTime"`
}

type wireShared struct {
	StringArray []string `json:"stringArray"`
}

type wireLib struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	DebugName string `json:"debugName"`
	DebugPath string `json:"debugPath"`
	DebugID   string `json:"breakpadId"`
	CodeID    string `json:"codeId"`
	Arch      string `json:"arch"`
}

type wireThread struct {
	Name          string            `json:"name"`
	Pid           string            `json:"pid"`
	Tid           string            `json:"tid"`
	IsMainThread  bool              `json:"isMainThread"`
	StringArray   []string          `json:"stringArray"`
	Samples       wireSamples       `json:"samples"`
	StackTable    wireStackTable    `json:"stackTable"`
	FrameTable    wireFrameTable    `json:"frameTable"`
	FuncTable     wireFuncTable     `json:"funcTable"`
	NativeSymbols wireNativeSymbols `json:"nativeSymbols"`
	ResourceTable wireResourceTable `json:"resourceTable"`
}

type wireSamples struct {
	Stack  []*int  `json:"stack"`
	Weight []int64 `json:"weight"`
	Length int     `json:"length"`
}

type wireStackTable struct {
	Prefix []*int `json:"prefix"`
	Frame  []int  `json:"frame"`
	Length int    `json:"length"`
}

type wireFrameTable struct {
	Func         []int     `json:"func"`
	Line         []*uint32 `json:"line"`
	Address      []int64   `json:"address"`
	NativeSymbol []*int    `json:"nativeSymbol"`
	Length       int       `json:"length"`
}

type wireFuncTable struct {
	Name       []int     `json:"name"`
	FileName   []*int    `json:"fileName"`
	LineNumber []*uint32 `json:"lineNumber"`
	Resource   []int32   `json:"resource"`
	Length     int       `json:"length"`
}

type wireNativeSymbols struct {
	Address      []uint64  `json:"address"`
	FunctionSize []*uint32 `json:"functionSize"`
	LibIndex     []int     `json:"libIndex"`
	Name         []int     `json:"name"`
	Length       int       `json:"length"`
}

type wireResourceTable struct {
	Lib    []*int `json:"lib"`
	Name   []int  `json:"name"`
	Length int    `json:"length"`
}

// DecodeFile loads a profile from disk, transparently decompressing it when
// the path ends in ".gz" (spec §4.A).
func DecodeFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr("open profile file", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, ioErr("open gzip stream", err)
		}
		defer gz.Close()
		r = gz
	}

	return Decode(r)
}

// Decode parses an already-decompressed profile JSON stream.
func Decode(r io.Reader) (*Profile, error) {
	var wire wireProfile
	dec := json.NewDecoder(bufio.NewReader(r))
	if err := dec.Decode(&wire); err != nil {
		return nil, syntaxErr("parse profile JSON", err)
	}
	return buildProfile(&wire)
}

func buildProfile(w *wireProfile) (*Profile, error) {
	p := &Profile{
		Product:          w.Meta.Product,
		IntervalMillis:   w.Meta.Interval,
		GlobalStringPool: w.Shared.StringArray,
	}

	for _, l := range w.Libs {
		p.Libraries = append(p.Libraries, Library{
			Name:      l.Name,
			Path:      l.Path,
			DebugName: l.DebugName,
			DebugPath: l.DebugPath,
			DebugID:   l.DebugID,
			CodeID:    l.CodeID,
			Arch:      l.Arch,
		})
	}

	for i, wt := range w.Threads {
		th, err := buildThread(wt)
		if err != nil {
			return nil, fmt.Errorf("thread %d (%q): %w", i, wt.Name, err)
		}
		p.Threads = append(p.Threads, th)
	}

	return p, nil
}

func buildThread(w wireThread) (Thread, error) {
	if err := checkLen("samples", w.Samples.Length, len(w.Samples.Stack), len(w.Samples.Weight)); err != nil {
		return Thread{}, err
	}
	if err := checkLen("stackTable", w.StackTable.Length, len(w.StackTable.Prefix), len(w.StackTable.Frame)); err != nil {
		return Thread{}, err
	}
	if err := checkLen("frameTable", w.FrameTable.Length, len(w.FrameTable.Func), len(w.FrameTable.Line), len(w.FrameTable.Address), len(w.FrameTable.NativeSymbol)); err != nil {
		return Thread{}, err
	}
	if err := checkLen("funcTable", w.FuncTable.Length, len(w.FuncTable.Name), len(w.FuncTable.FileName), len(w.FuncTable.LineNumber), len(w.FuncTable.Resource)); err != nil {
		return Thread{}, err
	}
	if err := checkLen("nativeSymbols", w.NativeSymbols.Length, len(w.NativeSymbols.Address), len(w.NativeSymbols.FunctionSize), len(w.NativeSymbols.LibIndex), len(w.NativeSymbols.Name)); err != nil {
		return Thread{}, err
	}
	if err := checkLen("resourceTable", w.ResourceTable.Length, len(w.ResourceTable.Lib), len(w.ResourceTable.Name)); err != nil {
		return Thread{}, err
	}

	return Thread{
		Name:         w.Name,
		ProcessID:    w.Pid,
		ThreadID:     w.Tid,
		IsMainThread: w.IsMainThread,
		LocalStrings: w.StringArray,
		Samples: SampleTable{
			Stack:  w.Samples.Stack,
			Weight: w.Samples.Weight,
		},
		Stacks: StackTable{
			Prefix: w.StackTable.Prefix,
			Frame:  w.StackTable.Frame,
		},
		Frames: FrameTable{
			Func:         w.FrameTable.Func,
			Line:         w.FrameTable.Line,
			Address:      w.FrameTable.Address,
			NativeSymbol: w.FrameTable.NativeSymbol,
		},
		Funcs: FuncTable{
			Name:       w.FuncTable.Name,
			FileName:   w.FuncTable.FileName,
			LineNumber: w.FuncTable.LineNumber,
			Resource:   w.FuncTable.Resource,
		},
		NativeSymbols: NativeSymbolTable{
			Address:      w.NativeSymbols.Address,
			FunctionSize: w.NativeSymbols.FunctionSize,
			LibIndex:     w.NativeSymbols.LibIndex,
			Name:         w.NativeSymbols.Name,
		},
		Resources: ResourceTable{
			Lib:  w.ResourceTable.Lib,
			Name: w.ResourceTable.Name,
		},
	}, nil
}

// checkLen validates that every column of a table agrees with the table's
// declared length. A table absent from the JSON decodes to length 0 with no
// columns, which is valid (an empty table), not an error.
func checkLen(table string, declared int, columnLens ...int) error {
	for _, n := range columnLens {
		if n != declared {
			return semanticErr(fmt.Sprintf("%s: column length %d disagrees with declared length %d", table, n, declared))
		}
	}
	return nil
}
