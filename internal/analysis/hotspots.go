package analysis

import (
	"sort"

	"github.com/mbbill/samply-for-ai/internal/profile"
)

// LineHotspot is one (line, samples) entry within a function's hot_lines.
type LineHotspot struct {
	Line    uint32  `json:"line"`
	Samples int64   `json:"samples"`
	Percent float64 `json:"percent"`
}

// AddressHotspot is one (offset, samples) entry within a function's
// hot_addresses, offset relative to the function's resolved base address.
type AddressHotspot struct {
	Offset  uint64  `json:"offset"`
	Samples int64   `json:"samples"`
	Percent float64 `json:"percent"`
	Line    *uint32 `json:"line,omitempty"`
}

// HotspotEntry is one ranked row of a hotspots query (4.D Hotspots).
type HotspotEntry struct {
	Rank         int              `json:"rank"`
	Name         string           `json:"name"`
	Library      string           `json:"library,omitempty"`
	FilePath     string           `json:"file_path,omitempty"`
	Line         *uint32          `json:"line,omitempty"`
	BaseAddress  uint64           `json:"base_address,omitempty"`
	HasAddress   bool             `json:"has_address,omitempty"`
	FuncSize     uint32           `json:"func_size,omitempty"`
	DebugName    string           `json:"debug_name,omitempty"`
	DebugID      string           `json:"debug_id,omitempty"`
	SelfSamples  int64            `json:"self_samples"`
	TotalSamples int64            `json:"total_samples"`
	SelfPercent  float64          `json:"self_percent"`
	TotalPercent float64          `json:"total_percent"`
	HotLines     []LineHotspot    `json:"hot_lines,omitempty"`
	HotAddresses []AddressHotspot `json:"hot_addresses,omitempty"`
}

// HotspotsOptions configures a hotspots query.
type HotspotsOptions struct {
	Limit            int
	ThreadFilter     string
	IncludeLines     bool
	IncludeAddresses bool
}

// Hotspots runs the aggregator over p and returns up to opts.Limit
// HotspotEntry rows ordered by self-time descending (4.D Hotspots).
func Hotspots(p *profile.Profile, opts HotspotsOptions) []HotspotEntry {
	agg := Aggregate(p, opts.ThreadFilter)
	return hotspotsFromAggregation(p, agg, opts)
}

func hotspotsFromAggregation(p *profile.Profile, agg *Aggregation, opts HotspotsOptions) []HotspotEntry {
	names := make([]string, 0, len(agg.FuncStats))
	for name := range agg.FuncStats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := agg.FuncStats[names[i]], agg.FuncStats[names[j]]
		if a.SelfSamples != b.SelfSamples {
			return a.SelfSamples > b.SelfSamples
		}
		return names[i] < names[j]
	})

	limit := opts.Limit
	if limit <= 0 || limit > len(names) {
		limit = len(names)
	}

	entries := make([]HotspotEntry, 0, limit)
	for i := 0; i < limit; i++ {
		fs := agg.FuncStats[names[i]]
		entries = append(entries, buildHotspotEntry(p, agg, fs, i+1, opts))
	}
	return entries
}

func buildHotspotEntry(p *profile.Profile, agg *Aggregation, fs *FuncStats, rank int, opts HotspotsOptions) HotspotEntry {
	e := HotspotEntry{
		Rank:         rank,
		Name:         fs.Name,
		SelfSamples:  fs.SelfSamples,
		TotalSamples: fs.TotalSamples,
	}

	if agg.TotalWeight > 0 {
		e.SelfPercent = 100 * float64(fs.SelfSamples) / float64(agg.TotalWeight)
		e.TotalPercent = 100 * float64(fs.TotalSamples) / float64(agg.TotalWeight)
	}

	threadIdx, funcIdx := fs.FirstSeen.ThreadIndex, fs.FirstSeen.FuncIndex
	if fp, ok := p.FuncFileName(threadIdx, funcIdx); ok {
		e.FilePath = fp
	}
	if ln, ok := p.FuncLineNumber(threadIdx, funcIdx); ok {
		e.Line = &ln
	}
	if lib, ok := p.FuncLibrary(threadIdx, funcIdx); ok {
		e.Library = lib.Name
		e.DebugName = lib.DebugName
		e.DebugID = lib.DebugID
	}
	if base, size, _, ok := p.NativeSymbolFor(threadIdx, frameIndexForFunc(p, threadIdx, funcIdx)); ok {
		e.BaseAddress = base
		e.FuncSize = size
		e.HasAddress = true
	}

	if opts.IncludeLines {
		e.HotLines = buildLineHotspots(fs)
	}
	if opts.IncludeAddresses {
		e.HotAddresses = buildAddressHotspots(fs, e.BaseAddress, e.HasAddress)
	}

	return e
}

// frameIndexForFunc finds the lowest-index frame in threadIdx's frame table
// that references funcIdx, so native symbol/address metadata can be
// recovered. Returns -1 when no such frame is found (NativeSymbolFor then
// reports !ok).
func frameIndexForFunc(p *profile.Profile, threadIdx, funcIdx int) int {
	th := &p.Threads[threadIdx]
	for frameIdx, fi := range th.Frames.Func {
		if fi == funcIdx {
			return frameIdx
		}
	}
	return -1
}

func buildLineHotspots(fs *FuncStats) []LineHotspot {
	if len(fs.LineSamples) == 0 {
		return nil
	}
	out := make([]LineHotspot, 0, len(fs.LineSamples))
	for line, samples := range fs.LineSamples {
		var pct float64
		if fs.SelfSamples > 0 {
			pct = 100 * float64(samples) / float64(fs.SelfSamples)
		}
		out = append(out, LineHotspot{Line: line, Samples: samples, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Samples != out[j].Samples {
			return out[i].Samples > out[j].Samples
		}
		return out[i].Line < out[j].Line
	})
	return out
}

func buildAddressHotspots(fs *FuncStats, base uint64, haveBase bool) []AddressHotspot {
	if len(fs.AddressSamples) == 0 {
		return nil
	}
	out := make([]AddressHotspot, 0, len(fs.AddressSamples))
	for addr, stat := range fs.AddressSamples {
		var pct float64
		if fs.SelfSamples > 0 {
			pct = 100 * float64(stat.Weight) / float64(fs.SelfSamples)
		}
		offset := addr
		if haveBase && addr >= base {
			offset = addr - base
		}
		out = append(out, AddressHotspot{Offset: offset, Samples: stat.Weight, Percent: pct, Line: stat.FirstLine})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Samples != out[j].Samples {
			return out[i].Samples > out[j].Samples
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}
