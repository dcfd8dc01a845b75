package disasm

import "sort"

// SubRegion is one contiguous run of instructions sharing a single source
// line within a hot region (4.E step 10).
type SubRegion struct {
	SourceLine   *uint32       `json:"source_line,omitempty"`
	SourceText   string        `json:"source_text,omitempty"`
	Instructions []Instruction `json:"instructions"`
}

// Region is either a hot range (grouped around sampled instructions, split
// into per-source-line sub-regions) or a synthetic gap marker between two
// non-contiguous ranges (4.E step 9), which serializes as
// `{"is_gap": true, "source_text": "..."}` and has no source_line or
// instructions field. SourceText carries that "..." marker; it is
// otherwise unused since the real source text lives on each SubRegion.
type Region struct {
	IsGap      bool        `json:"is_gap,omitempty"`
	SourceText string      `json:"source_text,omitempty"`
	SubRegions []SubRegion `json:"sub_regions,omitempty"`
}

// buildRegions groups insts into context windows around every sampled
// instruction (5 before, 5 after), merges overlapping windows, and splits
// each merged range into per-source-line sub-regions. Non-contiguous ranges
// get a synthetic gap marker between them. readLine resolves source text
// for a given line number; it may return "" when unavailable.
func buildRegions(insts []Instruction, readLine func(line uint32) string) []Region {
	var hotIdx []int
	for i, in := range insts {
		if in.Sampled {
			hotIdx = append(hotIdx, i)
		}
	}
	if len(hotIdx) == 0 {
		return nil
	}

	ranges := mergeWindows(hotIdx, len(insts), 5)

	var regions []Region
	for i, r := range ranges {
		if i > 0 && r.start > ranges[i-1].end+1 {
			regions = append(regions, Region{IsGap: true, SourceText: "..."})
		}
		regions = append(regions, Region{SubRegions: splitBySourceLine(insts[r.start:r.end+1], readLine)})
	}
	return regions
}

type idxRange struct{ start, end int }

func mergeWindows(hotIdx []int, total, pad int) []idxRange {
	sort.Ints(hotIdx)

	var windows []idxRange
	for _, i := range hotIdx {
		start := i - pad
		if start < 0 {
			start = 0
		}
		end := i + pad
		if end > total-1 {
			end = total - 1
		}
		windows = append(windows, idxRange{start, end})
	}

	var merged []idxRange
	for _, w := range windows {
		if len(merged) > 0 && w.start <= merged[len(merged)-1].end+1 {
			if w.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

func splitBySourceLine(insts []Instruction, readLine func(line uint32) string) []SubRegion {
	var out []SubRegion
	var cur *SubRegion

	for _, in := range insts {
		if cur == nil || !sameLine(cur.SourceLine, in.SourceLine) {
			var text string
			if in.SourceLine != nil && readLine != nil {
				text = readLine(*in.SourceLine)
			}
			out = append(out, SubRegion{SourceLine: in.SourceLine, SourceText: text})
			cur = &out[len(out)-1]
		}
		cur.Instructions = append(cur.Instructions, in)
	}
	return out
}

func sameLine(a, b *uint32) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
