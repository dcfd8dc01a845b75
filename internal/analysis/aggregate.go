// Package analysis implements the single-pass aggregator and the query
// planner built on top of it (hotspots, callers, callees, summary,
// drilldown): spec components C and D.
package analysis

import "github.com/mbbill/samply-for-ai/internal/profile"

// FuncRef identifies the first observation of a function name, used later
// to recover library/file/line/address metadata for that name.
type FuncRef struct {
	FuncIndex   int
	ThreadIndex int
}

// AddressStat tracks sample weight and the first line seen at one address.
type AddressStat struct {
	Weight    int64
	FirstLine *uint32
}

// FuncStats accumulates self/total sample weight and per-line/per-address
// detail for one function name (4.C). Functions from different libraries
// that share a name are merged into one FuncStats.
type FuncStats struct {
	Name            string
	SelfSamples     int64
	TotalSamples    int64
	FirstSeen       FuncRef
	LineSamples     map[uint32]int64
	AddressSamples  map[uint64]*AddressStat
}

// EdgeStats accumulates sample weight flowing across one caller/callee
// edge, plus the first observation of the edge's far endpoint.
type EdgeStats struct {
	Samples   int64
	FirstSeen FuncRef
}

// Aggregation is the full output of one aggregator pass: per-function
// statistics plus the caller/callee edge maps, keyed by resolved function
// name to fuse duplicate functions shared across threads.
type Aggregation struct {
	FuncStats    map[string]*FuncStats
	CallerEdges  map[string]map[string]*EdgeStats // callee -> caller -> stats
	CalleeEdges  map[string]map[string]*EdgeStats // caller -> callee -> stats
	TotalWeight  int64
}

// Aggregate walks every sample across p's threads whose display name
// contains threadFilter (matching all threads when empty), and returns the
// per-function statistics and caller/callee edges described in spec 4.C.
func Aggregate(p *profile.Profile, threadFilter string) *Aggregation {
	agg := &Aggregation{
		FuncStats:   make(map[string]*FuncStats),
		CallerEdges: make(map[string]map[string]*EdgeStats),
		CalleeEdges: make(map[string]map[string]*EdgeStats),
	}

	for threadIdx := range p.Threads {
		th := &p.Threads[threadIdx]
		if threadFilter != "" && !containsFold(th.Name, threadFilter) {
			continue
		}
		agg.walkThread(p, threadIdx, th)
	}

	return agg
}

func (agg *Aggregation) walkThread(p *profile.Profile, threadIdx int, th *profile.Thread) {
	for i := 0; i < th.Samples.Len(); i++ {
		stackRef := th.Samples.Stack[i]
		if stackRef == nil {
			continue
		}
		weight := th.Samples.Weight[i]
		agg.TotalWeight += weight

		walk := p.WalkStack(threadIdx, *stackRef)
		if len(walk) == 0 {
			continue
		}

		leaf := walk[0]
		leafName := p.FuncName(threadIdx, leaf.FuncIndex)
		leafStats := agg.statsFor(leafName, leaf.FuncIndex, threadIdx)
		leafStats.SelfSamples += weight

		leafLine := th.Frames.Line[leaf.FrameIndex]
		if leafLine != nil {
			if leafStats.LineSamples == nil {
				leafStats.LineSamples = make(map[uint32]int64)
			}
			leafStats.LineSamples[*leafLine] += weight
		}
		if addr, ok := th.Frames.OptionalAddress(leaf.FrameIndex); ok {
			if leafStats.AddressSamples == nil {
				leafStats.AddressSamples = make(map[uint64]*AddressStat)
			}
			as, exists := leafStats.AddressSamples[addr]
			if !exists {
				as = &AddressStat{}
				leafStats.AddressSamples[addr] = as
			}
			as.Weight += weight
			if as.FirstLine == nil && leafLine != nil {
				as.FirstLine = leafLine
			}
		}

		// Total-time: credit each distinct name once per sample, on first
		// occurrence walking leaf to root.
		seen := make(map[string]bool, len(walk))
		for _, node := range walk {
			name := p.FuncName(threadIdx, node.FuncIndex)
			if seen[name] {
				continue
			}
			seen[name] = true
			agg.statsFor(name, node.FuncIndex, threadIdx).TotalSamples += weight
		}

		// Pair accumulation: every adjacent (leaf-side, root-side) pair in
		// the walk contributes a caller/callee edge.
		for i := 0; i+1 < len(walk); i++ {
			calleeNode := walk[i]
			callerNode := walk[i+1]
			calleeName := p.FuncName(threadIdx, calleeNode.FuncIndex)
			callerName := p.FuncName(threadIdx, callerNode.FuncIndex)

			agg.edgeFor(agg.CallerEdges, calleeName, callerName, callerNode.FuncIndex, threadIdx).Samples += weight
			agg.edgeFor(agg.CalleeEdges, callerName, calleeName, calleeNode.FuncIndex, threadIdx).Samples += weight
		}
	}
}

func (agg *Aggregation) statsFor(name string, funcIdx, threadIdx int) *FuncStats {
	fs, ok := agg.FuncStats[name]
	if !ok {
		fs = &FuncStats{
			Name:      name,
			FirstSeen: FuncRef{FuncIndex: funcIdx, ThreadIndex: threadIdx},
		}
		agg.FuncStats[name] = fs
	}
	return fs
}

func (agg *Aggregation) edgeFor(table map[string]map[string]*EdgeStats, key, other string, otherFuncIdx, threadIdx int) *EdgeStats {
	inner, ok := table[key]
	if !ok {
		inner = make(map[string]*EdgeStats)
		table[key] = inner
	}
	e, ok := inner[other]
	if !ok {
		e = &EdgeStats{FirstSeen: FuncRef{FuncIndex: otherFuncIdx, ThreadIndex: threadIdx}}
		inner[other] = e
	}
	return e
}

func containsFold(s, substr string) bool {
	return len(substr) == 0 || indexFold(s, substr) >= 0
}

// indexFold is a tiny case-insensitive substring search, avoiding an extra
// allocation-per-call strings.ToLower on both operands.
func indexFold(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if equalFold(s[i:i+m], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
