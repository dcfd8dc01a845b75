package analysis

import (
	"fmt"
	"sort"

	"github.com/mbbill/samply-for-ai/internal/profile"
)

// CalleeShare is one entry of a DrilldownNode's callees, normalized over its
// siblings (not the global total).
type CalleeShare struct {
	Name      string  `json:"name"`
	Percent   float64 `json:"percent"`
	IsHottest bool    `json:"is_hottest,omitempty"`
}

// Bottleneck is attached to the final node of a drilldown path once its
// self-time exceeds the configured threshold.
type Bottleneck struct {
	Name    string  `json:"name"`
	Reason  string  `json:"reason"`
	Percent float64 `json:"percent"`
}

// DrilldownNode is one step of a drilldown path (4.D Drilldown).
type DrilldownNode struct {
	Name         string        `json:"name"`
	Library      string        `json:"library,omitempty"`
	FilePath     string        `json:"file_path,omitempty"`
	Line         *uint32       `json:"line,omitempty"`
	TotalSamples int64         `json:"total_samples"`
	SelfSamples  int64         `json:"self_samples"`
	TotalPercent float64       `json:"total_percent"`
	SelfPercent  float64       `json:"self_percent"`
	IsBottleneck bool          `json:"is_bottleneck,omitempty"`
	Callees      []CalleeShare `json:"callees,omitempty"`
	HotLines     []LineHotspot `json:"hot_lines,omitempty"`
}

// DrilldownResult is the full output of a drilldown query, including the
// "function not found" error path with its suggestions.
type DrilldownResult struct {
	Root         string          `json:"root"`
	TotalSamples int64           `json:"total_samples"`
	Path         []DrilldownNode `json:"path,omitempty"`
	Bottleneck   *Bottleneck     `json:"bottleneck,omitempty"`
	Error        string          `json:"error,omitempty"`
	Suggestions  []string        `json:"suggestions,omitempty"`
}

// DrilldownOptions configures a drilldown query.
type DrilldownOptions struct {
	Pattern          string
	MaxDepth         int
	ThreadFilter     string
	SelfPercentThreshold float64
}

// Drilldown runs the aggregator and then walks the hottest callee chain
// starting from the resolved pattern, following 4.D's flagship algorithm:
// cycle-escape via the previous node's next-hottest unvisited callee, and
// early termination once a node's self-time crosses the threshold.
func Drilldown(p *profile.Profile, opts DrilldownOptions) DrilldownResult {
	agg := Aggregate(p, opts.ThreadFilter)

	root := ResolvePattern(agg.FuncStats, opts.Pattern)
	rootStats, ok := agg.FuncStats[root]
	if !ok || rootStats.TotalSamples == 0 {
		return DrilldownResult{
			Root:        root,
			Error:       fmt.Sprintf("function %q not found or has zero samples", root),
			Suggestions: topSuggestions(agg, 5),
		}
	}

	result := DrilldownResult{Root: root, TotalSamples: rootStats.TotalSamples}

	visited := map[string]bool{}
	var path []DrilldownNode
	current := root

	for step := 0; step < opts.MaxDepth; step++ {
		if visited[current] {
			next, found := cycleEscape(path, visited)
			if !found {
				break
			}
			current = next
			continue
		}
		visited[current] = true

		fs := agg.FuncStats[current]
		if fs == nil {
			break
		}

		node := DrilldownNode{
			Name:         current,
			TotalSamples: fs.TotalSamples,
			SelfSamples:  fs.SelfSamples,
		}
		if agg.TotalWeight > 0 {
			node.SelfPercent = 100 * float64(fs.SelfSamples) / float64(agg.TotalWeight)
			node.TotalPercent = 100 * float64(fs.TotalSamples) / float64(agg.TotalWeight)
		}
		if fp, ok := p.FuncFileName(fs.FirstSeen.ThreadIndex, fs.FirstSeen.FuncIndex); ok {
			node.FilePath = fp
		}
		if ln, ok := p.FuncLineNumber(fs.FirstSeen.ThreadIndex, fs.FirstSeen.FuncIndex); ok {
			node.Line = &ln
		}
		if lib, ok := p.FuncLibrary(fs.FirstSeen.ThreadIndex, fs.FirstSeen.FuncIndex); ok {
			node.Library = lib.Name
		}

		node.Callees = buildCalleeShares(agg.CalleeEdges[current])

		if node.SelfPercent > opts.SelfPercentThreshold {
			node.IsBottleneck = true
			node.HotLines = buildLineHotspots(fs)
			reason := fmt.Sprintf("High self-time (%.1f%%) indicates this function's own code is the bottleneck", node.SelfPercent)
			result.Bottleneck = &Bottleneck{Name: current, Reason: reason, Percent: node.SelfPercent}
			path = append(path, node)
			break
		}

		path = append(path, node)
		if len(node.Callees) == 0 {
			break
		}
		current = node.Callees[0].Name
	}

	result.Path = path
	return result
}

func buildCalleeShares(callees map[string]*EdgeStats) []CalleeShare {
	if len(callees) == 0 {
		return nil
	}
	var total int64
	names := make([]string, 0, len(callees))
	for name, e := range callees {
		names = append(names, name)
		total += e.Samples
	}
	sort.Slice(names, func(i, j int) bool {
		if callees[names[i]].Samples != callees[names[j]].Samples {
			return callees[names[i]].Samples > callees[names[j]].Samples
		}
		return names[i] < names[j]
	})

	out := make([]CalleeShare, 0, len(names))
	for i, name := range names {
		var pct float64
		if total > 0 {
			pct = 100 * float64(callees[name].Samples) / float64(total)
		}
		out = append(out, CalleeShare{Name: name, Percent: pct, IsHottest: i == 0})
	}
	return out
}

// cycleEscape looks at the previous path node's callee list (already sorted
// descending by percent) and returns the first entry not yet visited.
func cycleEscape(path []DrilldownNode, visited map[string]bool) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	prev := path[len(path)-1]
	for _, c := range prev.Callees {
		if !visited[c.Name] {
			return c.Name, true
		}
	}
	return "", false
}

// topSuggestions returns the top n function names by total_samples
// descending (4.D Drilldown step 2), not by self_samples: these are
// candidates for "did you mean", where total time matters more than where
// the time was spent.
func topSuggestions(agg *Aggregation, n int) []string {
	names := make([]string, 0, len(agg.FuncStats))
	for name := range agg.FuncStats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := agg.FuncStats[names[i]], agg.FuncStats[names[j]]
		if a.TotalSamples != b.TotalSamples {
			return a.TotalSamples > b.TotalSamples
		}
		return names[i] < names[j]
	})
	if n < len(names) {
		names = names[:n]
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		fs := agg.FuncStats[name]
		var pct float64
		if agg.TotalWeight > 0 {
			pct = 100 * float64(fs.TotalSamples) / float64(agg.TotalWeight)
		}
		out = append(out, fmt.Sprintf("%s (%.1f%%)", name, pct))
	}
	return out
}
