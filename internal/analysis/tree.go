package analysis

import "sort"

// TreeNode is one node of a callers or callees expansion (4.D Callers /
// Callees): a function name, its share of the sibling-local sample sum, and
// its own recursively expanded children.
type TreeNode struct {
	Name     string     `json:"name"`
	Samples  int64      `json:"call_count"`
	Percent  float64    `json:"percent"`
	Children []TreeNode `json:"children,omitempty"`
}

// Callers recursively expands agg.CallerEdges[target] up to maxDepth levels,
// keeping at most perLevelLimit children per node and breaking cycles with a
// path-local visited set (tree recursion, not DAG memoization, per 4.D).
func Callers(agg *Aggregation, pattern string, maxDepth, perLevelLimit int) []TreeNode {
	target := ResolvePattern(agg.FuncStats, pattern)
	visited := map[string]bool{target: true}
	return expandEdges(agg.CallerEdges, target, maxDepth, perLevelLimit, visited)
}

// Callees is symmetric to Callers, expanding agg.CalleeEdges.
func Callees(agg *Aggregation, pattern string, maxDepth, perLevelLimit int) []TreeNode {
	target := ResolvePattern(agg.FuncStats, pattern)
	visited := map[string]bool{target: true}
	return expandEdges(agg.CalleeEdges, target, maxDepth, perLevelLimit, visited)
}

func expandEdges(edges map[string]map[string]*EdgeStats, node string, depth, limit int, visited map[string]bool) []TreeNode {
	if depth <= 0 {
		return nil
	}
	neighbors := edges[node]
	if len(neighbors) == 0 {
		return nil
	}

	var siblingTotal int64
	names := make([]string, 0, len(neighbors))
	for name, e := range neighbors {
		names = append(names, name)
		siblingTotal += e.Samples
	}
	sort.Slice(names, func(i, j int) bool {
		if neighbors[names[i]].Samples != neighbors[names[j]].Samples {
			return neighbors[names[i]].Samples > neighbors[names[j]].Samples
		}
		return names[i] < names[j]
	})

	if limit > 0 && limit < len(names) {
		names = names[:limit]
	}

	out := make([]TreeNode, 0, len(names))
	for _, name := range names {
		e := neighbors[name]
		var pct float64
		if siblingTotal > 0 {
			pct = 100 * float64(e.Samples) / float64(siblingTotal)
		}
		node := TreeNode{Name: name, Samples: e.Samples, Percent: pct}

		if !visited[name] {
			visited[name] = true
			node.Children = expandEdges(edges, name, depth-1, limit, visited)
			delete(visited, name)
		}
		out = append(out, node)
	}
	return out
}
