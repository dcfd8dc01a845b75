package analysis

import (
	"regexp"

	"github.com/mbbill/samply-for-ai/internal/profile"
)

var hexNamePattern = regexp.MustCompile(`^0x[0-9a-f]+$`)

// ThreadSummary is one row of Summary.Threads.
type ThreadSummary struct {
	Name        string `json:"name"`
	PID         string `json:"pid"`
	TID         string `json:"tid"`
	IsMain      bool   `json:"is_main"`
	SampleCount int    `json:"sample_count"`
}

// Summary is the result of the 4.D Summary query.
type Summary struct {
	Product        string          `json:"product"`
	TotalWeight    int64           `json:"total_weight"`
	IntervalMillis float64         `json:"interval_millis"`
	ThreadCount    int             `json:"thread_count"`
	Threads        []ThreadSummary `json:"threads"`
	IsSymbolicated bool            `json:"is_symbolicated"`
}

// BuildSummary reports the profile's shape and an is_symbolicated heuristic:
// it computes hotspots with limit 20 (no lines/addresses) and flags the
// profile as not symbolicated when more than 80% of those names look like
// raw hex addresses ("0x...").
func BuildSummary(p *profile.Profile) Summary {
	agg := Aggregate(p, "")

	s := Summary{
		Product:        p.Product,
		TotalWeight:    agg.TotalWeight,
		IntervalMillis: p.IntervalMillis,
		ThreadCount:    len(p.Threads),
	}
	for i := range p.Threads {
		th := &p.Threads[i]
		s.Threads = append(s.Threads, ThreadSummary{
			Name:        th.Name,
			PID:         th.ProcessID,
			TID:         th.ThreadID,
			IsMain:      th.IsMainThread,
			SampleCount: th.Samples.Len(),
		})
	}

	top := hotspotsFromAggregation(p, agg, HotspotsOptions{Limit: 20})
	s.IsSymbolicated = !looksUnsymbolicated(top)
	return s
}

func looksUnsymbolicated(entries []HotspotEntry) bool {
	if len(entries) == 0 {
		return false
	}
	var hexLike int
	for _, e := range entries {
		if hexNamePattern.MatchString(e.Name) {
			hexLike++
		}
	}
	return float64(hexLike)/float64(len(entries)) > 0.8
}
