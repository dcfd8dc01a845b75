package analysis

import (
	"strings"
	"testing"

	"github.com/mbbill/samply-for-ai/internal/profile"
	"github.com/stretchr/testify/require"
)

// scenarioOneProfile mirrors spec.md Scenario 1: two samples of weight 1
// sharing the call path main -> compute, diverging at the leaf into hash
// and compare.
const scenarioOneProfile = `{
  "meta": {"product": "test", "interval": 1, "startTime": 0},
  "libs": [],
  "shared": {"stringArray": ["main", "compute", "hash", "compare"]},
  "threads": [
    {
      "name": "main-thread",
      "pid": "100",
      "tid": "100",
      "isMainThread": true,
      "stringArray": [],
      "samples": {"stack": [2, 3], "weight": [1, 1], "length": 2},
      "stackTable": {"prefix": [null, 0, 1, 2], "frame": [0, 1, 2, 3], "length": 4},
      "frameTable": {
        "func": [0, 1, 2, 3],
        "line": [null, null, null, null],
        "address": [-1, -1, -1, -1],
        "nativeSymbol": [null, null, null, null],
        "length": 4
      },
      "funcTable": {
        "name": [0, 1, 2, 3],
        "fileName": [null, null, null, null],
        "lineNumber": [null, null, null, null],
        "resource": [-1, -1, -1, -1],
        "length": 4
      }
    }
  ]
}`

func mustDecode(t *testing.T, src string) *profile.Profile {
	t.Helper()
	p, err := profile.Decode(strings.NewReader(src))
	require.NoError(t, err)
	return p
}

func TestAggregate_WeightConservation(t *testing.T) {
	p := mustDecode(t, scenarioOneProfile)
	agg := Aggregate(p, "")

	require.EqualValues(t, 2, agg.TotalWeight)

	var sumSelf int64
	for _, fs := range agg.FuncStats {
		sumSelf += fs.SelfSamples
	}
	require.Equal(t, agg.TotalWeight, sumSelf)
}

func TestAggregate_SelfAndTotalSamples(t *testing.T) {
	p := mustDecode(t, scenarioOneProfile)
	agg := Aggregate(p, "")

	main := agg.FuncStats["main"]
	require.NotNil(t, main)
	require.EqualValues(t, 0, main.SelfSamples)
	require.EqualValues(t, 2, main.TotalSamples)

	compute := agg.FuncStats["compute"]
	require.EqualValues(t, 0, compute.SelfSamples)
	require.EqualValues(t, 2, compute.TotalSamples)

	hash := agg.FuncStats["hash"]
	require.EqualValues(t, 1, hash.SelfSamples)
	require.EqualValues(t, 1, hash.TotalSamples)

	compare := agg.FuncStats["compare"]
	require.EqualValues(t, 1, compare.SelfSamples)
	require.EqualValues(t, 1, compare.TotalSamples)

	for name, fs := range agg.FuncStats {
		require.GreaterOrEqualf(t, fs.TotalSamples, fs.SelfSamples, "total >= self for %s", name)
	}
}

func TestAggregate_CallerCalleeEdgesAreSymmetric(t *testing.T) {
	p := mustDecode(t, scenarioOneProfile)
	agg := Aggregate(p, "")

	require.EqualValues(t, 1, agg.CallerEdges["hash"]["compute"].Samples)
	require.EqualValues(t, 1, agg.CalleeEdges["compute"]["hash"].Samples)
	require.EqualValues(t, 2, agg.CallerEdges["compute"]["main"].Samples)
	require.EqualValues(t, 2, agg.CalleeEdges["main"]["compute"].Samples)
}

func TestAggregate_ThreadFilterExcludesNonMatchingThreads(t *testing.T) {
	p := mustDecode(t, scenarioOneProfile)
	agg := Aggregate(p, "nonexistent")

	require.Empty(t, agg.FuncStats)
	require.EqualValues(t, 0, agg.TotalWeight)
}

func TestAggregate_SkipsSamplesWithoutStack(t *testing.T) {
	p := mustDecode(t, scenarioOneProfile)
	p.Threads[0].Samples.Stack[0] = nil

	agg := Aggregate(p, "")
	require.EqualValues(t, 1, agg.TotalWeight)
}
