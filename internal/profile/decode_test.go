package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func intp(v int) *int       { return &v }
func u32p(v uint32) *uint32 { return &v }

// minimalProfileJSON builds a one-thread profile with stacks
// [main -> compute -> hash] and [main -> compute -> compare], one sample
// each of weight 1 (spec.md Scenario 1).
const minimalProfileJSON = `{
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
      "stackTable": {
        "prefix": [null, 0, 1, 2],
        "frame": [0, 1, 2, 3],
        "length": 4
      },
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

func TestDecode_ScenarioOneStacksAndStrings(t *testing.T) {
	p, err := Decode(strings.NewReader(minimalProfileJSON))
	require.NoError(t, err)
	require.Len(t, p.Threads, 1)

	th := p.Threads[0]
	require.Equal(t, 2, th.Samples.Len())
	require.Equal(t, 4, th.Stacks.Len())

	// stack index 2 (hash leaf) walk: hash -> compute -> main
	walk := p.WalkStack(0, 2)
	require.Len(t, walk, 3)
	require.Equal(t, "hash", p.FuncName(0, walk[0].FuncIndex))
	require.Equal(t, "compute", p.FuncName(0, walk[1].FuncIndex))
	require.Equal(t, "main", p.FuncName(0, walk[2].FuncIndex))

	// stack index 3 (compare leaf) walk: compare -> compute -> main
	walk2 := p.WalkStack(0, 3)
	require.Len(t, walk2, 3)
	require.Equal(t, "compare", p.FuncName(0, walk2[0].FuncIndex))
}

func TestDecode_AddressSentinel(t *testing.T) {
	ft := FrameTable{Address: []int64{5, -1, 10}}
	a0, ok0 := ft.OptionalAddress(0)
	require.True(t, ok0)
	require.Equal(t, uint64(5), a0)

	_, ok1 := ft.OptionalAddress(1)
	require.False(t, ok1)

	a2, ok2 := ft.OptionalAddress(2)
	require.True(t, ok2)
	require.Equal(t, uint64(10), a2)
}

func TestResolveString_LocalOverlaysGlobal(t *testing.T) {
	p := &Profile{
		GlobalStringPool: []string{"global0", "global1"},
		Threads: []Thread{
			{LocalStrings: []string{"local0"}},
		},
	}

	require.Equal(t, "local0", p.ResolveString(0, 0))
	require.Equal(t, "global1", p.ResolveString(0, 1))
	require.Equal(t, "<string 5>", p.ResolveString(0, 5))
}

func TestDecode_ColumnLengthMismatchIsSemanticError(t *testing.T) {
	bad := strings.Replace(minimalProfileJSON, `"length": 4`, `"length": 5`, 1)
	_, err := Decode(strings.NewReader(bad))
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, KindSemantic, de.Kind)
}

func TestDecode_MissingOptionalTablesDefaultEmpty(t *testing.T) {
	p, err := Decode(strings.NewReader(minimalProfileJSON))
	require.NoError(t, err)
	require.Equal(t, 0, p.Threads[0].NativeSymbols.Len())
	require.Equal(t, 0, p.Threads[0].Resources.Len())
}

func TestWalkStack_BoundedAgainstCycle(t *testing.T) {
	// Pathological stack table that would cycle if not bounded: 0 -> 1 -> 0.
	th := Thread{
		Stacks: StackTable{
			Prefix: []*int{intp(1), intp(0)},
			Frame:  []int{0, 1},
		},
		Frames: FrameTable{
			Func: []int{0, 1},
		},
		Funcs: FuncTable{
			Name:     []int{0, 1},
			Resource: []int32{-1, -1},
		},
	}
	p := &Profile{Threads: []Thread{th}}
	walk := p.WalkStack(0, 0)
	require.LessOrEqual(t, len(walk), th.Stacks.Len())
}
