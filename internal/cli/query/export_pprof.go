package query

import (
	"fmt"
	"os"

	googlepprof "github.com/google/pprof/profile"
	"github.com/spf13/cobra"

	"github.com/mbbill/samply-for-ai/internal/profile"
)

// newExportPprofCmd builds the export-pprof supplemental feature: it
// decodes a profile file directly (it does not need a running server) and
// re-encodes its samples as a pprof CPU profile so the result can be fed
// into any pprof-compatible flame graph viewer.
func newExportPprofCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-pprof <profile-file>",
		Short: "Convert a profile file to pprof format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportPprof(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "profile.pprof.gz", "output path for the pprof profile")
	return cmd
}

func runExportPprof(inPath, outPath string) error {
	model, err := profile.DecodeFile(inPath)
	if err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	out, err := toPprof(model)
	if err != nil {
		return fmt.Errorf("convert to pprof: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := out.Write(f); err != nil {
		return fmt.Errorf("write pprof profile: %w", err)
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

// toPprof walks every thread's samples and builds a pprof profile whose
// locations are leaf-first stack walks, matching the samples pprof's own
// consumers (go tool pprof, speedscope) expect.
func toPprof(p *profile.Profile) (*googlepprof.Profile, error) {
	out := &googlepprof.Profile{
		SampleType: []*googlepprof.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &googlepprof.ValueType{Type: "samples", Unit: "count"},
		Period:     1,
	}

	funcsByName := map[string]*googlepprof.Function{}
	var nextFuncID, nextLocID uint64

	funcFor := func(name string) *googlepprof.Function {
		if fn, ok := funcsByName[name]; ok {
			return fn
		}
		nextFuncID++
		fn := &googlepprof.Function{ID: nextFuncID, Name: name, SystemName: name}
		funcsByName[name] = fn
		out.Function = append(out.Function, fn)
		return fn
	}

	for threadIdx := range p.Threads {
		th := &p.Threads[threadIdx]
		for i := 0; i < th.Samples.Len(); i++ {
			stackRef := th.Samples.Stack[i]
			if stackRef == nil {
				continue
			}
			weight := th.Samples.Weight[i]

			walk := p.WalkStack(threadIdx, *stackRef)
			locs := make([]*googlepprof.Location, 0, len(walk))
			for _, node := range walk {
				name := p.FuncName(threadIdx, node.FuncIndex)
				var line int64
				if ln, ok := p.FuncLineNumber(threadIdx, node.FuncIndex); ok {
					line = int64(ln)
				}
				nextLocID++
				loc := &googlepprof.Location{
					ID:   nextLocID,
					Line: []googlepprof.Line{{Function: funcFor(name), Line: line}},
				}
				out.Location = append(out.Location, loc)
				locs = append(locs, loc)
			}

			out.Sample = append(out.Sample, &googlepprof.Sample{
				Location: locs,
				Value:    []int64{weight},
			})
		}
	}

	return out, nil
}
