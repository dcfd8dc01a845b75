package profile

import "fmt"

// StackNode is one (function, frame) pair produced by WalkStack, ordered
// leaf-first (S3).
type StackNode struct {
	FuncIndex  int
	FrameIndex int
}

// ResolveString implements the two-pool overlay rule S1: try the thread's
// local pool first, then the profile's global pool, and finally fall back
// to a synthetic placeholder so callers never have to special-case a bad
// index.
func (p *Profile) ResolveString(threadIdx, idx int) string {
	if threadIdx < 0 || threadIdx >= len(p.Threads) {
		return fmt.Sprintf("<string %d>", idx)
	}
	th := &p.Threads[threadIdx]
	if idx >= 0 && idx < len(th.LocalStrings) {
		return th.LocalStrings[idx]
	}
	if idx >= 0 && idx < len(p.GlobalStringPool) {
		return p.GlobalStringPool[idx]
	}
	return fmt.Sprintf("<string %d>", idx)
}

// WalkStack yields the leaf-first walk of the stack addressed by stackIdx
// (S3): the first element is the sampled leaf, each following element is
// its caller, ending at the root. The walk never produces more nodes than
// the stack table has rows, defending against a malformed prefix chain
// (S2).
func (p *Profile) WalkStack(threadIdx, stackIdx int) []StackNode {
	if threadIdx < 0 || threadIdx >= len(p.Threads) {
		return nil
	}
	th := &p.Threads[threadIdx]
	maxSteps := th.Stacks.Len()
	nodes := make([]StackNode, 0, maxSteps)

	cur := stackIdx
	for steps := 0; steps < maxSteps; steps++ {
		if cur < 0 || cur >= th.Stacks.Len() {
			break
		}
		frameIdx := th.Stacks.Frame[cur]
		funcIdx, ok := frameFunc(th, frameIdx)
		if !ok {
			break
		}
		nodes = append(nodes, StackNode{FuncIndex: funcIdx, FrameIndex: frameIdx})

		prefix := th.Stacks.Prefix[cur]
		if prefix == nil {
			break
		}
		cur = *prefix
	}
	return nodes
}

func frameFunc(th *Thread, frameIdx int) (int, bool) {
	if frameIdx < 0 || frameIdx >= th.Frames.Len() {
		return 0, false
	}
	return th.Frames.Func[frameIdx], true
}

// FuncName resolves a function's display name.
func (p *Profile) FuncName(threadIdx, funcIdx int) string {
	th := &p.Threads[threadIdx]
	if funcIdx < 0 || funcIdx >= th.Funcs.Len() {
		return fmt.Sprintf("<func %d>", funcIdx)
	}
	return p.ResolveString(threadIdx, th.Funcs.Name[funcIdx])
}

// FuncFileName resolves a function's source file path, if recorded.
func (p *Profile) FuncFileName(threadIdx, funcIdx int) (string, bool) {
	th := &p.Threads[threadIdx]
	if funcIdx < 0 || funcIdx >= th.Funcs.Len() {
		return "", false
	}
	fn := th.Funcs.FileName[funcIdx]
	if fn == nil {
		return "", false
	}
	return p.ResolveString(threadIdx, *fn), true
}

// FuncLineNumber resolves the declaration line recorded for a function.
func (p *Profile) FuncLineNumber(threadIdx, funcIdx int) (uint32, bool) {
	th := &p.Threads[threadIdx]
	if funcIdx < 0 || funcIdx >= th.Funcs.Len() {
		return 0, false
	}
	ln := th.Funcs.LineNumber[funcIdx]
	if ln == nil {
		return 0, false
	}
	return *ln, true
}

// FuncLibrary resolves a function's owning library via its resource,
// implementing S5: resource.lib[func.resource] when func.resource >= 0 and
// the resource's lib is set.
func (p *Profile) FuncLibrary(threadIdx, funcIdx int) (*Library, bool) {
	th := &p.Threads[threadIdx]
	if funcIdx < 0 || funcIdx >= th.Funcs.Len() {
		return nil, false
	}
	resIdx := th.Funcs.Resource[funcIdx]
	if resIdx < 0 || int(resIdx) >= th.Resources.Len() {
		return nil, false
	}
	libIdx := th.Resources.Lib[resIdx]
	if libIdx == nil || *libIdx < 0 || *libIdx >= len(p.Libraries) {
		return nil, false
	}
	return &p.Libraries[*libIdx], true
}

// NativeSymbolName resolves a native symbol's display name.
func (p *Profile) NativeSymbolName(threadIdx, nsIdx int) string {
	th := &p.Threads[threadIdx]
	if nsIdx < 0 || nsIdx >= th.NativeSymbols.Len() {
		return fmt.Sprintf("<symbol %d>", nsIdx)
	}
	return p.ResolveString(threadIdx, th.NativeSymbols.Name[nsIdx])
}

// NativeSymbolFor returns the native symbol referenced by a frame, if any.
func (p *Profile) NativeSymbolFor(threadIdx, frameIdx int) (baseAddr uint64, size uint32, libIdx int, ok bool) {
	th := &p.Threads[threadIdx]
	if frameIdx < 0 || frameIdx >= th.Frames.Len() {
		return 0, 0, 0, false
	}
	nsRef := th.Frames.NativeSymbol[frameIdx]
	if nsRef == nil {
		return 0, 0, 0, false
	}
	ns := *nsRef
	if ns < 0 || ns >= th.NativeSymbols.Len() {
		return 0, 0, 0, false
	}
	var sz uint32
	if fs := th.NativeSymbols.FunctionSize[ns]; fs != nil {
		sz = *fs
	}
	return th.NativeSymbols.Address[ns], sz, th.NativeSymbols.LibIndex[ns], true
}
