package deadfunc

import (
	"sort"

	"github.com/ninefold/ifcc/diag"
)

// RegisterSymbolFunction records that symbolIndex names the function
// at funcIndex, so reachability can resolve an outbound reference
// (a symbol index) to the function it targets. Call this once per
// function-defining symbol, any time before ComputeReachability.
func (m *Map) RegisterSymbolFunction(symbolIndex int, funcIndex int) {
	if m.symbolToFunc == nil {
		m.symbolToFunc = make(map[int]int)
	}
	m.symbolToFunc[symbolIndex] = funcIndex
}

// ComputeReachability runs the BFS described in §4.6: roots are every
// routine referenced by the top-level sentinel, every embedded
// routine, and the two Main-identifying symbols (ordinary and hidden
// counterpart — pass -1 for either if not applicable). It marks the
// reached functions Live, stamps their Usage bits, and assigns
// contiguous new offsets in emission order.
func (m *Map) ComputeReachability(mainSymbolIndex, mainHiddenSymbolIndex int) (totalBefore, totalAfter int64, err error) {
	queue := make([]int, 0, m.functions.Len())

	mark := func(idx int, usage Usage) {
		f := &m.functions.Data[idx]
		wasLive := f.Live
		f.Live = true
		f.Usage |= usage
		if !wasLive {
			queue = append(queue, idx)
		}
	}

	sentinel := &m.functions.Data[0]
	for _, sym := range sentinel.OutboundRefs {
		if idx, ok := m.symbolToFunc[sym]; ok {
			mark(idx, UsageGlobal)
		}
	}
	for i := 1; i < m.functions.Len(); i++ {
		if m.functions.Data[i].Embedded {
			mark(i, UsageEmbedded)
		}
	}
	for _, sym := range []int{mainSymbolIndex, mainHiddenSymbolIndex} {
		if sym < 0 {
			continue
		}
		if idx, ok := m.symbolToFunc[sym]; ok {
			mark(idx, UsageMain)
		}
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, sym := range m.functions.Data[idx].OutboundRefs {
			if target, ok := m.symbolToFunc[sym]; ok {
				mark(target, UsageCalledByFunction)
			}
		}
	}

	order := make([]int, 0, m.functions.Len()-1)
	for i := 1; i < m.functions.Len(); i++ {
		order = append(order, i)
	}
	sort.Slice(order, func(a, b int) bool {
		return m.functions.Data[order[a]].OriginalOffset < m.functions.Data[order[b]].OriginalOffset
	})

	var cursor int64
	for _, idx := range order {
		f := &m.functions.Data[idx]
		totalBefore += f.Length
		if !f.Live {
			f.NewOffset = -1
			continue
		}
		if m.codeScaleFactor > 0 && cursor%int64(m.codeScaleFactor) != 0 {
			return totalBefore, totalAfter, diag.Internalf("deadfunc: new offset %d for %q is not a multiple of the packed-address scale factor %d", cursor, f.Name, m.codeScaleFactor)
		}
		f.NewOffset = cursor
		cursor += f.Length
		totalAfter += f.Length
	}

	m.order = order
	m.reachabilityDone = true
	return totalBefore, totalAfter, nil
}

// Warnings appends an "unreferenced function" diagnostic to bag for
// every function ComputeReachability left unreachable, honoring the
// suppress-system-file mode (§4.6 "Warnings"). It is a no-op unless
// warnUnused was set at construction.
func (m *Map) Warnings(bag *diag.Bag) {
	if !m.warnUnused {
		return
	}
	for i := 1; i < m.functions.Len(); i++ {
		f := &m.functions.Data[i]
		if f.Live {
			continue
		}
		if m.warnSystemFile && f.InSystemFile {
			continue
		}
		bag.Warnf(f.Pos, "", diag.KindGeneric, "function %q is never used", f.Name)
	}
}

// Translate resolves a call target's original byte offset to its new,
// post-stripping offset (§4.6 "Client queries: translate"). It fails
// if the target function was stripped — a caller must never reach a
// dead function through a live reference.
func (m *Map) Translate(originalOffset int64) (int64, error) {
	idx, ok := m.byOffset[originalOffset]
	if !ok {
		return 0, diag.Internalf("deadfunc: translate: no function recorded at offset %d", originalOffset)
	}
	f := &m.functions.Data[idx]
	if !f.Live {
		return 0, diag.Internalf("deadfunc: translate: attempted to translate a stripped function %q", f.Name)
	}
	return f.NewOffset, nil
}

// TranslateOffset resolves an arbitrary raw byte offset (not
// necessarily a function start) for debug-info purposes, using a
// binary-searched index built on first call (§4.6 "Client queries").
// stripped is true if the offset falls inside a dead function.
func (m *Map) TranslateOffset(rawOffset int64) (translated int64, stripped bool) {
	if !m.sortedBuilt {
		m.buildSortedIndex()
	}
	i := sort.Search(len(m.sorted), func(i int) bool {
		return m.functions.Data[m.sorted[i]].OriginalOffset > rawOffset
	})
	if i == 0 {
		return rawOffset, false
	}
	idx := m.sorted[i-1]
	f := &m.functions.Data[idx]
	if rawOffset >= f.OriginalOffset+f.Length {
		return rawOffset, false
	}
	if !f.Live {
		return 0, true
	}
	delta := rawOffset - f.OriginalOffset
	return f.NewOffset + delta, false
}

func (m *Map) buildSortedIndex() {
	m.sorted = make([]int, 0, m.functions.Len()-1)
	for i := 1; i < m.functions.Len(); i++ {
		m.sorted = append(m.sorted, i)
	}
	sort.Slice(m.sorted, func(a, b int) bool {
		return m.functions.Data[m.sorted[a]].OriginalOffset < m.functions.Data[m.sorted[b]].OriginalOffset
	})
	m.sortedBuilt = true
}

// LiveAt reports whether the byte at rawOffset belongs to a live
// function, used by the output assembler's code rewrite protocol
// (§4.7). Bytes that fall outside every recorded function (top-level
// code between function bodies) are always considered live.
func (m *Map) LiveAt(rawOffset int64) bool {
	if !m.sortedBuilt {
		m.buildSortedIndex()
	}
	i := sort.Search(len(m.sorted), func(i int) bool {
		return m.functions.Data[m.sorted[i]].OriginalOffset > rawOffset
	})
	if i == 0 {
		return true
	}
	f := &m.functions.Data[m.sorted[i-1]]
	if rawOffset >= f.OriginalOffset+f.Length {
		return true
	}
	return f.Live
}

// Cursor drives the output assembler's code-copy loop (§4.6 "Client
// queries: iterate/next"), yielding each function boundary in
// emission order along with its liveness.
type Cursor struct {
	m   *Map
	pos int
}

// Iterate returns a fresh cursor over functions in emission order.
// ComputeReachability must have run first.
func (m *Map) Iterate() *Cursor {
	return &Cursor{m: m}
}

// Next returns the next function's end offset (original, pre-strip)
// and whether it is live, or ok=false once every function has been
// visited.
func (c *Cursor) Next() (endOffset int64, live bool, ok bool) {
	if c.pos >= len(c.m.order) {
		return 0, false, false
	}
	idx := c.m.order[c.pos]
	c.pos++
	f := &c.m.functions.Data[idx]
	return f.OriginalOffset + f.Length, f.Live, true
}
