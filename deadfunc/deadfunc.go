// Package deadfunc records function boundaries and cross-function
// symbol references as they are emitted, then computes reachability
// from the compiler's root set and remaps surviving function addresses
// (§4.6).
package deadfunc

import (
	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
)

// Usage is a bitset recording which root(s) justified a function's
// retention (§3 "Function Record").
type Usage uint8

const (
	UsageGlobal Usage = 1 << iota
	UsageEmbedded
	UsageMain
	UsageCalledByFunction
)

// Function is one recorded routine's emission bookkeeping (§3
// "Function Record"). The sentinel top-level scope is the Function at
// index 0, with OriginalOffset == sentinelOffset.
type Function struct {
	Name            string
	Pos             diag.Position
	InSystemFile    bool
	OriginalOffset  int64
	Length          int64
	NewOffset       int64 // -1 until ComputeReachability assigns it
	Embedded        bool
	Usage           Usage
	OutboundRefs    []int // symbol indices this function references
	Live            bool
}

const sentinelOffset = -1

// Edge is one cross-function reference (§3 "Function-Reference
// Entry"): the enclosing function's original offset and the symbol it
// referenced. Duplicates are suppressed by Map.RecordReference.
type Edge struct {
	CallerOffset int64
	SymbolIndex  int
}

// Map is the dead-function map: it is open (recording) until Close is
// called, after which recording a new edge is a compiler bug (§5:
// "any attempt to record new edges after closure is a fatal internal
// error").
type Map struct {
	functions *arena.List[Function]
	byOffset  map[int64]int // original offset -> index into functions
	edges     map[Edge]bool
	closed    bool

	warnUnused     bool
	warnSystemFile bool // when true, suppress warnings for system-file functions

	codeScaleFactor int // §4.6 "packed alignment invariant"; 0 disables the check

	symbolToFunc     map[int]int // symbol index -> defining function index
	order            []int       // functions in emission order, built by ComputeReachability
	reachabilityDone bool

	// sorted (function indices ordered by original offset) is built
	// lazily for TranslateOffset's and LiveAt's binary search (§4.6
	// "Client queries").
	sortedBuilt bool
	sorted      []int
}

// New returns an empty, open dead-function map. codeScaleFactor is the
// target's packed-address divisor (0 disables the alignment check, as
// on Glulx32 which has no packing).
func New(codeScaleFactor int, warnUnused bool, warnSystemFile bool) *Map {
	m := &Map{
		functions:       arena.NewList[Function]("deadfunc.functions", 0, nil),
		byOffset:        make(map[int64]int),
		edges:           make(map[Edge]bool),
		codeScaleFactor: codeScaleFactor,
		warnUnused:      warnUnused,
		warnSystemFile:  warnSystemFile,
	}
	idx := m.functions.Append(Function{Name: "<top-level>", OriginalOffset: sentinelOffset, NewOffset: -1})
	m.byOffset[sentinelOffset] = idx
	return m
}

// BeginFunction brackets a routine's emission (§4.6 "Recording").
// Passing sentinelOffset-as-start is reserved for the top-level scope
// and must not be called by normal clients.
func (m *Map) BeginFunction(name string, startOffset int64, embedded bool, pos diag.Position, inSystemFile bool) int {
	idx := m.functions.Append(Function{
		Name:           name,
		Pos:            pos,
		InSystemFile:   inSystemFile,
		OriginalOffset: startOffset,
		NewOffset:      -1,
		Embedded:       embedded,
	})
	m.byOffset[startOffset] = idx
	return idx
}

// EndFunction records endOffset as the function's emitted length.
func (m *Map) EndFunction(idx int, endOffset int64) {
	f := &m.functions.Data[idx]
	f.Length = endOffset - f.OriginalOffset
}

// RecordReference records a (caller, symbol) edge from the function
// whose original offset is callerOffset, suppressing duplicates
// (§4.6 "Recording"). Recording after Close is a fatal internal error.
func (m *Map) RecordReference(callerOffset int64, symbolIndex int) error {
	if m.closed {
		return diag.Internalf("deadfunc: cannot record a reference after the map is closed")
	}
	e := Edge{CallerOffset: callerOffset, SymbolIndex: symbolIndex}
	if m.edges[e] {
		return nil
	}
	m.edges[e] = true
	if idx, ok := m.byOffset[callerOffset]; ok {
		m.functions.Data[idx].OutboundRefs = append(m.functions.Data[idx].OutboundRefs, symbolIndex)
	}
	return nil
}

// Close marks the map read-only (§5); the output assembler requires
// this before it begins.
func (m *Map) Close() { m.closed = true }

// Closed reports whether Close has been called.
func (m *Map) Closed() bool { return m.closed }

// Len reports how many functions (including the sentinel) are
// recorded.
func (m *Map) Len() int { return m.functions.Len() }

// Get returns the function at idx.
func (m *Map) Get(idx int) *Function { return &m.functions.Data[idx] }

