// Package backpatch is the deferred-relocation log (§4.5): a growable
// record of forward or target-dependent references, resolved once all
// code and data have been emitted.
package backpatch

import (
	"fmt"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/symtab"
)

// Area names one of the regions a backpatch record can target.
type Area int

const (
	AreaCode Area = iota
	AreaDynamicData
	AreaStringTable
	AreaGlobalVariable
	AreaIndividualPropertyTable
	AreaClassPrototypeTable
	AreaHeader
)

func (a Area) String() string {
	names := [...]string{
		"code", "dynamic-data", "string-table", "global-variable",
		"individual-property-table", "class-prototype-table", "header",
	}
	if int(a) < len(names) {
		return names[a]
	}
	return "unknown-area"
}

// Width is the patched value's byte width; the 16-bit target always
// uses Width2, the 32-bit target chooses per entry from {1, 2, 4}.
type Width int

const (
	Width1 Width = 1
	Width2 Width = 2
	Width4 Width = 4
)

// Entry is one deferred relocation (§3 "Backpatch Entry").
type Entry struct {
	Marker symtab.Marker
	Area   Area
	Offset uint32
	Width  Width

	// SymbolIndex is the symbol whose resolved value feeds the marker's
	// value-transform function; -1 marks a generic constant that needs
	// no symbol lookup (e.g. a dictionary-word offset already computed
	// at emission time).
	SymbolIndex int
}

// Transform computes the final W-byte value to splice into the output
// stream for one backpatch entry, given the symbol table and the
// placeholder bytes originally emitted at that offset.
type Transform func(sym *symtab.Table, e Entry, placeholder uint32) (uint32, error)

// Log accumulates backpatch entries for one target area, in emission
// order (§5 "Backpatch records are appended in emission order and
// replayed in the same order at output time").
type Log struct {
	area    Area
	entries *arena.List[Entry]
	closed  bool
}

// NewLog returns an empty log for area.
func NewLog(area Area) *Log {
	return &Log{area: area, entries: arena.NewList[Entry]("backpatch."+area.String(), 0, nil)}
}

// Area reports which target area this log patches.
func (l *Log) Area() Area { return l.area }

// WidthError is raised when a transformed value does not fit its
// entry's declared width (§4.5 "Contract").
type WidthError struct {
	Entry Entry
	Value uint32
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("backpatch value 0x%x does not fit declared width %d at %s+%d", e.Value, e.Entry.Width, e.Entry.Area, e.Entry.Offset)
}

// BoundaryError is raised by the output assembler's code rewrite when
// a record straddles a live/dead function boundary (§4.5 "Contract").
type BoundaryError struct {
	Entry    Entry
	Boundary uint32
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("backpatch record at %s+%d straddles function boundary at %d", e.Entry.Area, e.Entry.Offset, e.Boundary)
}

// Record appends a deferred relocation. Record never resolves it; see
// ResolveArea for that.
func (l *Log) Record(marker symtab.Marker, offset uint32, width Width, symbolIndex int) {
	l.entries.Append(Entry{Marker: marker, Area: l.area, Offset: offset, Width: width, SymbolIndex: symbolIndex})
}

// Len reports how many entries are in the log.
func (l *Log) Len() int { return l.entries.Len() }

// At returns the entry at position i, in emission order.
func (l *Log) At(i int) Entry { return l.entries.Data[i] }

// Close marks the log read-only; appending afterward is a compiler
// bug; see §5 "closed (marked read-only) before the output assembler
// begins".
func (l *Log) Close() { l.closed = true }

// Closed reports whether Close has been called.
func (l *Log) Closed() bool { return l.closed }

func fitsWidth(v uint32, w Width) bool {
	switch w {
	case Width1:
		return v <= 0xFF
	case Width2:
		return v <= 0xFFFF
	case Width4:
		return true
	default:
		return false
	}
}

// checkFit validates v against e.Width, returning a *WidthError if it
// overflows. Registry.Apply runs it on every resolved value.
func checkFit(e Entry, v uint32) error {
	if !fitsWidth(v, e.Width) {
		return &WidthError{Entry: e, Value: v}
	}
	return nil
}
