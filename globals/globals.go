// Package globals manages the dynamic data area (§4.4): the
// fixed-position global-variable slots followed by the five shapes of
// user array.
package globals

import (
	"fmt"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/backpatch"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
	"github.com/ninefold/ifcc/target"
)

// maxStringArrayEntries is §3's "string array … N ≤ 256" invariant:
// the 1-byte length header can't address more entries than that.
const maxStringArrayEntries = 256

// Shape is one of the five user-array layouts (§3 "Dynamic Data
// Area").
type Shape int

const (
	ShapeByte Shape = iota
	ShapeWord
	ShapeString
	ShapeTable
	ShapeBuffer
)

func (s Shape) String() string {
	names := [...]string{"byte", "word", "string", "table", "buffer"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown-shape"
}

// entryWidth returns the per-entry byte width for shape, given the
// target's word size (used by word/table shapes).
func (s Shape) entryWidth(wordSize int) int {
	switch s {
	case ShapeByte, ShapeString, ShapeBuffer:
		return 1
	default:
		return wordSize
	}
}

// headerWidth returns the shape's leading length/capacity field width,
// 0 for shapes with no header (byte, word).
func (s Shape) headerWidth(wordSize int) int {
	switch s {
	case ShapeString:
		return 1
	case ShapeTable, ShapeBuffer:
		return wordSize
	default:
		return 0
	}
}

// Entry is one array slot's source value: either a known constant, or
// a symbol reference that must be backpatched once emitted.
type Entry struct {
	Value       int32
	Marker      symtab.Marker
	SymbolIndex int // -1 if Value is a plain constant
}

// Array records one `Array` directive's bookkeeping (§3 "Each array
// records, in parallel arrays, its defining symbol, its size, and its
// shape").
type Array struct {
	SymbolIndex int
	Name        string
	Shape       Shape
	EntryCount  int
	BaseOffset  uint32 // offset within the dynamic data area
}

// OverflowError reports a fatal memory overflow: the dynamic data area
// has grown past the configured maximum (§4.4 invariant).
type OverflowError struct {
	Setting string
	Limit   int
	Got     int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("fatal error: dynamic data area exceeds %s (%d bytes, limit %d)", e.Setting, e.Got, e.Limit)
}

// Area is the dynamic data area: global-variable slots followed by
// user arrays, backed by a growable byte buffer in the memory arena.
type Area struct {
	desc   *target.Descriptor
	data   *arena.List[byte]
	log    *backpatch.Log
	sym    *symtab.Table
	arrays []Array

	maxSize int // configured maximum dynamic-area size; 0 means unlimited

	nextSlot int // next free global-variable slot index
}

// New returns an empty dynamic data area sized for desc's global-slot
// region; maxSize is the configured memory-setting ceiling (0 =
// unlimited, used by tests).
func New(desc *target.Descriptor, sym *symtab.Table, log *backpatch.Log, maxSize int) *Area {
	a := &Area{
		desc:    desc,
		data:    arena.NewList[byte]("globals.dynamic-data", 0, nil),
		log:     log,
		sym:     sym,
		maxSize: maxSize,
		nextSlot: desc.ReservedLowSlots,
	}
	a.data.Ensure(desc.GlobalSlotCount * desc.WordSize)
	return a
}

// Size reports the dynamic data area's current length in bytes — the
// "next free offset" of §4.4.
func (a *Area) Size() int { return a.data.Len() }

func (a *Area) checkOverflow(setting string) error {
	if a.maxSize > 0 && a.data.Len() > a.maxSize {
		return &OverflowError{Setting: setting, Limit: a.maxSize, Got: a.data.Len()}
	}
	return nil
}

// globalSlotOffset returns slot n's byte offset within the area.
func (a *Area) globalSlotOffset(slot int) int { return slot * a.desc.WordSize }

// AllocateGlobalSlot reserves and returns the next usable global slot
// index, or an error if the usable range (§3, reserving the top seven
// / bottom ten for the compiler's own temporaries) is exhausted.
func (a *Area) AllocateGlobalSlot() (int, error) {
	_, high := a.desc.UsableSlotRange()
	if a.nextSlot >= high {
		return 0, &OverflowError{Setting: "MAX_GLOBAL_VARIABLES", Limit: high, Got: a.nextSlot + 1}
	}
	slot := a.nextSlot
	a.nextSlot++
	return slot, nil
}

// WriteGlobalSlot writes entry's value into slot's bytes (§4.4
// "Global variable directive"), recording a backpatch entry in the
// area's backpatch log (the same log arrays use) if entry carries a
// relocation marker.
func (a *Area) WriteGlobalSlot(slot int, entry Entry) {
	offset := a.globalSlotOffset(slot)
	writeWidth(a.data.Data, offset, a.desc.WordSize, uint32(entry.Value))
	if entry.Marker != symtab.MarkerNone {
		a.log.Record(entry.Marker, uint32(offset), backpatch.Width(a.desc.WordSize), entry.SymbolIndex)
	}
}

// globalRegionSize is the byte length of the fixed global-slot block
// that every array's offset is computed relative to.
func (a *Area) globalRegionSize() int { return a.desc.GlobalSlotCount * a.desc.WordSize }

// AddArray appends a new user array of the given shape holding
// entries, recording its bookkeeping and any relocations. It returns
// the symbol value to assign to name's defining symbol: on the 32-bit
// target this is the offset relative to the start of the array
// region (after the global block); on the 16-bit target it is the
// offset relative to the area base (§4.4 "Layout"). bag/pos/file give
// AddArray somewhere to report the out-of-range and oversized-string
// diagnostics §8 names; the caller's directive still owns everything
// else about error reporting.
func (a *Area) AddArray(symbolIndex int, name string, shape Shape, entries []Entry, bag *diag.Bag, pos diag.Position, file string) (int32, error) {
	if shape == ShapeString && len(entries) > maxStringArrayEntries {
		bag.Errorf(pos, file, diag.KindDirective, "string array %q has %d entries, exceeding the %d-entry limit; truncated", name, len(entries), maxStringArrayEntries)
		entries = entries[:maxStringArrayEntries]
	}

	ws := a.desc.WordSize
	headerW := shape.headerWidth(ws)
	entryW := shape.entryWidth(ws)

	base := a.data.Len()
	total := headerW + len(entries)*entryW
	a.data.Ensure(base + total)

	if headerW > 0 {
		writeWidth(a.data.Data, base, headerW, uint32(len(entries)))
	}

	for i, e := range entries {
		offset := base + headerW + i*entryW
		v := e.Value
		if shape == ShapeByte && (v < 0 || v > 255) {
			bag.Warnf(pos, file, diag.KindDirective, "byte array %q entry %d out of range, truncated to %d", name, v, v&0xFF)
			v = v & 0xFF
		}
		writeWidth(a.data.Data, offset, entryW, uint32(v))
		if e.Marker != symtab.MarkerNone {
			a.log.Record(e.Marker, uint32(offset), backpatch.Width(entryW), e.SymbolIndex)
		}
	}

	if err := a.checkOverflow("MAX_DYNAMIC_SIZE"); err != nil {
		return 0, err
	}

	a.arrays = append(a.arrays, Array{SymbolIndex: symbolIndex, Name: name, Shape: shape, EntryCount: len(entries), BaseOffset: uint32(base)})

	switch a.desc.VM {
	case target.Glulx32:
		return int32(base - a.globalRegionSize()), nil
	default:
		return int32(base), nil
	}
}

// Arrays returns every array recorded so far, in definition order.
func (a *Area) Arrays() []Array { return a.arrays }

// Bytes returns the dynamic data area's current contents. The slice
// aliases the arena's backing storage; callers must not retain it
// across a call that could grow the area.
func (a *Area) Bytes() []byte { return a.data.Data }

func writeWidth(data []byte, offset int, width int, v uint32) {
	switch width {
	case 1:
		data[offset] = byte(v)
	case 2:
		data[offset] = byte(v >> 8)
		data[offset+1] = byte(v)
	default:
		data[offset] = byte(v >> 24)
		data[offset+1] = byte(v >> 16)
		data[offset+2] = byte(v >> 8)
		data[offset+3] = byte(v)
	}
}
