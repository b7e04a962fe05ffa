// Package symtab is the compiler's symbol table (§4.3): a
// case-insensitive, hash-chained name table with stable indices and
// tombstoning ("unhashed") instead of physical removal.
package symtab

import (
	"strings"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
)

// Type is one of the symbol kinds listed in §3.
type Type int

const (
	TypeUnset Type = iota
	TypeRoutine
	TypeLabel
	TypeGlobalVariable
	TypeArray
	TypeStaticArray
	TypeConstant
	TypeAttribute
	TypeProperty
	TypeIndividualProperty
	TypeObject
	TypeClass
	TypeFakeAction
)

// Flag is one bit of the symbol's flag bitset (§3).
type Flag uint32

const (
	FlagUnknown Flag = 1 << iota
	FlagUsed
	FlagReplaced
	FlagDefaulted
	FlagStubbed
	FlagChange
	FlagImport
	FlagExport
	FlagSystem
	FlagInSystemFile
	FlagUnknownErrorIssued
	FlagAliased
	FlagAction
	FlagRedefinable
	FlagUnhashed
	FlagDiscarded
	FlagStar
)

// Marker is the 8-bit relocation-marker class attached to a symbol's
// value (§4.5). The zero value means "no relocation".
type Marker uint8

const (
	MarkerNone Marker = iota
	MarkerDictionaryWord
	MarkerStringLiteral
	MarkerSystemConstant
	MarkerInternalRoutine
	MarkerVeneerRoutine
	MarkerArray
	MarkerObjectCount
	MarkerInheritedProperty
	MarkerIndividualPropertyTable
	MarkerInheritedIndividualProperty
	MarkerMain
	MarkerGenericValue
	MarkerGlobalVariable
	MarkerIndividualPropertyID
	MarkerAction
	MarkerObject
)

// Symbol is one entry in the table (§3).
type Symbol struct {
	Name       []byte // stable pointer into the name arena
	Value      int32
	Marker     Marker
	Type       Type
	Flags      Flag
	FirstDef   diag.Position
	FirstFile  string
	next       int // index of next symbol in hash chain, -1 terminates
	lowerCache string
}

// HasFlag reports whether f is set.
func (s *Symbol) HasFlag(f Flag) bool { return s.Flags&f != 0 }

func (s *Symbol) setFlag(f Flag)   { s.Flags |= f }
func (s *Symbol) clearFlag(f Flag) { s.Flags &^= f }

// NameString returns the symbol's name as a string (a copy; Name
// itself remains the stable arena pointer).
func (s *Symbol) NameString() string { return string(s.Name) }

const hashTableSize = 512 // §4.3: "H ... >= 512, typically a power of two"
const hashMultiplier = 30011

// hash implements §4.3's formula: Σ chars' lower-case · 30011^position,
// mod H.
func hash(name string) int {
	h := 0
	mult := 1
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		h = (h + int(c)*mult) % hashTableSize
		mult = (mult * hashMultiplier) % hashTableSize
	}
	if h < 0 {
		h += hashTableSize
	}
	return h
}

// Table is the symbol table proper.
type Table struct {
	symbols *arena.List[Symbol]
	chains  [hashTableSize]int // head index per bucket, -1 = empty
	names   *arena.NameStore

	replace *replaceMap
}

// New returns an empty table, ready for predefined-symbol insertion.
func New(names *arena.NameStore) *Table {
	t := &Table{
		symbols: arena.NewList[Symbol]("symtab", 0, nil),
		names:   names,
		replace: newReplaceMap(),
	}
	for i := range t.chains {
		t.chains[i] = -1
	}
	return t
}

func lowerName(name string) string { return strings.ToLower(name) }

// IndexOf looks up name, returning its index or (0, false) if absent
// or tombstoned. It never creates a symbol.
func (t *Table) IndexOf(name string) (int, bool) {
	lname := lowerName(name)
	for i := t.chains[hash(name)]; i != -1; i = t.symbols.Data[i].next {
		sym := &t.symbols.Data[i]
		if sym.HasFlag(FlagUnhashed) {
			continue
		}
		if sym.lowerCache == lname {
			return i, true
		}
	}
	return 0, false
}

// IndexOrCreate looks up name, creating a fresh symbol (value 0x100,
// type constant, flags {unknown}) if absent, per §4.3.
// Chains are kept sorted by case-insensitive name (§3 invariant).
func (t *Table) IndexOrCreate(name string, pos diag.Position, file string) (index int, created bool) {
	if i, ok := t.IndexOf(name); ok {
		return i, false
	}

	lname := lowerName(name)
	idx := t.symbols.Append(Symbol{
		Name:      t.names.Put(name),
		Value:     0x100,
		Type:      TypeConstant,
		Flags:     FlagUnknown,
		FirstDef:  pos,
		FirstFile: file,
		next:      -1,
		lowerCache: lname,
	})

	bucket := hash(name)
	head := t.chains[bucket]
	if head == -1 || t.symbols.Data[head].lowerCache >= lname {
		t.symbols.Data[idx].next = head
		t.chains[bucket] = idx
		return idx, true
	}
	prev := head
	for t.symbols.Data[prev].next != -1 && t.symbols.Data[t.symbols.Data[prev].next].lowerCache < lname {
		prev = t.symbols.Data[prev].next
	}
	t.symbols.Data[idx].next = t.symbols.Data[prev].next
	t.symbols.Data[prev].next = idx
	return idx, true
}

// Get returns the symbol at index for read/write access. Index 0..N-1
// are stable for the life of the compilation (§3 invariant).
func (t *Table) Get(index int) *Symbol { return &t.symbols.Data[index] }

// Len reports how many symbols (including tombstoned ones) the table
// holds.
func (t *Table) Len() int { return t.symbols.Len() }

// Assign clears FlagUnknown, sets value/type, zeroes the marker, and
// stamps the first-defined location if this is the symbol's first
// assignment (§4.3 "assign"). Per §8's idempotence property, calling
// Assign again with the same value/type is a no-op on the flags and
// value.
func (t *Table) Assign(index int, value int32, typ Type, pos diag.Position, file string, inSystemFile bool) {
	t.AssignWithMarker(index, MarkerNone, value, typ, pos, file, inSystemFile)
}

// AssignWithMarker is Assign plus an explicit relocation marker.
func (t *Table) AssignWithMarker(index int, marker Marker, value int32, typ Type, pos diag.Position, file string, inSystemFile bool) {
	s := &t.symbols.Data[index]
	firstAssignment := s.HasFlag(FlagUnknown)
	s.clearFlag(FlagUnknown)
	s.Value = value
	s.Type = typ
	s.Marker = marker
	if inSystemFile {
		s.setFlag(FlagInSystemFile)
	}
	if firstAssignment {
		s.FirstDef = pos
		s.FirstFile = file
	}
}

// EndScope tombstones the symbol at index: sets FlagUnhashed and
// unlinks it from its hash chain so IndexOf no longer finds it (§4.3).
// If neverUsed is true, FlagDiscarded is also set, so a later
// reference can be flagged as an error.
func (t *Table) EndScope(index int, neverUsed bool) {
	s := &t.symbols.Data[index]
	if s.HasFlag(FlagUnhashed) {
		return
	}
	s.setFlag(FlagUnhashed)
	if neverUsed {
		s.setFlag(FlagDiscarded)
	}

	bucket := hash(s.NameString())
	if t.chains[bucket] == index {
		t.chains[bucket] = s.next
		return
	}
	for i := t.chains[bucket]; i != -1; i = t.symbols.Data[i].next {
		if t.symbols.Data[i].next == index {
			t.symbols.Data[i].next = s.next
			return
		}
	}
}

// Typecheck warns if the symbol at index has a known type outside
// expected ∪ {alt}; forward-declared (FlagUnknown) or global-variable
// operands silently pass, per §4.3.
func (t *Table) Typecheck(index int, expected Type, alt Type, bag *diag.Bag, pos diag.Position, file string) {
	s := &t.symbols.Data[index]
	if s.HasFlag(FlagUnknown) || s.Type == TypeGlobalVariable {
		return
	}
	if s.Type == expected || (alt != TypeUnset && s.Type == alt) {
		return
	}
	bag.Warnf(pos, file, diag.KindSymbol, "%q has unexpected type for this context", s.NameString())
}
