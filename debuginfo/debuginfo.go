// Package debuginfo writes the optional debugging-information file a
// compilation can emit alongside its story file: a symbol table and
// source-file map an external debugger can use to translate a runtime
// address back to a line of source.
package debuginfo

import (
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
)

// magic identifies a debugging-information file; version names its
// record layout so a future compiler release can extend it without
// breaking older readers.
var magic = [2]byte{0xDE, 0xBF}

const version = 1

// Source describes whatever the Build caller can supply about symbol
// definition sites; it is satisfied by *symtab.Table directly.
type Source interface {
	Len() int
	Get(index int) *symtab.Symbol
}

// Build assembles a debugging-information file's bytes from the
// symbol table and the list of source files a compilation touched
// (indexed the way diag.Position.FileIndex and each Symbol's
// FirstFile/FirstDef reference them).
func Build(syms Source, fileNames []string) []byte {
	var out []byte
	out = append(out, magic[0], magic[1])
	out = append(out, putWord16(version)...)

	out = append(out, sourceFilesSection(fileNames)...)
	out = append(out, symbolsSection(syms)...)

	// Code-line-range records map emitted-code offsets back to source
	// positions; this compiler never emits a code stream itself (that
	// is the external bytecode assembler's job), so the section is
	// always empty here but still present, for a reader that expects
	// the fixed section count.
	out = append(out, emptySection()...)

	// Object, property, and action tables are owned by the separate
	// game-object compiler this package has no visibility into;
	// reserve the sections as empty so a reader never misinterprets
	// their absence as a truncated file.
	out = append(out, emptySection()...)
	out = append(out, emptySection()...)
	out = append(out, emptySection()...)

	return out
}

func sourceFilesSection(fileNames []string) []byte {
	var sec []byte
	sec = append(sec, putWord16(len(fileNames))...)
	for _, name := range fileNames {
		sec = append(sec, lengthPrefixed(name)...)
	}
	return sec
}

func symbolsSection(syms Source) []byte {
	var records []byte
	count := 0
	for i := 0; i < syms.Len(); i++ {
		sym := syms.Get(i)
		if sym.HasFlag(symtab.FlagUnhashed) || sym.NameString() == "" {
			continue
		}
		count++
		records = append(records, lengthPrefixed(sym.NameString())...)
		records = append(records, byte(sym.Type))
		records = append(records, putWord32(sym.Value)...)
		records = append(records, positionRecord(sym.FirstDef)...)
	}

	var sec []byte
	sec = append(sec, putWord16(count)...)
	sec = append(sec, records...)
	return sec
}

func emptySection() []byte {
	return putWord16(0)
}

// positionRecord encodes one source position as four bytes: file
// index, line's high byte, line's low byte, column. Lines above 65535
// saturate rather than wrap, since no real source file is that long.
func positionRecord(pos diag.Position) []byte {
	line := pos.Line
	if line > 0xFFFF {
		line = 0xFFFF
	}
	file := pos.FileIndex
	if file > 0xFF {
		file = 0xFF
	}
	return []byte{byte(file), byte(line >> 8), byte(line), byte(pos.Column)}
}

func lengthPrefixed(s string) []byte {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	out := putWord16(len(s))
	return append(out, []byte(s)...)
}

func putWord16(v int) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func putWord32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}
