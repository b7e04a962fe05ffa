// Package directive implements the subset of the directive dispatcher
// that belongs to this core rather than to the expression parser and
// bytecode assembler spec.md names as external collaborators (§1, §2
// "directive dispatcher (external)"): the directives that exist
// purely to drive the symbol table, the dynamic data area, and
// conditional compilation (§4.3, §4.4, §6) — Global, Array, Constant,
// Replace, Include, Link, System_file, and the #IfTrue/#Ifdef family.
// Routine, Object, Class, and Verb bodies are genuinely out of scope
// (§1's "expression parser and bytecode assembler"); Run skips over
// them rather than parsing them.
package directive

import (
	"os"
	"path/filepath"

	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/globals"
	"github.com/ninefold/ifcc/lexer"
	"github.com/ninefold/ifcc/symtab"
	"github.com/ninefold/ifcc/target"
)

// Directive-keyword group indices, in the exact order the lexer's
// classifier lists them (lexer.NewClassifier's KindDirectiveKeyword
// group) — GroupIndex on a KindDirectiveKeyword token is one of these.
const (
	dirGlobal = iota
	dirArray
	dirConstant
	dirReplace
	dirInclude
	dirLink
	dirSystemFile
	dirIfTrue
	dirIfnot
	dirIffalse
	dirEndif
	dirIfdef
	dirIfndef
	dirDefault
)

// Value is one evaluated operand: a known constant, or a symbol
// reference carrying whatever relocation marker its current type
// implies (§4.5's marker classes).
type Value struct {
	Raw         int32
	Marker      symtab.Marker
	SymbolIndex int // -1 if Raw is a plain constant
}

// condFrame is one level of #IfTrue/#Ifdef/#Ifndef nesting.
type condFrame struct {
	parentActive bool
	active       bool
	taken        bool // whether some branch of this group has already run
}

// Dispatcher ties the lexer to the symbol table and the dynamic data
// area, implementing the directives named above. It holds no
// knowledge of routine/statement syntax.
type Dispatcher struct {
	Lex     *lexer.Lexer
	Syms    *symtab.Table
	Globals *globals.Area
	Desc    *target.Descriptor
	Bag     *diag.Bag

	// BaseDir resolves relative Include/Link filenames.
	BaseDir string

	cond []condFrame
}

// New returns a dispatcher wired to the given components.
func New(lex *lexer.Lexer, syms *symtab.Table, area *globals.Area, desc *target.Descriptor, bag *diag.Bag, baseDir string) *Dispatcher {
	return &Dispatcher{Lex: lex, Syms: syms, Globals: area, Desc: desc, Bag: bag, BaseDir: baseDir}
}

func (d *Dispatcher) filename() string { return d.Lex.Source().CurrentFilename() }

// syncContext keeps identifiers lexed inside an inactive conditional
// block from polluting the symbol table (§4.2's
// dont_enter_into_symbol_table mode): directive keywords still
// classify normally either way, since Classify only special-cases
// ModeDirectiveOnly, but a plain identifier falls back to a bare-string
// token instead of IndexOrCreate while the bit is set.
func (d *Dispatcher) syncContext() {
	if d.currentlyActive() {
		d.Lex.SetContext(lexer.Default())
	} else {
		d.Lex.SetContext(lexer.Default().With(lexer.ModeDontEnterIntoSymbolTable))
	}
}

func symbolMarker(t symtab.Type) symtab.Marker {
	switch t {
	case symtab.TypeRoutine:
		return symtab.MarkerInternalRoutine
	case symtab.TypeArray, symtab.TypeStaticArray:
		return symtab.MarkerArray
	case symtab.TypeGlobalVariable:
		return symtab.MarkerGlobalVariable
	default:
		return symtab.MarkerGenericValue
	}
}

// Run drives the dispatcher to end-of-input, processing every
// top-level directive. A non-directive token at an active nesting
// level is either a segment marker (Object/Class/Routine/Verb), whose
// body this core skips wholesale, or stray input recovered from with
// the §7 panic-mode rule (consume to the next `;`).
func (d *Dispatcher) Run() error {
	for {
		d.syncContext()
		tok, err := d.Lex.Next()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.KindEOF {
			if len(d.cond) != 0 {
				return diag.Fatalf(tok.Pos, d.filename(), "unterminated #IfTrue/#Ifdef/#Ifndef block")
			}
			return nil
		}

		if tok.Kind == lexer.KindDirectiveKeyword {
			if err := d.dispatch(tok); err != nil {
				return err
			}
			continue
		}

		// `#IfTrue`, `#Ifdef`, `#Ifndef`, `#Ifnot`, `#Iffalse`, `#Endif`,
		// and `#Default` are always written `#`-prefixed; SepHash
		// consumes the following identifier into the same token rather
		// than handing it to the identifier classifier (§4.2), so they
		// arrive here as a separator, not a KindDirectiveKeyword.
		if tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepHash {
			if gi, ok := d.Lex.ClassifyDirectiveKeyword(string(tok.Text)); ok {
				if err := d.dispatch(lexer.Token{Kind: lexer.KindDirectiveKeyword, GroupIndex: gi, Pos: tok.Pos}); err != nil {
					return err
				}
				continue
			}
			if d.currentlyActive() {
				if err := d.skipToSemicolon(); err != nil {
					return err
				}
			}
			continue
		}

		if !d.currentlyActive() {
			continue
		}

		if tok.Kind == lexer.KindSegmentMarker {
			if err := d.skipSegment(tok.Pos); err != nil {
				return err
			}
			continue
		}

		if err := d.skipToSemicolon(); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) dispatch(tok lexer.Token) error {
	active := d.currentlyActive()

	switch tok.GroupIndex {
	case dirIfTrue:
		return d.handleIfTrue(tok.Pos)
	case dirIfdef:
		return d.handleIfdefFamily(tok.Pos, true)
	case dirIfndef:
		return d.handleIfdefFamily(tok.Pos, false)
	case dirIfnot, dirIffalse:
		return d.handleElse(tok.Pos)
	case dirEndif:
		return d.handleEndif(tok.Pos)
	}

	if !active {
		return d.skipToSemicolon()
	}

	switch tok.GroupIndex {
	case dirGlobal:
		return d.handleGlobal(tok.Pos)
	case dirArray:
		return d.handleArray(tok.Pos)
	case dirConstant:
		return d.handleConstant(tok.Pos)
	case dirReplace:
		return d.handleReplace(tok.Pos)
	case dirInclude:
		return d.handleInclude(tok.Pos, false)
	case dirLink:
		return d.handleInclude(tok.Pos, true)
	case dirSystemFile:
		return d.handleSystemFile(tok.Pos)
	case dirDefault:
		return d.handleDefault(tok.Pos)
	default:
		return d.syntaxError(tok.Pos, "unrecognized directive keyword")
	}
}

// syntaxError records a directive-level error and performs the §7
// panic-mode recovery: consume tokens until the next `;`.
func (d *Dispatcher) syntaxError(pos diag.Position, msg string) error {
	d.Bag.Errorf(pos, d.filename(), diag.KindDirective, "%s", msg)
	return d.skipToSemicolon()
}

func (d *Dispatcher) skipToSemicolon() error {
	for {
		tok, err := d.Lex.Next()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.KindEOF {
			return nil
		}
		if tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepSemicolon {
			return nil
		}
	}
}

// skipSegment consumes an Object/Class/Routine/Verb body, the territory
// of the expression parser and bytecode assembler this core does not
// own, tracking bracket depth so an embedded `;` inside a routine body
// does not end the skip early.
func (d *Dispatcher) skipSegment(pos diag.Position) error {
	depth := 0
	for {
		tok, err := d.Lex.Next()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.KindEOF {
			return diag.Fatalf(pos, d.filename(), "unterminated routine/object/class/verb body")
		}
		if tok.Kind == lexer.KindSeparator {
			switch lexer.SeparatorID(tok.NumValue) {
			case lexer.SepLBracket:
				depth++
			case lexer.SepRBracket:
				if depth > 0 {
					depth--
				}
			case lexer.SepSemicolon:
				if depth == 0 {
					return nil
				}
			}
		}
	}
}

func (d *Dispatcher) expectSemicolon() error {
	tok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.KindSeparator || lexer.SeparatorID(tok.NumValue) != lexer.SepSemicolon {
		d.Bag.Errorf(tok.Pos, d.filename(), diag.KindDirective, "expected ';'")
		return d.skipToSemicolon()
	}
	return nil
}

func (d *Dispatcher) valueFromToken(tok lexer.Token, pos diag.Position) (Value, error) {
	if tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepMinus {
		next, err := d.Lex.Next()
		if err != nil {
			return Value{}, err
		}
		if next.Kind != lexer.KindNumber {
			return Value{}, d.syntaxError(pos, "expected a number after '-'")
		}
		return Value{Raw: -int32(next.NumValue), SymbolIndex: -1}, nil
	}
	switch tok.Kind {
	case lexer.KindNumber:
		return Value{Raw: int32(tok.NumValue), SymbolIndex: -1}, nil
	case lexer.KindSymbol:
		sym := d.Syms.Get(tok.SymbolIndex)
		return Value{Raw: sym.Value, Marker: symbolMarker(sym.Type), SymbolIndex: tok.SymbolIndex}, nil
	default:
		return Value{}, d.syntaxError(pos, "expected a constant value")
	}
}

func (d *Dispatcher) readValue() (Value, error) {
	tok, err := d.Lex.Next()
	if err != nil {
		return Value{}, err
	}
	return d.valueFromToken(tok, tok.Pos)
}
