package directive

import (
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/globals"
	"github.com/ninefold/ifcc/lexer"
	"github.com/ninefold/ifcc/symtab"
)

// handleGlobal implements `Global NAME [= EXPR];` (§4.4 "Global
// variable directive"). The deprecated array-spec form is not
// implemented; `Array` already covers every shape it could name.
func (d *Dispatcher) handleGlobal(pos diag.Position) error {
	nameTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != lexer.KindSymbol {
		return d.syntaxError(pos, "Global requires a name")
	}
	idx := nameTok.SymbolIndex
	sym := d.Syms.Get(idx)
	if !sym.HasFlag(symtab.FlagUnknown) {
		return d.syntaxError(pos, "symbol already defined")
	}

	slot, err := d.Globals.AllocateGlobalSlot()
	if err != nil {
		return err
	}

	value := Value{SymbolIndex: -1}
	tok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	switch {
	case tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepAssign:
		value, err = d.readValue()
		if err != nil {
			return err
		}
		if err := d.expectSemicolon(); err != nil {
			return err
		}
	case tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepSemicolon:
		// no initializer: slot stays zero.
	default:
		return d.syntaxError(pos, "malformed Global directive")
	}

	d.Syms.Assign(idx, int32(slot), symtab.TypeGlobalVariable, pos, d.filename(), d.Lex.Source().InSystemFile())
	d.Globals.WriteGlobalSlot(slot, globals.Entry{Value: value.Raw, Marker: value.Marker, SymbolIndex: value.SymbolIndex})
	return nil
}

// handleConstant implements `Constant NAME [= EXPR];` (§4.3, and the
// redefinition-tolerance rule §8's idempotence property requires: a
// second `Constant NAME = sameValue;` is a silent no-op).
func (d *Dispatcher) handleConstant(pos diag.Position) error {
	nameTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != lexer.KindSymbol {
		return d.syntaxError(pos, "Constant requires a name")
	}
	idx := nameTok.SymbolIndex
	sym := d.Syms.Get(idx)

	value := Value{SymbolIndex: -1}
	tok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	switch {
	case tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepAssign:
		value, err = d.readValue()
		if err != nil {
			return err
		}
		if err := d.expectSemicolon(); err != nil {
			return err
		}
	case tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepSemicolon:
		// bare `Constant NAME;` defaults to zero.
	default:
		return d.syntaxError(pos, "malformed Constant directive")
	}

	if !sym.HasFlag(symtab.FlagUnknown) {
		if sym.Type == symtab.TypeConstant && sym.Value == value.Raw {
			return nil
		}
		if sym.HasFlag(symtab.FlagRedefinable) {
			d.Syms.AssignWithMarker(idx, value.Marker, value.Raw, symtab.TypeConstant, pos, d.filename(), d.Lex.Source().InSystemFile())
			return nil
		}
		d.Bag.Errorf(pos, d.filename(), diag.KindDirective, "symbol %q already defined", sym.NameString())
		return nil
	}

	d.Syms.AssignWithMarker(idx, value.Marker, value.Raw, symtab.TypeConstant, pos, d.filename(), d.Lex.Source().InSystemFile())
	return nil
}

// handleReplace implements `Replace FROM TO;` (§4.3 "Replacement
// map"), delegating the three constraint checks to symtab.Table.Replace.
func (d *Dispatcher) handleReplace(pos diag.Position) error {
	fromTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	toTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	if fromTok.Kind != lexer.KindSymbol || toTok.Kind != lexer.KindSymbol {
		return d.syntaxError(pos, "Replace requires two symbol names")
	}
	if err := d.expectSemicolon(); err != nil {
		return err
	}
	if err := d.Syms.Replace(fromTok.SymbolIndex, toTok.SymbolIndex); err != nil {
		d.Bag.Errorf(pos, d.filename(), diag.KindDirective, "%s", err.Error())
	}
	return nil
}

// handleDefault implements `Default NAME EXPR;`: NAME is defined as a
// constant only if it has no existing definition yet.
func (d *Dispatcher) handleDefault(pos diag.Position) error {
	nameTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	if nameTok.Kind != lexer.KindSymbol {
		return d.syntaxError(pos, "Default requires a name")
	}
	idx := nameTok.SymbolIndex
	value, err := d.readValue()
	if err != nil {
		return err
	}
	if err := d.expectSemicolon(); err != nil {
		return err
	}

	sym := d.Syms.Get(idx)
	if sym.HasFlag(symtab.FlagUnknown) {
		d.Syms.AssignWithMarker(idx, value.Marker, value.Raw, symtab.TypeConstant, pos, d.filename(), d.Lex.Source().InSystemFile())
	}
	return nil
}
