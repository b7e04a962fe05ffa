package directive

import (
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/globals"
	"github.com/ninefold/ifcc/lexer"
	"github.com/ninefold/ifcc/symtab"
)

// handleArray implements `Array NAME <shape> <body>;` (§4.4 "Array
// directive"), covering all four body forms: size-only, data list,
// ASCII string, and bracketed list.
func (d *Dispatcher) handleArray(pos diag.Position) error {
	// The shape words (string/table/buffer) are misc keywords; keep that
	// group off while reading the name so they can still name an array.
	ctx := d.Lex.Context()
	d.Lex.SetContext(ctx.Without(lexer.GroupMiscKeywords))
	nameTok, err := d.Lex.Next()
	d.Lex.SetContext(ctx)
	if err != nil {
		return err
	}
	if nameTok.Kind != lexer.KindSymbol {
		return d.syntaxError(pos, "Array requires a name")
	}
	idx := nameTok.SymbolIndex

	shapeTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	shape, err := d.classifyShape(shapeTok, pos)
	if err != nil {
		return err
	}

	entries, err := d.readArrayBody(pos)
	if err != nil {
		return err
	}

	value, err := d.Globals.AddArray(idx, string(nameTok.Text), shape, entries, d.Bag, pos, d.filename())
	if err != nil {
		return err
	}
	d.Syms.AssignWithMarker(idx, symtab.MarkerArray, value, symtab.TypeArray, pos, d.filename(), d.Lex.Source().InSystemFile())
	return nil
}

func (d *Dispatcher) classifyShape(tok lexer.Token, pos diag.Position) (globals.Shape, error) {
	if tok.Kind == lexer.KindSeparator {
		switch lexer.SeparatorID(tok.NumValue) {
		case lexer.SepArrow:
			return globals.ShapeByte, nil
		case lexer.SepArrayArrow:
			return globals.ShapeWord, nil
		}
	}
	if tok.Kind == lexer.KindMiscKeyword {
		switch tok.GroupIndex {
		case 0: // "string"
			return globals.ShapeString, nil
		case 1: // "table"
			return globals.ShapeTable, nil
		case 2: // "buffer"
			return globals.ShapeBuffer, nil
		}
	}
	return 0, d.syntaxError(pos, "unrecognized Array shape")
}

func (d *Dispatcher) readArrayBody(pos diag.Position) ([]globals.Entry, error) {
	tok, err := d.Lex.Next()
	if err != nil {
		return nil, err
	}

	if tok.Kind == lexer.KindDQString {
		return d.readASCIIBody(tok, pos)
	}
	if tok.Kind == lexer.KindSeparator && lexer.SeparatorID(tok.NumValue) == lexer.SepLBracket {
		return d.readBracketedBody(pos)
	}

	first, err := d.valueFromToken(tok, pos)
	if err != nil {
		return nil, err
	}

	next, err := d.Lex.Next()
	if err != nil {
		return nil, err
	}
	if next.Kind == lexer.KindSeparator && lexer.SeparatorID(next.NumValue) == lexer.SepSemicolon {
		// size-only form: first names the zero-initialised entry count.
		return make([]globals.Entry, first.Raw), nil
	}
	if err := d.Lex.PutBack(next); err != nil {
		return nil, err
	}
	return d.readDataList(first, pos)
}

func (d *Dispatcher) readDataList(first Value, pos diag.Position) ([]globals.Entry, error) {
	entries := []globals.Entry{{Value: first.Raw, Marker: first.Marker, SymbolIndex: first.SymbolIndex}}
	for {
		tok, err := d.Lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.KindSeparator {
			switch lexer.SeparatorID(tok.NumValue) {
			case lexer.SepSemicolon:
				return entries, nil
			case lexer.SepComma:
				continue
			}
		}
		v, err := d.valueFromToken(tok, pos)
		if err != nil {
			return nil, err
		}
		entries = append(entries, globals.Entry{Value: v.Raw, Marker: v.Marker, SymbolIndex: v.SymbolIndex})
	}
}

func (d *Dispatcher) readBracketedBody(pos diag.Position) ([]globals.Entry, error) {
	var entries []globals.Entry
	for {
		tok, err := d.Lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.KindSeparator {
			switch lexer.SeparatorID(tok.NumValue) {
			case lexer.SepRBracket:
				if err := d.expectSemicolon(); err != nil {
					return nil, err
				}
				return entries, nil
			case lexer.SepComma, lexer.SepSemicolon:
				continue
			}
		}
		v, err := d.valueFromToken(tok, pos)
		if err != nil {
			return nil, err
		}
		entries = append(entries, globals.Entry{Value: v.Raw, Marker: v.Marker, SymbolIndex: v.SymbolIndex})
	}
}

// readASCIIBody turns each character of a double-quoted string into
// one byte entry (§4.4's "ASCII" body form). Text has already passed
// through the host->Latin-1 translation grid at lex time (§4.2), so no
// further translation happens here. Host bytes the grid could not
// translate arrive as '?' and are stored as such, with no diagnostic;
// only a zero byte is rejected.
func (d *Dispatcher) readASCIIBody(tok lexer.Token, pos diag.Position) ([]globals.Entry, error) {
	entries := make([]globals.Entry, 0, len(tok.Text))
	for _, b := range tok.Text {
		if b == 0 {
			d.Bag.Errorf(pos, d.filename(), diag.KindDirective, "character has no representation on this target")
			continue
		}
		entries = append(entries, globals.Entry{Value: int32(b), SymbolIndex: -1})
	}
	if err := d.expectSemicolon(); err != nil {
		return nil, err
	}
	return entries, nil
}
