package directive

import (
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/lexer"
	"github.com/ninefold/ifcc/symtab"
)

// currentlyActive reports whether the innermost conditional-compilation
// frame (if any) is currently emitting.
func (d *Dispatcher) currentlyActive() bool {
	if len(d.cond) == 0 {
		return true
	}
	return d.cond[len(d.cond)-1].active
}

func (d *Dispatcher) pushCond(conditionTrue bool) {
	parent := d.currentlyActive()
	d.cond = append(d.cond, condFrame{parentActive: parent, active: parent && conditionTrue, taken: conditionTrue})
}

// elseCond implements the `#Ifnot`/`#Iffalse` else marker: flips the
// innermost frame to active only if its original condition was false
// and its parent is active.
func (d *Dispatcher) elseCond(pos diag.Position) error {
	if len(d.cond) == 0 {
		return diag.Fatalf(pos, d.filename(), "#Ifnot/#Iffalse with no matching #IfTrue/#Ifdef/#Ifndef")
	}
	f := &d.cond[len(d.cond)-1]
	f.active = f.parentActive && !f.taken
	f.taken = true
	return nil
}

func (d *Dispatcher) popCond(pos diag.Position) error {
	if len(d.cond) == 0 {
		return diag.Fatalf(pos, d.filename(), "#Endif with no matching #IfTrue/#Ifdef/#Ifndef")
	}
	d.cond = d.cond[:len(d.cond)-1]
	return nil
}

// handleIfTrue implements `#IfTrue EXPR;` (§8 scenario 6). EXPR is a
// single operand optionally followed by one relational separator and
// a second operand — the constant-expression subset this directive
// actually needs, not the general expression grammar §1 places out of
// scope.
func (d *Dispatcher) handleIfTrue(pos diag.Position) error {
	cond, err := d.evalCondition()
	if err != nil {
		return err
	}
	if err := d.expectSemicolon(); err != nil {
		return err
	}
	d.pushCond(cond)
	return nil
}

func (d *Dispatcher) evalCondition() (bool, error) {
	left, err := d.readValue()
	if err != nil {
		return false, err
	}

	tok, err := d.Lex.Next()
	if err != nil {
		return false, err
	}
	if tok.Kind != lexer.KindSeparator {
		if err := d.Lex.PutBack(tok); err != nil {
			return false, err
		}
		return left.Raw != 0, nil
	}

	switch lexer.SeparatorID(tok.NumValue) {
	case lexer.SepGe, lexer.SepGt, lexer.SepLe, lexer.SepLt, lexer.SepEq, lexer.SepNe:
		right, err := d.readValue()
		if err != nil {
			return false, err
		}
		switch lexer.SeparatorID(tok.NumValue) {
		case lexer.SepGe:
			return left.Raw >= right.Raw, nil
		case lexer.SepGt:
			return left.Raw > right.Raw, nil
		case lexer.SepLe:
			return left.Raw <= right.Raw, nil
		case lexer.SepLt:
			return left.Raw < right.Raw, nil
		case lexer.SepEq:
			return left.Raw == right.Raw, nil
		default: // SepNe
			return left.Raw != right.Raw, nil
		}
	default:
		if err := d.Lex.PutBack(tok); err != nil {
			return false, err
		}
		return left.Raw != 0, nil
	}
}

// handleIfdefFamily implements `#Ifdef NAME;` (wantDefined=true) and
// `#Ifndef NAME;` (wantDefined=false). Looking NAME up always creates
// it (the lexer's default context does), which leaves FlagUnknown set
// exactly when it was not already known — that flag is the "defined"
// test.
func (d *Dispatcher) handleIfdefFamily(pos diag.Position, wantDefined bool) error {
	tok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	defined := tok.Kind == lexer.KindSymbol && !d.Syms.Get(tok.SymbolIndex).HasFlag(symtab.FlagUnknown)
	if err := d.expectSemicolon(); err != nil {
		return err
	}
	d.pushCond(defined == wantDefined)
	return nil
}

func (d *Dispatcher) handleElse(pos diag.Position) error {
	if err := d.expectSemicolon(); err != nil {
		return err
	}
	return d.elseCond(pos)
}

func (d *Dispatcher) handleEndif(pos diag.Position) error {
	if err := d.expectSemicolon(); err != nil {
		return err
	}
	return d.popCond(pos)
}
