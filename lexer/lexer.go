package lexer

import (
	"fmt"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
)

// ringCapacity is the put-back ring's size: at least 6 to support the
// worst-case lookahead §4.2 calls out (distinguishing an `objectloop`
// loop-header variant from its successor).
const ringCapacity = 6

// Lexer converts the character pipeline into tokens (§4.2).
type Lexer struct {
	src    *Source
	names  *arena.NameStore
	syms   *symtab.Table
	bag    *diag.Bag
	class  *Classifier
	ctx    Context
	target bool // true selects the 32-bit (Glulx) target, which allows float literals

	ring      [ringCapacity]Token
	ringCount int // number of tokens currently pushed back, read from the front

	segments *locationLog
}

// New returns a lexer reading from src, resolving identifiers through
// syms, under the default context.
func New(src *Source, names *arena.NameStore, syms *symtab.Table, bag *diag.Bag, glulxTarget bool) *Lexer {
	return &Lexer{
		src:      src,
		names:    names,
		syms:     syms,
		bag:      bag,
		class:    NewClassifier(),
		ctx:      Default(),
		target:   glulxTarget,
		segments: newLocationLog(),
	}
}

// ClassifyDirectiveKeyword exposes the classifier's directive-keyword
// group alone, for a `#`-prefixed directive name (see
// Classifier.ClassifyDirectiveKeyword).
func (l *Lexer) ClassifyDirectiveKeyword(name string) (int, bool) {
	return l.class.ClassifyDirectiveKeyword(name)
}

// Source exposes the lexer's character pipeline, letting a directive
// dispatcher push an `Include`d file or mark the current block as a
// system file (§6).
func (l *Lexer) Source() *Source { return l.src }

// SetContext installs ctx as the lexer's current lexical context.
func (l *Lexer) SetContext(ctx Context) { l.ctx = ctx }

// Context returns the lexer's current lexical context.
func (l *Lexer) Context() Context { return l.ctx }

func (l *Lexer) pos() diag.Position {
	return diag.Position{FileIndex: l.src.CurrentFileIndex(), Line: l.src.CurrentLine(), Column: l.src.CurrentColumn()}
}

// PutBack pushes tok back onto the ring so the next Next() returns it
// again. If tok.NewSymbol is set, the symbol it caused to be created is
// un-created (§4.2, §9): EndScope(never-used=true) tombstones it so a
// failed parse never leaves a phantom symbol behind.
//
// Pushing back beyond ring capacity is a fatal internal error (§4.2,
// §8: "the N+1-th put-back is a fatal internal error when N equals
// ring capacity - 1").
func (l *Lexer) PutBack(tok Token) error {
	if l.ringCount >= ringCapacity-1 {
		return diag.Internalf("put-back ring exhausted (capacity %d)", ringCapacity)
	}
	// Shift existing pending tokens right to make room at the front.
	for i := l.ringCount; i > 0; i-- {
		l.ring[i] = l.ring[i-1]
	}
	l.ring[0] = tok
	l.ringCount++

	if tok.NewSymbol {
		l.syms.EndScope(tok.SymbolIndex, true)
	}
	return nil
}

// Next returns the next token, either replayed from the put-back ring
// (reinterpreted if the context has changed since it was classified,
// per §4.2) or freshly lexed.
func (l *Lexer) Next() (Token, error) {
	if l.ringCount > 0 {
		tok := l.ring[0]
		for i := 0; i < l.ringCount-1; i++ {
			l.ring[i] = l.ring[i+1]
		}
		l.ringCount--
		if tok.Context != l.ctx && (tok.Kind == KindBareIdentifier || isKeywordKind(tok.Kind)) {
			return l.reclassifyIdentifier(string(tok.Text), tok.Pos)
		}
		return tok, nil
	}
	return l.lex()
}

func isKeywordKind(k Kind) bool {
	return k >= KindDirectiveKeyword && k <= KindLocalVariable
}

func (l *Lexer) reclassifyIdentifier(name string, pos diag.Position) (Token, error) {
	return l.classifyIdentifier(name, pos), nil
}

func (l *Lexer) lex() (Token, error) {
restart:
	b := l.src.Peek(0)

	switch {
	case b == 0:
		return Token{Kind: KindEOF, Pos: l.pos(), Context: l.ctx}, nil
	case isSpace(b):
		l.src.Next()
		goto restart
	case b == '!':
		// comment to end of line
		for {
			c := l.src.Next()
			if c == 0 || c == '\n' {
				break
			}
		}
		goto restart
	case isDigit(b):
		return l.lexNumber()
	case b == '$':
		return l.lexDollar()
	case b == '\'':
		return l.lexSingleQuoted()
	case b == '"':
		return l.lexDoubleQuoted()
	case isIdentStart(b):
		return l.lexIdentifier()
	default:
		return l.lexSeparator()
	}
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }

func (l *Lexer) lexNumber() (Token, error) {
	pos := l.pos()
	var buf []byte
	for isDigit(l.src.Peek(0)) {
		buf = append(buf, l.src.Next())
	}
	v := parseDecimal(buf)
	return Token{Kind: KindNumber, NumValue: v, Pos: pos, Context: l.ctx}, nil
}

func parseDecimal(buf []byte) int64 {
	var v int64
	for _, c := range buf {
		v = v*10 + int64(c-'0')
	}
	return v
}

func (l *Lexer) lexDollar() (Token, error) {
	pos := l.pos()
	l.src.Next() // consume '$'

	switch l.src.Peek(0) {
	case '$':
		l.src.Next()
		var buf []byte
		for l.src.Peek(0) == '0' || l.src.Peek(0) == '1' {
			buf = append(buf, l.src.Next())
		}
		var v int64
		for _, c := range buf {
			v = v*2 + int64(c-'0')
		}
		return Token{Kind: KindNumber, NumValue: v, Pos: pos, Context: l.ctx}, nil
	case '+', '-', '<', '>':
		return l.lexFloatLiteral(pos)
	default:
		var buf []byte
		for isHexDigit(l.src.Peek(0)) {
			buf = append(buf, l.src.Next())
		}
		var v int64
		for _, c := range buf {
			v = v*16 + int64(hexVal(c))
		}
		return Token{Kind: KindNumber, NumValue: v, Pos: pos, Context: l.ctx}, nil
	}
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func (l *Lexer) lexFloatLiteral(pos diag.Position) (Token, error) {
	if !l.target {
		l.bag.Errorf(pos, l.src.CurrentFilename(), diag.KindLexical, "float literals are only legal on the 32-bit target")
	}

	wide := false
	low := false
	switch l.src.Peek(0) {
	case '<':
		wide, low = true, true
		l.src.Next()
	case '>':
		wide, low = true, false
		l.src.Next()
	}

	negative := false
	switch l.src.Peek(0) {
	case '+':
		l.src.Next()
	case '-':
		negative = true
		l.src.Next()
	}

	var mantissa, frac []byte
	for isDigit(l.src.Peek(0)) {
		mantissa = append(mantissa, l.src.Next())
	}
	if l.src.Peek(0) == '.' {
		l.src.Next()
		for isDigit(l.src.Peek(0)) {
			frac = append(frac, l.src.Next())
		}
	}

	expSign := 1
	expDigits := ""
	if l.src.Peek(0) == 'e' || l.src.Peek(0) == 'E' {
		l.src.Next()
		if l.src.Peek(0) == '+' {
			l.src.Next()
		} else if l.src.Peek(0) == '-' {
			expSign = -1
			l.src.Next()
		}
		var digits []byte
		for isDigit(l.src.Peek(0)) {
			digits = append(digits, l.src.Next())
		}
		if len(digits) == 0 {
			expDigits = "missing"
		} else {
			expDigits = string(digits)
		}
	}

	bits, ok := ParseFloatLiteral(string(mantissa), string(frac), expSign, expDigits, negative, wide, low)
	if !ok {
		l.bag.Errorf(pos, l.src.CurrentFilename(), diag.KindLexical, "float literal missing exponent digits after 'e'")
		return Token{Kind: KindNumber, NumValue: 0, Float: true, Pos: pos, Context: l.ctx}, nil
	}
	return Token{Kind: KindNumber, NumValue: int64(bits), Float: true, Pos: pos, Context: l.ctx}, nil
}

func (l *Lexer) lexSingleQuoted() (Token, error) {
	pos := l.pos()
	l.src.Next() // opening quote
	var buf []byte
	for {
		c := l.src.Peek(0)
		if c == 0 {
			return Token{}, fmt.Errorf("%s: unterminated character literal", pos)
		}
		if c == '\'' {
			l.src.Next()
			break
		}
		if c == '@' && l.src.Peek(1) == '\'' {
			l.src.Next()
			buf = append(buf, l.src.Next())
			continue
		}
		buf = append(buf, l.src.Next())
	}
	text := l.names.Put(string(buf))
	return Token{Kind: KindSQString, Text: text, Pos: pos, Context: l.ctx}, nil
}

func (l *Lexer) lexDoubleQuoted() (Token, error) {
	pos := l.pos()
	l.src.Next() // opening quote
	var buf []byte
	for {
		c := l.src.Peek(0)
		if c == 0 {
			return Token{}, fmt.Errorf("%s: unterminated string literal", pos)
		}
		if c == '"' {
			l.src.Next()
			break
		}
		if c == '\\' {
			l.src.Next()
			// line splice: backslash at end of line, must be followed
			// by whitespace until newline (§4.2).
			for l.src.Peek(0) == ' ' || l.src.Peek(0) == '\t' {
				l.src.Next()
			}
			if l.src.Peek(0) == '\n' {
				l.src.Next()
				continue
			}
			buf = append(buf, l.src.Next())
			continue
		}
		if c == '^' {
			l.src.Next()
			buf = append(buf, '\n')
			continue
		}
		if c == '\n' {
			// embedded newline: collapse the following run of
			// whitespace to a single space (§4.2).
			buf = append(buf, ' ')
			for isSpace(l.src.Peek(0)) {
				l.src.Next()
			}
			continue
		}
		buf = append(buf, l.src.Next())
	}
	text := l.names.Put(string(buf))
	return Token{Kind: KindDQString, Text: text, Pos: pos, Context: l.ctx}, nil
}

func (l *Lexer) lexIdentifier() (Token, error) {
	pos := l.pos()
	var buf []byte
	for isIdentCont(l.src.Peek(0)) {
		buf = append(buf, l.src.Next())
	}
	name := string(buf)
	tok := l.classifyIdentifier(name, pos)
	return tok, nil
}

func (l *Lexer) classifyIdentifier(name string, pos diag.Position) Token {
	if kind, group, ok := l.class.Classify(name, l.ctx); ok {
		return Token{Kind: kind, GroupIndex: group, Text: l.names.Put(name), Pos: pos, Context: l.ctx}
	}

	if l.ctx.Has(ModeDontEnterIntoSymbolTable) || l.ctx.Has(ModeDirectiveOnly) {
		return Token{Kind: KindBareIdentifier, Text: l.names.Put(name), Pos: pos, Context: l.ctx}
	}

	idx, created := l.syms.IndexOrCreate(name, pos, l.src.CurrentFilename())
	return Token{
		Kind:        KindSymbol,
		Text:        l.names.Put(name),
		Pos:         pos,
		Context:     l.ctx,
		NewSymbol:   created,
		SymbolIndex: idx,
	}
}

func (l *Lexer) lexSeparator() (Token, error) {
	pos := l.pos()
	e, ok := matchSeparator(l.src)
	if !ok {
		bad := l.src.Next()
		l.bag.Errorf(pos, l.src.CurrentFilename(), diag.KindLexical, "illegal source byte %#x", bad)
		return l.lex()
	}
	for range e.text {
		l.src.Next()
	}
	tok := Token{Kind: KindSeparator, NumValue: int64(e.id), Pos: pos, Context: l.ctx}
	if e.consumesIdentifier {
		var buf []byte
		for isIdentCont(l.src.Peek(0)) {
			buf = append(buf, l.src.Next())
		}
		tok.Text = l.names.Put(string(buf))
	}
	return tok, nil
}
