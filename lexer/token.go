// Package lexer turns a character stream into tokens (§4.2): a
// three-character-lookahead pipeline, a bounded put-back ring, and a
// context-sensitive keyword classifier that consults the symbol table.
package lexer

import "github.com/ninefold/ifcc/diag"

// Kind identifies the shape of a token (§3).
type Kind int

const (
	KindEOF Kind = iota
	KindSymbol
	KindNumber
	KindDQString
	KindSQString
	KindBareIdentifier
	KindSeparator

	// Keyword-group kinds: each identifies the family a matched
	// keyword came from; the token's GroupIndex names which keyword
	// within the group.
	KindDirectiveKeyword
	KindStatement
	KindCondition
	KindSystemFunction
	KindSystemConstant
	KindOpcodeName
	KindSegmentMarker
	KindTraceKeyword
	KindMiscKeyword
	KindOpcodeMacro
	KindLocalVariable
)

func (k Kind) String() string {
	names := [...]string{
		"eof", "symbol", "number", "dq-string", "sq-string", "bare-identifier",
		"separator", "directive-keyword", "statement", "condition",
		"system-function", "system-constant", "opcode-name", "segment-marker",
		"trace-keyword", "misc-keyword", "opcode-macro", "local-variable",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown-kind"
}

// Token is one lexical unit (§3). Text is either borrowed from the
// name arena (stable) or points into a short-lived per-token buffer
// reclaimed at the end of the enclosing directive/statement, per §3's
// lifecycle note; the lexer always stores through the arena so the
// distinction never causes a dangling read in practice.
type Token struct {
	Kind Kind

	// NumValue holds the numeric value for KindNumber (decimal, hex,
	// binary, or IEEE-754 bit pattern) and the float literal's encoded
	// bits when Float is true.
	NumValue int64
	Float    bool

	// GroupIndex is the index within the matched keyword group, valid
	// for the keyword-family Kinds.
	GroupIndex int

	Text []byte
	Pos  diag.Position

	// NewSymbol is true if looking up Text in the symbol table just
	// created it. PutBack must undo that creation (§4.2, §9).
	NewSymbol   bool
	SymbolIndex int

	// Context snapshots which keyword groups and mode bits were
	// enabled when this token was classified (§4.2 "Lexical context").
	Context Context
}
