package lexer

import "sort"

// SeparatorID names one of the fixed multi-character separators the
// classifier knows about (§4.2). Distinguished separator classes that
// additionally consume a following identifier are named explicitly;
// everything else is a plain punctuation separator.
type SeparatorID int

const (
	SepNone SeparatorID = iota
	SepArrayArrow  // -->
	SepMinusMinus  // --
	SepArrow       // ->
	SepMinus       // -
	SepPlusPlus    // ++
	SepPlus        // +
	SepEq          // ==
	SepAssign      // =
	SepNe          // ~=
	SepNot         // ~
	SepAndAnd      // &&
	SepAnd         // &
	SepOrOr        // ||
	SepOr          // |
	SepLe          // <=
	SepLt          // <
	SepGe          // >=
	SepGt          // >
	SepShl         // <<
	SepShr         // >>
	SepColon       // :
	SepSemicolon   // ;
	SepComma       // ,
	SepLParen      // (
	SepRParen      // )
	SepLBracket    // [
	SepRBracket    // ]
	SepLBrace      // {
	SepRBrace      // }
	SepDot         // .
	SepAt          // @
	SepQuestion    // ?
	SepStar        // *
	SepSlash       // /
	SepPercent     // %
	SepDollar      // $

	// Distinguished classes that consume a following identifier.
	SepActionRef    // #a$
	SepGlobalRef    // #g$
	SepNumAttrRef   // #n$
	SepPropertyRef  // #r$
	SepWordRef      // #w$
	SepHashHash     // ##
	SepHash         // #
)

type separatorEntry struct {
	text string
	id   SeparatorID
	// consumesIdentifier marks the distinguished classes that swallow
	// a following bare identifier as part of the same token (§4.2).
	consumesIdentifier bool
}

// separatorTable is the fixed table of multi-character separators.
// It is built once (in sortedSeparators) ordered longest-first so a
// linear scan realizes longest-prefix-match without needing every
// prefix of a longer entry to literally precede it in source order.
var separatorTable = []separatorEntry{
	{"-->", SepArrayArrow, false},
	{"--", SepMinusMinus, false},
	{"->", SepArrow, false},
	{"-", SepMinus, false},
	{"++", SepPlusPlus, false},
	{"+", SepPlus, false},
	{"==", SepEq, false},
	{"=", SepAssign, false},
	{"~=", SepNe, false},
	{"~", SepNot, false},
	{"&&", SepAndAnd, false},
	{"&", SepAnd, false},
	{"||", SepOrOr, false},
	{"|", SepOr, false},
	{"<=", SepLe, false},
	{"<<", SepShl, false},
	{"<", SepLt, false},
	{">=", SepGe, false},
	{">>", SepShr, false},
	{">", SepGt, false},
	{":", SepColon, false},
	{";", SepSemicolon, false},
	{",", SepComma, false},
	{"(", SepLParen, false},
	{")", SepRParen, false},
	{"[", SepLBracket, false},
	{"]", SepRBracket, false},
	{"{", SepLBrace, false},
	{"}", SepRBrace, false},
	{".", SepDot, false},
	{"@", SepAt, false},
	{"?", SepQuestion, false},
	{"*", SepStar, false},
	{"/", SepSlash, false},
	{"%", SepPercent, false},
	{"$", SepDollar, false},
	{"#a$", SepActionRef, true},
	{"#g$", SepGlobalRef, true},
	{"#n$", SepNumAttrRef, true},
	{"#r$", SepPropertyRef, true},
	{"#w$", SepWordRef, true},
	{"##", SepHashHash, false},
	{"#", SepHash, true},
}

var sortedSeparators = sortSeparators()

func sortSeparators() []separatorEntry {
	out := make([]separatorEntry, len(separatorTable))
	copy(out, separatorTable)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].text) > len(out[j].text)
	})
	return out
}

// matchSeparator returns the longest entry whose text is a prefix of
// the next bytes from src (peeking only, nothing consumed), or
// (nil, false) if none matches.
func matchSeparator(src *Source) (*separatorEntry, bool) {
	for i := range sortedSeparators {
		e := &sortedSeparators[i]
		ok := true
		for k := 0; k < len(e.text); k++ {
			if src.Peek(k) != e.text[k] {
				ok = false
				break
			}
		}
		if ok {
			return e, true
		}
	}
	return nil, false
}
