package lexer

import (
	"testing"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLexer(t *testing.T, text string) (*Lexer, *diag.Bag) {
	t.Helper()
	names := arena.NewNameStore(0)
	syms := symtab.New(names)
	bag := diag.NewBag()
	src := NewSource()
	src.PushString("<test>", text)
	return New(src, names, syms, bag, true), bag
}

func TestPutBackReplaysSameToken(t *testing.T) {
	lx, bag := newTestLexer(t, "alpha beta")
	first, err := lx.Next()
	require.NoError(t, err)
	require.NoError(t, lx.PutBack(first))

	replayed, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, first.Kind, replayed.Kind)
	assert.Equal(t, string(first.Text), string(replayed.Text))
	assert.False(t, bag.HasErrors())
}

func TestPutBackRingCapacityExhaustion(t *testing.T) {
	lx, _ := newTestLexer(t, "a b c d e f g h")
	var toks []Token
	for i := 0; i < ringCapacity+1; i++ {
		tok, err := lx.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
	}
	// Fill the ring with N = ringCapacity-1 tokens, without ever
	// draining it via Next (which would free a slot).
	for i := ringCapacity - 2; i >= 0; i-- {
		require.NoError(t, lx.PutBack(toks[i]))
	}
	// The ring is now full; the N+1-th put-back, of a token never placed
	// in it, must fail with a fatal internal error.
	err := lx.PutBack(toks[ringCapacity-1])
	require.Error(t, err)
	var internalErr *diag.InternalError
	assert.ErrorAs(t, err, &internalErr)
}

func TestPutBackUndoesSymbolCreation(t *testing.T) {
	lx, _ := newTestLexer(t, "brandnewsymbol")
	tok, err := lx.Next()
	require.NoError(t, err)
	require.Equal(t, KindSymbol, tok.Kind)
	require.True(t, tok.NewSymbol)

	_, existedBeforePutback := lx.syms.IndexOf("brandnewsymbol")
	assert.True(t, existedBeforePutback)

	require.NoError(t, lx.PutBack(tok))
	_, existsAfterPutback := lx.syms.IndexOf("brandnewsymbol")
	assert.False(t, existsAfterPutback, "put-back must tombstone the symbol it created")
}

func TestLongestPrefixSeparatorMatch(t *testing.T) {
	lx, _ := newTestLexer(t, "--> -- -> -")
	var ids []int64
	for {
		tok, err := lx.Next()
		require.NoError(t, err)
		if tok.Kind == KindEOF {
			break
		}
		require.Equal(t, KindSeparator, tok.Kind)
		ids = append(ids, tok.NumValue)
	}
	require.Equal(t, []int64{int64(SepArrayArrow), int64(SepMinusMinus), int64(SepArrow), int64(SepMinus)}, ids)
}

func TestDoubleQuotedStringEscapesAndSentinel(t *testing.T) {
	lx, _ := newTestLexer(t, "\"line one^line two\"")
	tok, err := lx.Next()
	require.NoError(t, err)
	require.Equal(t, KindDQString, tok.Kind)
	assert.Equal(t, "line one\nline two", string(tok.Text))
}

func TestDecimalNumberLiteral(t *testing.T) {
	lx, _ := newTestLexer(t, "12345")
	tok, err := lx.Next()
	require.NoError(t, err)
	require.Equal(t, KindNumber, tok.Kind)
	assert.Equal(t, int64(12345), tok.NumValue)
}

func TestHexAndBinaryNumberLiterals(t *testing.T) {
	lx, _ := newTestLexer(t, "$1f $$101")
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(0x1f), tok.NumValue)

	tok, err = lx.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(5), tok.NumValue)
}

func TestFloatLiteralPositiveOne(t *testing.T) {
	lx, _ := newTestLexer(t, "$+1.0e0")
	tok, err := lx.Next()
	require.NoError(t, err)
	require.True(t, tok.Float)
	assert.Equal(t, uint32(0x3F800000), uint32(tok.NumValue))
}

func TestFloatLiteralNegativeZero(t *testing.T) {
	lx, _ := newTestLexer(t, "$-0.0")
	tok, err := lx.Next()
	require.NoError(t, err)
	require.True(t, tok.Float)
	assert.Equal(t, uint32(0x80000000), uint32(tok.NumValue))
}

func TestFloatLiteralOverflowSaturatesToInfinity(t *testing.T) {
	lx, _ := newTestLexer(t, "$+1e200")
	tok, err := lx.Next()
	require.NoError(t, err)
	require.True(t, tok.Float)
	assert.Equal(t, uint32(0x7F800000), uint32(tok.NumValue))
}

func TestFloatLiteralMissingExponentDigitsIsError(t *testing.T) {
	lx, bag := newTestLexer(t, "$+1.0e")
	_, err := lx.Next()
	require.NoError(t, err)
	assert.True(t, bag.HasErrors())
}

func TestDirectiveOnlyContextRestrictsClassification(t *testing.T) {
	lx, _ := newTestLexer(t, "Global if")
	lx.SetContext(Default().With(ModeDirectiveOnly))

	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, KindDirectiveKeyword, tok.Kind)

	tok, err = lx.Next()
	require.NoError(t, err)
	assert.Equal(t, KindBareIdentifier, tok.Kind, "'if' is a statement keyword, not a directive keyword, so it must not classify under ModeDirectiveOnly")
}

func TestBeginEndSpanTracksPositions(t *testing.T) {
	lx, _ := newTestLexer(t, "alpha beta gamma")
	cursor := lx.Begin()
	_, err := lx.Next()
	require.NoError(t, err)
	_, err = lx.Next()
	require.NoError(t, err)
	start, end, ok := lx.End(cursor)
	require.True(t, ok)
	assert.Equal(t, 1, start.Column)
	assert.True(t, end.Column > start.Column)
}

func TestLexerRestartIsDeterministic(t *testing.T) {
	const text = "Global foo 100 \"hi\""
	collect := func() []Kind {
		lx, _ := newTestLexer(t, text)
		var kinds []Kind
		for {
			tok, err := lx.Next()
			require.NoError(t, err)
			kinds = append(kinds, tok.Kind)
			if tok.Kind == KindEOF {
				break
			}
		}
		return kinds
	}
	assert.Equal(t, collect(), collect())
}
