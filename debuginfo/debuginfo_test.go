package debuginfo

import (
	"testing"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStartsWithMagicAndVersion(t *testing.T) {
	names := arena.NewNameStore(0)
	syms := symtab.New(names)

	data := Build(syms, []string{"game.inf"})
	require.GreaterOrEqual(t, len(data), 4)
	assert.Equal(t, byte(0xDE), data[0])
	assert.Equal(t, byte(0xBF), data[1])
	assert.Equal(t, []byte{0x00, 0x01}, data[2:4])
}

func TestBuildRecordsSourceFileNames(t *testing.T) {
	names := arena.NewNameStore(0)
	syms := symtab.New(names)

	data := Build(syms, []string{"game.inf", "parser.inf"})
	// magic(2) + version(2) + file count(2)
	offset := 6
	fileCount := int(data[4])<<8 | int(data[5])
	assert.Equal(t, 2, fileCount)

	nameLen := int(data[offset])<<8 | int(data[offset+1])
	offset += 2
	assert.Equal(t, "game.inf", string(data[offset:offset+nameLen]))
}

func TestBuildRecordsSymbolDefinitionSite(t *testing.T) {
	store := arena.NewNameStore(0)
	syms := symtab.New(store)

	idx, _ := syms.IndexOrCreate("score", diag.Position{FileIndex: 0, Line: 3, Column: 5}, "game.inf")
	syms.Assign(idx, 1, symtab.TypeGlobalVariable, diag.Position{FileIndex: 0, Line: 3, Column: 5}, "game.inf", false)

	data := Build(syms, []string{"game.inf"})
	assert.Equal(t, byte(0xDE), data[0])
	assert.NotEmpty(t, data)
	// magic(2) + version(2) + file table(2+2+8) + symbol count(2) +
	// name(2+5) + type(1) + value(4) puts the position record at 30.
	assert.Equal(t, []byte{0x00, 0x00, 0x03, 0x05}, data[30:34], "file 0, line 3, column 5")
}

func TestBuildSkipsUnhashedSymbols(t *testing.T) {
	store := arena.NewNameStore(0)
	syms := symtab.New(store)
	idx, _ := syms.IndexOrCreate("temp", diag.Position{}, "game.inf")
	syms.EndScope(idx, true)

	before := symbolsSection(syms)
	assert.Equal(t, []byte{0x00, 0x00}, before[:2])
}
