package directive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/backpatch"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/globals"
	"github.com/ninefold/ifcc/lexer"
	"github.com/ninefold/ifcc/symtab"
	"github.com/ninefold/ifcc/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, source string) (*Dispatcher, *diag.Bag, *symtab.Table, *globals.Area) {
	t.Helper()
	names := arena.NewNameStore(0)
	syms := symtab.New(names)
	desc := target.NewZ16()
	bag := diag.NewBag()
	log := backpatch.NewLog(backpatch.AreaDynamicData)
	area := globals.New(desc, syms, log, 0)

	src := lexer.NewSource()
	src.PushString("<test>", source)
	lx := lexer.New(src, names, syms, bag, false)

	d := New(lx, syms, area, desc, bag, t.TempDir())
	return d, bag, syms, area
}

func TestGlobalDefinitionThenRedefinitionIsError(t *testing.T) {
	d, bag, syms, _ := newTestDispatcher(t, "Global g; Global g;")
	require.NoError(t, d.Run())
	assert.Equal(t, 1, bag.ErrorCount(), "second Global g must be exactly one error")

	idx, ok := syms.IndexOf("g")
	require.True(t, ok)
	assert.Equal(t, symtab.TypeGlobalVariable, syms.Get(idx).Type)
}

func TestArrayWordShapeWritesBigEndianWords(t *testing.T) {
	d, bag, syms, area := newTestDispatcher(t, "Array a --> 3 1 2;")
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	idx, ok := syms.IndexOf("a")
	require.True(t, ok)
	assert.EqualValues(t, 480, syms.Get(idx).Value, "240 slots * 2 bytes = offset 480")

	// "3 1 2" is a three-entry data list in source order (§4.4 "Data
	// list"); the values 3, 1, 2 are written as big-endian words.
	data := area.Bytes()
	got := data[480:486]
	assert.Equal(t, []byte{0x00, 0x03, 0x00, 0x01, 0x00, 0x02}, got)
}

func TestArrayStringShapeWritesLengthPrefix(t *testing.T) {
	d, bag, _, area := newTestDispatcher(t, `Array s string "ab";`)
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	data := area.Bytes()
	base := 480 // offset-240 global slots of 2 bytes
	assert.Equal(t, byte(0x02), data[base])
}

func TestConditionalCompilationIfTrueScenario(t *testing.T) {
	d, bag, syms, _ := newTestDispatcher(t, "Constant VN = 5; #IfTrue VN >= 3; Constant X = 1; #Endif;")
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	idx, ok := syms.IndexOf("X")
	require.True(t, ok)
	assert.EqualValues(t, 1, syms.Get(idx).Value)
}

func TestConditionalCompilationFalseBranchSkipsDefinition(t *testing.T) {
	d, bag, syms, _ := newTestDispatcher(t, "Constant VN = 5; #IfTrue VN >= 99; Constant X = 1; #Endif;")
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	_, ok := syms.IndexOf("X")
	assert.False(t, ok, "X must not exist; no error about X either")
}

func TestConditionalCompilationElseBranch(t *testing.T) {
	d, bag, syms, _ := newTestDispatcher(t, "#IfTrue 0; Constant A = 1; #Ifnot; Constant B = 2; #Endif;")
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	_, aExists := syms.IndexOf("A")
	assert.False(t, aExists)
	bIdx, bExists := syms.IndexOf("B")
	require.True(t, bExists)
	assert.EqualValues(t, 2, syms.Get(bIdx).Value)
}

func TestReplaceSelfMappingIsError(t *testing.T) {
	d, bag, _, _ := newTestDispatcher(t, "Constant q = 1; Replace q q;")
	require.NoError(t, d.Run())
	assert.Equal(t, 1, bag.ErrorCount())
}

func TestIncludeDirectivePushesFileAndContinuesParsing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inc.h"), []byte("Constant FROM_INCLUDE = 7;"), 0o644))

	d, bag, syms, _ := newTestDispatcher(t, `Include "inc.h";`)
	d.BaseDir = dir
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	idx, ok := syms.IndexOf("FROM_INCLUDE")
	require.True(t, ok)
	assert.EqualValues(t, 7, syms.Get(idx).Value)
}

func TestSystemFileMarksCreatedSymbols(t *testing.T) {
	d, bag, syms, _ := newTestDispatcher(t, "System_file; Constant Z = 1;")
	require.NoError(t, d.Run())
	require.False(t, bag.HasErrors())

	idx, ok := syms.IndexOf("Z")
	require.True(t, ok)
	assert.True(t, syms.Get(idx).HasFlag(symtab.FlagInSystemFile))
}
