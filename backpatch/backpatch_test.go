package backpatch

import (
	"testing"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndResolveArea(t *testing.T) {
	names := arena.NewNameStore(0)
	syms := symtab.New(names)
	idx, _ := syms.IndexOrCreate("routine_x", diag.Position{}, "")
	syms.Assign(idx, 0x1234, symtab.TypeRoutine, diag.Position{}, "", false)

	l := NewLog(AreaDynamicData)
	l.Record(symtab.MarkerGenericValue, 2, Width2, idx)

	data := make([]byte, 4)
	reg := NewRegistry()
	require.NoError(t, ResolveArea(l, syms, reg, data))

	assert.Equal(t, byte(0x12), data[2])
	assert.Equal(t, byte(0x34), data[3])
}

func TestRegistryCustomTransform(t *testing.T) {
	names := arena.NewNameStore(0)
	syms := symtab.New(names)
	idx, _ := syms.IndexOrCreate("main_routine", diag.Position{}, "")
	syms.Assign(idx, 0x2000, symtab.TypeRoutine, diag.Position{}, "", false)

	l := NewLog(AreaCode)
	l.Record(symtab.MarkerMain, 0, Width4, idx)

	reg := NewRegistry()
	reg.Register(symtab.MarkerMain, func(sym *symtab.Table, e Entry, placeholder uint32) (uint32, error) {
		return uint32(sym.Get(e.SymbolIndex).Value) / 4, nil
	})

	data := make([]byte, 4)
	require.NoError(t, ResolveArea(l, syms, reg, data))
	assert.Equal(t, uint32(0x2000/4), readWidth(data, 0, Width4))
}

func TestWidthOverflowIsAnError(t *testing.T) {
	names := arena.NewNameStore(0)
	syms := symtab.New(names)
	idx, _ := syms.IndexOrCreate("too_big", diag.Position{}, "")
	syms.Assign(idx, 0x10000, symtab.TypeConstant, diag.Position{}, "", false)

	l := NewLog(AreaDynamicData)
	l.Record(symtab.MarkerGenericValue, 0, Width2, idx)

	data := make([]byte, 2)
	reg := NewRegistry()
	err := ResolveArea(l, syms, reg, data)
	require.Error(t, err)
	var widthErr *WidthError
	assert.ErrorAs(t, err, &widthErr)
}

func TestLogCloseIsObservable(t *testing.T) {
	l := NewLog(AreaHeader)
	assert.False(t, l.Closed())
	l.Close()
	assert.True(t, l.Closed())
}

func TestAreaStringNames(t *testing.T) {
	assert.Equal(t, "code", AreaCode.String())
	assert.Equal(t, "global-variable", AreaGlobalVariable.String())
}
