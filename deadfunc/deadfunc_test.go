package deadfunc

import (
	"testing"

	"github.com/ninefold/ifcc/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample wires up a small call graph:
//
//	<top-level> -> symbol 1 (helper, called from main line)
//	helper (func 1, symbol 1) -> symbol 2 (utility, func 2)
//	orphan (func 3, symbol 3) is never referenced
//	embedded_routine (func 4, symbol 4) is retained via Embedded
func buildSample(t *testing.T) *Map {
	t.Helper()
	m := New(4, true, false)

	helper := m.BeginFunction("helper", 0, false, diag.Position{Line: 1}, false)
	m.EndFunction(helper, 16)
	m.RegisterSymbolFunction(1, helper)

	utility := m.BeginFunction("utility", 16, false, diag.Position{Line: 2}, false)
	m.EndFunction(utility, 32)
	m.RegisterSymbolFunction(2, utility)

	orphan := m.BeginFunction("orphan", 32, false, diag.Position{Line: 3}, false)
	m.EndFunction(orphan, 48)
	m.RegisterSymbolFunction(3, orphan)

	embedded := m.BeginFunction("embedded_routine", 48, true, diag.Position{Line: 4}, false)
	m.EndFunction(embedded, 64)
	m.RegisterSymbolFunction(4, embedded)

	require.NoError(t, m.RecordReference(sentinelOffset, 1))
	require.NoError(t, m.RecordReference(0, 2))

	return m
}

func TestReachabilityMarksTransitiveCallees(t *testing.T) {
	m := buildSample(t)
	_, _, err := m.ComputeReachability(-1, -1)
	require.NoError(t, err)

	assert.True(t, m.Get(1).Live, "helper is referenced from the top level")
	assert.True(t, m.Get(2).Live, "utility is reachable transitively through helper")
	assert.False(t, m.Get(3).Live, "orphan has no inbound reference")
	assert.True(t, m.Get(4).Live, "embedded routines are always retained")
}

func TestReachabilityAssignsContiguousOffsets(t *testing.T) {
	m := buildSample(t)
	totalBefore, totalAfter, err := m.ComputeReachability(-1, -1)
	require.NoError(t, err)

	assert.Equal(t, int64(64), totalBefore)
	assert.Equal(t, int64(48), totalAfter, "orphan's 16 bytes are not counted after stripping")

	assert.Equal(t, int64(0), m.Get(1).NewOffset)
	assert.Equal(t, int64(16), m.Get(2).NewOffset)
	assert.Equal(t, int64(-1), m.Get(3).NewOffset)
}

func TestTranslateFailsOnStrippedFunction(t *testing.T) {
	m := buildSample(t)
	_, _, err := m.ComputeReachability(-1, -1)
	require.NoError(t, err)

	v, err := m.Translate(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = m.Translate(32)
	require.Error(t, err)
}

func TestRecordReferenceAfterCloseIsInternalError(t *testing.T) {
	m := buildSample(t)
	m.Close()
	err := m.RecordReference(0, 99)
	require.Error(t, err)
	var internalErr *diag.InternalError
	assert.ErrorAs(t, err, &internalErr)
}

func TestWarningsSkipLiveFunctions(t *testing.T) {
	m := buildSample(t)
	_, _, err := m.ComputeReachability(-1, -1)
	require.NoError(t, err)

	bag := diag.NewBag()
	m.Warnings(bag)
	require.Len(t, bag.All(), 1)
	assert.Contains(t, bag.All()[0].Message, "orphan")
}

func TestCursorIteratesInEmissionOrder(t *testing.T) {
	m := buildSample(t)
	_, _, err := m.ComputeReachability(-1, -1)
	require.NoError(t, err)

	cur := m.Iterate()
	var ends []int64
	var lives []bool
	for {
		end, live, ok := cur.Next()
		if !ok {
			break
		}
		ends = append(ends, end)
		lives = append(lives, live)
	}
	assert.Equal(t, []int64{16, 32, 48, 64}, ends)
	assert.Equal(t, []bool{true, true, false, true}, lives)
}

func TestMainRootIsRetained(t *testing.T) {
	m := New(1, false, false)
	mainFunc := m.BeginFunction("Main", 0, false, diag.Position{}, false)
	m.EndFunction(mainFunc, 8)
	m.RegisterSymbolFunction(10, mainFunc)

	_, _, err := m.ComputeReachability(10, -1)
	require.NoError(t, err)
	assert.True(t, m.Get(mainFunc).Live)
	assert.NotZero(t, m.Get(mainFunc).Usage&UsageMain)
}
