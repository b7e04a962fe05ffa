package symtab

import (
	"testing"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/diag"
)

func newTestTable() *Table {
	return New(arena.NewNameStore(0))
}

func TestIndexOrCreateIsCaseInsensitive(t *testing.T) {
	tab := newTestTable()
	pos := diag.Position{Line: 1, Column: 1}
	i1, created1 := tab.IndexOrCreate("Foo", pos, "a.inf")
	if !created1 {
		t.Fatalf("expected creation")
	}
	i2, created2 := tab.IndexOrCreate("FOO", pos, "a.inf")
	if created2 {
		t.Fatalf("FOO should resolve to the same symbol as Foo")
	}
	if i1 != i2 {
		t.Fatalf("case-insensitive lookup returned different indices: %d vs %d", i1, i2)
	}
}

func TestIndexOfAbsentUntilCreated(t *testing.T) {
	tab := newTestTable()
	if _, ok := tab.IndexOf("bar"); ok {
		t.Fatalf("IndexOf on a never-created name must fail")
	}
}

// TestEndScopeInvariant exercises the §8 testable property:
// index_of(name(S)) == index(S) until end_scope(S), after which
// index_of(name(S)) == absent.
func TestEndScopeInvariant(t *testing.T) {
	tab := newTestTable()
	pos := diag.Position{Line: 1, Column: 1}
	idx, _ := tab.IndexOrCreate("baz", pos, "a.inf")
	if got, ok := tab.IndexOf("baz"); !ok || got != idx {
		t.Fatalf("IndexOf before EndScope = (%d,%v), want (%d,true)", got, ok, idx)
	}
	tab.EndScope(idx, false)
	if _, ok := tab.IndexOf("baz"); ok {
		t.Fatalf("IndexOf after EndScope must report absent")
	}
}

func TestEndScopeNeverUsedSetsDiscarded(t *testing.T) {
	tab := newTestTable()
	pos := diag.Position{Line: 1, Column: 1}
	idx, _ := tab.IndexOrCreate("qux", pos, "a.inf")
	tab.EndScope(idx, true)
	if !tab.Get(idx).HasFlag(FlagDiscarded) {
		t.Fatalf("expected FlagDiscarded after EndScope(never-used=true)")
	}
}

// TestAssignIdempotence exercises the §8 round-trip property: for a
// symbol S with known value, assign(index(S), value(S), type(S)) is a
// no-op.
func TestAssignIdempotence(t *testing.T) {
	tab := newTestTable()
	pos := diag.Position{Line: 1, Column: 1}
	idx, _ := tab.IndexOrCreate("quux", pos, "a.inf")
	tab.Assign(idx, 42, TypeConstant, pos, "a.inf", false)
	before := *tab.Get(idx)
	tab.Assign(idx, before.Value, before.Type, pos, "a.inf", false)
	after := *tab.Get(idx)
	if before.Value != after.Value || before.Type != after.Type || before.Flags != after.Flags {
		t.Fatalf("Assign was not idempotent: before=%+v after=%+v", before, after)
	}
}

func TestReplaceConstraints(t *testing.T) {
	tab := newTestTable()
	pos := diag.Position{Line: 1, Column: 1}
	a, _ := tab.IndexOrCreate("a", pos, "f")
	b, _ := tab.IndexOrCreate("b", pos, "f")
	c, _ := tab.IndexOrCreate("c", pos, "f")

	if err := tab.Replace(a, a); err == nil {
		t.Fatalf("Replace X X must error")
	}
	if err := tab.Replace(a, b); err != nil {
		t.Fatalf("Replace a b: unexpected error: %v", err)
	}
	if err := tab.Replace(a, c); err == nil {
		t.Fatalf("a is already a source; a second mapping from a must error")
	}
	if err := tab.Replace(b, c); err == nil {
		t.Fatalf("b is already a target of a->b; b becoming a source too must error")
	}
}

func TestReplaceResolveChain(t *testing.T) {
	tab := newTestTable()
	pos := diag.Position{Line: 1, Column: 1}
	a, _ := tab.IndexOrCreate("a", pos, "f")
	b, _ := tab.IndexOrCreate("b", pos, "f")
	if err := tab.Replace(a, b); err != nil {
		t.Fatalf("Replace a b: %v", err)
	}
	if got := tab.Resolve(a); got != b {
		t.Fatalf("Resolve(a) = %d, want %d", got, b)
	}
	if got := tab.Resolve(b); got != b {
		t.Fatalf("Resolve(b) = %d, want %d (no mapping)", got, b)
	}
}

func TestInstallPredefinedMarksSystemUsed(t *testing.T) {
	tab := newTestTable()
	tab.InstallPredefined(2, false)
	idx, ok := tab.IndexOf("nothing")
	if !ok {
		t.Fatalf("expected predefined symbol \"nothing\"")
	}
	sym := tab.Get(idx)
	if !sym.HasFlag(FlagSystem) || !sym.HasFlag(FlagUsed) {
		t.Fatalf("predefined symbol must carry system+used flags, got %v", sym.Flags)
	}
	if _, ok := tab.IndexOf("TARGET_ZCODE"); !ok {
		t.Fatalf("expected TARGET_ZCODE on the Z16 target")
	}
}

func TestInstallPredefinedGlulxFloatConstants(t *testing.T) {
	tab := newTestTable()
	tab.InstallPredefined(4, true)
	idx, ok := tab.IndexOf("FLOAT_NAN")
	if !ok {
		t.Fatalf("expected FLOAT_NAN on the Glulx target")
	}
	if uint32(tab.Get(idx).Value) != 0x7FC00000 {
		t.Fatalf("FLOAT_NAN = %#x, want 0x7fc00000", uint32(tab.Get(idx).Value))
	}
}

func TestApplyCommandLineDefinesToleratesSameValue(t *testing.T) {
	tab := newTestTable()
	bag := diag.NewBag()
	defines := []PredefinedValue{
		{Name: "DEBUG", Value: 1, HasExpr: true},
		{Name: "DEBUG", Value: 1, HasExpr: true},
	}
	tab.ApplyCommandLineDefines(defines, bag)
	if bag.HasErrors() {
		t.Fatalf("re-defining with the same value must not error: %s", bag.String())
	}
}

func TestApplyCommandLineDefinesConflict(t *testing.T) {
	tab := newTestTable()
	bag := diag.NewBag()
	defines := []PredefinedValue{
		{Name: "DEBUG", Value: 1, HasExpr: true},
		{Name: "DEBUG", Value: 2, HasExpr: true},
	}
	tab.ApplyCommandLineDefines(defines, bag)
	if !bag.HasErrors() {
		t.Fatalf("conflicting --define values must error")
	}
}
