package symtab

import (
	"fmt"

	"github.com/ninefold/ifcc/diag"
)

// bootPos is the synthetic location stamped on every predefined
// symbol; they have no real source file.
var bootPos = diag.Position{FileIndex: -1, Line: 0, Column: 0}

const bootFile = "<startup>"

// commonSystemGlobals lists the target-independent system globals
// named in §4.3 ("self", "sender", ...). These are the only system
// globals predefined; sw__var and other target-specific globals are
// not.
var commonSystemGlobals = []string{"self", "sender"}

var individualPropertyIDs = []string{
	"create", "recreate", "destroy", "remaining", "copy", "call", "print", "print_to_array",
}

// InstallPredefined inserts every symbol §4.3 requires at startup,
// with the system+used flags. wordSize and glulx let the caller supply
// the target-specific values without this package importing the
// target package (keeping symtab target-agnostic
// per §9's "keep the parser target-agnostic wherever possible").
func (t *Table) InstallPredefined(wordSize int, glulx bool) {
	define := func(name string, value int32, typ Type, extra Flag) {
		idx, _ := t.IndexOrCreate(name, bootPos, bootFile)
		t.AssignWithMarker(idx, MarkerNone, value, typ, bootPos, bootFile, false)
		s := t.Get(idx)
		s.setFlag(FlagSystem | FlagUsed | extra)
	}

	if glulx {
		define("TARGET_GLULX", 1, TypeConstant, 0)
	} else {
		define("TARGET_ZCODE", 1, TypeConstant, 0)
	}

	define("true", 1, TypeConstant, 0)
	define("false", 0, TypeConstant, 0)
	define("nothing", 0, TypeObject, 0)
	define("name", individualPropertyBase, TypeIndividualProperty, 0)

	// grammar-version is redefinable by the directive layer.
	define("Grammar__Version", 2, TypeConstant, FlagRedefinable)

	for _, g := range commonSystemGlobals {
		define(g, 0, TypeGlobalVariable, 0)
	}

	for i, p := range individualPropertyIDs {
		define(p, int32(individualPropertyBase+i), TypeIndividualProperty, 0)
	}

	define("WORDSIZE", int32(wordSize), TypeConstant, 0)
	define("DICT_WORD_SIZE", dictWordSize(glulx), TypeConstant, 0)
	define("DICT_CHAR_SIZE", dictCharSize(glulx), TypeConstant, 0)
	define("MAX_NUM_ATTR_BYTES", int32(attrByteCount(glulx)), TypeConstant, 0)
	define("INDIV_PROP_START", individualPropertyBase, TypeConstant, 0)

	if glulx {
		// IEEE-754 single-precision constants (§4.3); no double-precision
		// constants are predefined.
		define("FLOAT_INFINITY", int32(uint32(0x7F800000)), TypeConstant, 0)
		define("FLOAT_NINFINITY", -0x00800000, TypeConstant, 0) // bit pattern 0xFF800000
		define("FLOAT_NAN", int32(uint32(0x7FC00000)), TypeConstant, 0)
	}
}

const individualPropertyBase = 64

func dictWordSize(glulx bool) int32 {
	if glulx {
		return 9
	}
	return 6
}

func dictCharSize(glulx bool) int32 {
	if glulx {
		return 4
	}
	return 1
}

func attrByteCount(glulx bool) int {
	if glulx {
		return 7
	}
	return 6
}

// PredefinedValue is one queued `--define NAME[=VALUE]` entry (§4.3
// "Predefined-value injection").
type PredefinedValue struct {
	Name    string
	Value   int32
	HasExpr bool // false selects the default value 1 (bare --define NAME)
}

// ApplyCommandLineDefines materializes each queued --define entry as
// create(name, value, constant). A redefinition with the same value is
// silently tolerated; a differing value is an error, matching §4.3.
func (t *Table) ApplyCommandLineDefines(defines []PredefinedValue, bag *diag.Bag) {
	for _, d := range defines {
		value := d.Value
		if !d.HasExpr {
			value = 1
		}
		idx, created := t.IndexOrCreate(d.Name, bootPos, bootFile)
		sym := t.Get(idx)
		if !created && !sym.HasFlag(FlagUnknown) {
			if sym.Value != value {
				bag.Errorf(bootPos, bootFile, diag.KindSymbol,
					"--define %s=%d conflicts with previously defined value %d", d.Name, value, sym.Value)
			}
			continue
		}
		t.Assign(idx, value, TypeConstant, bootPos, bootFile, false)
		t.Get(idx).setFlag(FlagSystem)
	}
}

// String renders a PredefinedValue for diagnostics/logging.
func (d PredefinedValue) String() string {
	if !d.HasExpr {
		return d.Name
	}
	return fmt.Sprintf("%s=%d", d.Name, d.Value)
}
