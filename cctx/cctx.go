// Package cctx bundles the process-wide state a compilation shares
// (§5 "Shared resources" — lexer cursor, symbol table, dynamic-data
// buffer, backpatch log, dead-function map) behind one owning struct,
// constructed once per run and passed by reference, the way the
// teacher's vm.VM bundles CPU/memory/state behind one struct threaded
// through the package instead of a scatter of package-level globals.
package cctx

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ninefold/ifcc/arena"
	"github.com/ninefold/ifcc/backpatch"
	"github.com/ninefold/ifcc/config"
	"github.com/ninefold/ifcc/deadfunc"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/directive"
	"github.com/ninefold/ifcc/globals"
	"github.com/ninefold/ifcc/lexer"
	"github.com/ninefold/ifcc/output"
	"github.com/ninefold/ifcc/symtab"
	"github.com/ninefold/ifcc/target"
)

// buildDateSerial derives the default six-digit serial (§4.7) from
// the current date as YYMMDD, the convention a user-supplied Serial
// setting overrides.
func buildDateSerial() string {
	return time.Now().Format("060102")
}

// Context owns every piece of process-wide state for one compilation
// (§5: single-threaded, sequential, no suspension points). Nothing in
// this struct outlives one Run.
type Context struct {
	Settings *config.Settings
	Desc     *target.Descriptor

	Names *arena.NameStore
	Syms  *symtab.Table
	Bag   *diag.Bag

	CodeLog        *backpatch.Log
	DynamicDataLog *backpatch.Log
	HeaderLog      *backpatch.Log
	Registry       *backpatch.Registry

	Globals *globals.Area
	Dead    *deadfunc.Map

	Source *lexer.Source
	Lex    *lexer.Lexer

	mainSymbolIndex       int
	mainHiddenSymbolIndex int
}

// New constructs a Context for the target and sizing settings gives
// and installs every predefined symbol (§4.3 "Predefined symbols"),
// but does not yet open any source file.
func New(settings *config.Settings) (*Context, error) {
	desc, err := descriptorFor(settings)
	if err != nil {
		return nil, err
	}

	names := arena.NewNameStore(0)
	syms := symtab.New(names)
	bag := diag.NewBag()

	dynLog := backpatch.NewLog(backpatch.AreaDynamicData)
	codeLog := backpatch.NewLog(backpatch.AreaCode)
	headerLog := backpatch.NewLog(backpatch.AreaHeader)
	registry := backpatch.NewRegistry()

	maxDynamicSize := settings.Memory["MAX_DYNAMIC_SIZE"]
	area := globals.New(desc, syms, dynLog, maxDynamicSize)

	dead := deadfunc.New(desc.CodeScaleFactor, true, false)

	syms.InstallPredefined(desc.WordSize, desc.VM == target.Glulx32)
	syms.ApplyCommandLineDefines(settings.Defines, bag)

	src := lexer.NewSource()
	lex := lexer.New(src, names, syms, bag, desc.VM == target.Glulx32)

	return &Context{
		Settings:       settings,
		Desc:           desc,
		Names:          names,
		Syms:           syms,
		Bag:            bag,
		CodeLog:        codeLog,
		DynamicDataLog: dynLog,
		HeaderLog:      headerLog,
		Registry:       registry,
		Globals:        area,
		Dead:           dead,
		Source:         src,
		Lex:            lex,
	}, nil
}

func descriptorFor(settings *config.Settings) (*target.Descriptor, error) {
	switch settings.Target {
	case config.TargetZ16, "":
		return target.NewZ16(), nil
	case config.TargetGlulx32:
		return target.NewGlulx32(settings.Memory["MAX_GLOBAL_SLOTS"]), nil
	default:
		return nil, fmt.Errorf("unknown target %q", settings.Target)
	}
}

// CompileFile pushes path as the root lexical block and drives the
// directive dispatcher to end-of-input (§4.3/§4.4/§6). Relative
// `Include`/`Link` filenames resolve against path's directory.
func (c *Context) CompileFile(path string) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- user-supplied source path
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	c.Source.PushFile(path, raw, false)

	disp := directive.New(c.Lex, c.Syms, c.Globals, c.Desc, c.Bag, filepath.Dir(path))
	return disp.Run()
}

// Close tears down every owned resource (§5 "Scoped resources"):
// closing the dead-function map and every backpatch log against
// further mutation. The name arena is left to the garbage collector.
// Safe to call more than once, after compilation finishes or aborts.
func (c *Context) Close() {
	if !c.Dead.Closed() {
		c.Dead.Close()
	}
	if !c.DynamicDataLog.Closed() {
		c.DynamicDataLog.Close()
	}
	if !c.CodeLog.Closed() {
		c.CodeLog.Close()
	}
	if !c.HeaderLog.Closed() {
		c.HeaderLog.Close()
	}
}

// Assemble computes reachability over the dead-function map, then
// produces the final story-file bytes for the configured target
// (§4.6 "Computing reachability" precedes §4.7's output assembly).
func (c *Context) Assemble() ([]byte, error) {
	if _, _, err := c.Dead.ComputeReachability(c.mainSymbolIndex, c.mainHiddenSymbolIndex); err != nil {
		return nil, err
	}
	c.Dead.Warnings(c.Bag)
	c.Dead.Close()

	serial := c.Settings.Serial
	if serial != "" {
		if err := config.ValidateSerial(serial); err != nil {
			return nil, err
		}
	} else {
		serial = buildDateSerial()
	}

	img := &output.Image{
		Desc:           c.Desc,
		Code:           nil, // the out-of-scope bytecode assembler owns code emission
		CodeLog:        c.CodeLog,
		Registry:       c.Registry,
		Dead:           c.Dead,
		Sym:            c.Syms,
		DynamicData:    c.Globals.Bytes(),
		DynamicDataLog: c.DynamicDataLog,
		HeaderLog:      c.HeaderLog,
		Serial:         serial,
		Bag:            c.Bag,
	}

	if c.Desc.VM == target.Glulx32 {
		img.Version = c.Settings.GlulxVersion
		return img.WriteGlulx32()
	}
	return img.WriteZ16()
}

// SetMainSymbols records the two entry-point symbols reachability
// analysis starts from (§4.6 "Client queries"): the user's `Main`
// routine and the compiler-internal hidden entry point wrapping it.
func (c *Context) SetMainSymbols(mainIndex, mainHiddenIndex int) {
	c.mainSymbolIndex = mainIndex
	c.mainHiddenSymbolIndex = mainHiddenIndex
}
