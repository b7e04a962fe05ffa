package cctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ninefold/ifcc/config"
	"github.com/ninefold/ifcc/target"
)

func TestNewInstallsPredefinedSymbols(t *testing.T) {
	c, err := New(config.DefaultSettings())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Desc.VM != target.Z16 {
		t.Errorf("expected default target z16")
	}
	if _, ok := c.Syms.IndexOf("nothing"); !ok {
		t.Error("expected predefined symbol \"nothing\" to exist")
	}
}

func TestNewAppliesCommandLineDefines(t *testing.T) {
	settings := config.DefaultSettings()
	settings.AddDefine("DEBUG_MODE", 1, true)

	c, err := New(settings)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	idx, ok := c.Syms.IndexOf("DEBUG_MODE")
	if !ok {
		t.Fatal("expected DEBUG_MODE to be defined")
	}
	if c.Syms.Get(idx).Value != 1 {
		t.Errorf("expected DEBUG_MODE=1, got %d", c.Syms.Get(idx).Value)
	}
}

func TestCompileFileParsesGlobalsAndArrays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.inf")
	src := "Global score; Array table --> 3 1 2;"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	c, err := New(config.DefaultSettings())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.CompileFile(path); err != nil {
		t.Fatalf("CompileFile: %v", err)
	}
	if c.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %s", c.Bag.String())
	}

	if _, ok := c.Syms.IndexOf("score"); !ok {
		t.Error("expected global \"score\" to be defined")
	}
	if _, ok := c.Syms.IndexOf("table"); !ok {
		t.Error("expected array \"table\" to be defined")
	}
}

func TestAssembleProducesZ16StoryFileWithValidSerial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.inf")
	if err := os.WriteFile(path, []byte("Constant VERSION = 1;"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	settings := config.DefaultSettings()
	settings.Serial = "260731"
	c, err := New(settings)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.CompileFile(path); err != nil {
		t.Fatalf("CompileFile: %v", err)
	}
	c.SetMainSymbols(-1, -1)

	data, err := c.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(data) < c.Desc.HeaderSize {
		t.Fatalf("expected at least a full header, got %d bytes", len(data))
	}
	if string(data[18:24]) != "260731" {
		t.Errorf("expected serial 260731 in header, got %q", data[18:24])
	}
}

func TestAssembleRejectsInvalidSerial(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Serial = "abc"
	c, err := New(settings)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetMainSymbols(-1, -1)
	if _, err := c.Assemble(); err == nil {
		t.Error("expected an error for an invalid serial")
	}
}
