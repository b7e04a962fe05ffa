package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ninefold/ifcc/cctx"
	"github.com/ninefold/ifcc/config"
	"github.com/ninefold/ifcc/debuginfo"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/globals"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

// Exit codes. Zero on success; non-zero on any error. ExitMemoryOverflow
// is the distinguished code for a memory setting exceeded during
// compilation.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitMemoryOverflow = 2
	ExitUsage          = 3
)

// stringList accumulates a repeatable flag's values, the standard
// flag.Value shape for a multi-valued command-line option.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	target := flag.String("target", "", "Target machine: z16 or glulx32 (default: z16, or config file)")
	small := flag.Bool("small", false, "Apply the SMALL memory size preset")
	large := flag.Bool("large", false, "Apply the LARGE memory size preset")
	huge := flag.Bool("huge", false, "Apply the HUGE memory size preset")
	serial := flag.String("serial", "", "Six-digit serial number override (default: build date)")
	glulxVersion := flag.Uint("glulx-version", 0, "Requested Glulx header version, hex or decimal (default: 0x00020000; ignored on the z16 target)")
	outputPath := flag.String("o", "", "Output story-file path (default: <source>.z5 / .ulx)")
	debugInfo := flag.Bool("debug-info", false, "Write a debugging information file alongside the story file")
	verbose := flag.Bool("verbose", false, "Enable verbose progress output")
	configPath := flag.String("config", "", "Configuration file path (default: platform config directory)")

	var memorySettings stringList
	var defines stringList
	flag.Var(&memorySettings, "S", "Memory setting override NAME=value (repeatable)")
	flag.Var(&defines, "define", "Predefined symbol NAME or NAME=value (repeatable)")

	flag.Parse()

	if *showVersion {
		printVersion()
		return ExitOK
	}
	if *showHelp {
		printHelp()
		return ExitOK
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: ifcc [options] <source-file>")
		return ExitUsage
	}
	sourcePath := args[0]

	settings, err := loadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ifcc: %v\n", err)
		return ExitError
	}

	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }

	if err := applyFlags(settings, warn, *target, *small, *large, *huge, *serial, uint32(*glulxVersion), *verbose, *debugInfo, memorySettings, defines); err != nil {
		fmt.Fprintf(os.Stderr, "ifcc: %v\n", err)
		return ExitUsage
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "ifcc: warning: %s\n", w)
	}

	if settings.Verbose {
		fmt.Fprintf(os.Stderr, "ifcc: compiling %s for target %s\n", sourcePath, settings.Target)
	}

	c, err := cctx.New(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ifcc: %v\n", err)
		return ExitError
	}
	defer c.Close()

	if err := c.CompileFile(sourcePath); err != nil {
		return reportFatal(err, c.Bag)
	}

	if mainIdx, ok := c.Syms.IndexOf("Main"); ok {
		hiddenIdx, _ := c.Syms.IndexOf("Main__")
		c.SetMainSymbols(mainIdx, hiddenIdx)
	} else {
		c.SetMainSymbols(-1, -1)
	}

	data, err := c.Assemble()
	if err != nil {
		return reportFatal(err, c.Bag)
	}

	if c.Bag.HasErrors() {
		fmt.Fprint(os.Stderr, c.Bag.String())
		fmt.Fprintf(os.Stderr, "ifcc: %d error(s); no output written\n", c.Bag.ErrorCount())
		return ExitError
	}
	if c.Bag.WarningCount() > 0 {
		fmt.Fprint(os.Stderr, c.Bag.String())
	}

	outPath := *outputPath
	if outPath == "" {
		outPath = defaultOutputPath(sourcePath, settings.Target)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "ifcc: writing %s: %v\n", outPath, err)
		return ExitError
	}

	if settings.Verbose {
		fmt.Fprintf(os.Stderr, "ifcc: wrote %s (%d bytes)\n", outPath, len(data))
	}

	if settings.DebugInfo {
		if err := writeDebugInfo(outPath, c); err != nil {
			fmt.Fprintf(os.Stderr, "ifcc: writing debug info: %v\n", err)
			return ExitError
		}
	}

	return ExitOK
}

// reportFatal prints whatever diagnostics the bag accumulated before a
// fatal error aborted compilation, then distinguishes a memory-setting
// overflow (§6's distinguished exit code) from any other fatal error.
func reportFatal(err error, bag *diag.Bag) int {
	if bag != nil && len(bag.All()) > 0 {
		fmt.Fprint(os.Stderr, bag.String())
	}
	fmt.Fprintf(os.Stderr, "ifcc: %v\n", err)

	var overflow *globals.OverflowError
	if errors.As(err, &overflow) {
		return ExitMemoryOverflow
	}
	return ExitError
}

func loadSettings(path string) (*config.Settings, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func applyFlags(s *config.Settings, warn func(string), target string, small, large, huge bool, serial string, glulxVersion uint32, verbose, debugInfo bool, memorySettings, defines []string) error {
	if target != "" {
		switch target {
		case "z16":
			s.Target = config.TargetZ16
		case "glulx32":
			s.Target = config.TargetGlulx32
		default:
			return fmt.Errorf("unknown target %q (want z16 or glulx32)", target)
		}
	}

	presetCount := 0
	for _, want := range []bool{small, large, huge} {
		if want {
			presetCount++
		}
	}
	if presetCount > 1 {
		return fmt.Errorf("only one of -small, -large, -huge may be given")
	}
	switch {
	case small:
		if err := s.ApplySizePreset("SMALL"); err != nil {
			return err
		}
	case large:
		if err := s.ApplySizePreset("LARGE"); err != nil {
			return err
		}
	case huge:
		if err := s.ApplySizePreset("HUGE"); err != nil {
			return err
		}
	}

	for _, setting := range memorySettings {
		name, value, ok := strings.Cut(setting, "=")
		if !ok {
			return fmt.Errorf("-S %s: expected NAME=value", setting)
		}
		if err := s.SetMemory(name, value, warn); err != nil {
			return err
		}
	}

	for _, def := range defines {
		name, rawValue, hasExpr := strings.Cut(def, "=")
		var value int32
		if hasExpr {
			n, err := strconv.ParseInt(rawValue, 0, 32)
			if err != nil {
				return fmt.Errorf("-define %s: %w", def, err)
			}
			value = int32(n)
		}
		s.AddDefine(name, value, hasExpr)
	}

	if serial != "" {
		if err := config.ValidateSerial(serial); err != nil {
			return err
		}
		s.Serial = serial
	}
	if glulxVersion != 0 {
		s.GlulxVersion = glulxVersion
	}
	if verbose {
		s.Verbose = true
	}
	if debugInfo {
		s.DebugInfo = true
	}
	return nil
}

// writeDebugInfo writes the compilation's symbol/source-map debugging
// information file next to the story file at storyPath, with a .dbg
// extension in place of the story file's own.
func writeDebugInfo(storyPath string, c *cctx.Context) error {
	ext := filepath.Ext(storyPath)
	dbgPath := strings.TrimSuffix(storyPath, ext) + ".dbg"
	data := debuginfo.Build(c.Syms, c.Source.FileNames())
	return os.WriteFile(dbgPath, data, 0644)
}

func defaultOutputPath(sourcePath string, target config.Target) string {
	ext := ".z5"
	if target == config.TargetGlulx32 {
		ext = ".ulx"
	}
	base := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))
	return base + ext
}

func printVersion() {
	fmt.Printf("ifcc %s\n", Version)
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if Date != "unknown" {
		fmt.Printf("Built: %s\n", Date)
	}
}

func printHelp() {
	fmt.Printf(`ifcc %s

Usage: ifcc [options] <source-file>

Options:
  -help                 Show this help message
  -version              Show version information
  -target NAME           Target machine: z16 or glulx32 (default: z16)
  -small, -large, -huge  Apply a memory size preset
  -S NAME=value          Override a memory setting (repeatable)
  -define NAME[=VALUE]   Predefine a symbol before compilation (repeatable)
  -serial NNNNNN         Six-digit serial number (default: build date)
  -o FILE                Output story-file path
  -debug-info            Write a debugging information file
  -config FILE           Configuration file path
  -verbose               Enable verbose progress output

Examples:
  ifcc game.inf
  ifcc -target glulx32 -o game.ulx game.inf
  ifcc -huge -S MAX_ARRAYS=4000 game.inf
  ifcc -define DEBUG_MODE game.inf

Exit codes:
  0  success
  1  compilation error
  2  a memory setting was exceeded
  3  usage error

For more information, see the README.md file.
`, Version)
}
