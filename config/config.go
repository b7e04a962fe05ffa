// Package config models compiler-wide settings: memory-setting
// overrides, size presets, target selection, predefined symbols, and
// the serial-number override (§6 "Command-line / in-file directives").
// A Settings value can be decoded from an optional TOML file and then
// overridden by command-line flags, mirroring the teacher's layered
// config.Config/flag.Parse split.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/ninefold/ifcc/symtab"
)

// memoryClamp is the §6 "numeric values ≤ 9 digits; overflow clamps to
// ±10^9-1 with a warning" ceiling.
const memoryClamp = 999999999

// Target names the VM a compilation is built for.
type Target string

const (
	TargetZ16     Target = "z16"
	TargetGlulx32 Target = "glulx32"
)

// Settings is the compiler's full configuration surface.
type Settings struct {
	// Target selects the virtual machine (§9 "Dual-target duplication").
	Target Target `toml:"target"`

	// Memory holds every `NAME=value` memory-setting override (§6),
	// keyed by the setting's directive name exactly as written.
	Memory map[string]int `toml:"memory"`

	// SizePreset is one of "", "SMALL", "LARGE", "HUGE" (§6); it seeds
	// Memory with a preset's defaults before individual overrides are
	// applied, the way the teacher's Execution block seeds per-run
	// defaults before flag overrides.
	SizePreset string `toml:"size_preset"`

	// Defines is the replayed `--define NAME[=VALUE]` queue (§4.3
	// "Predefined-value injection"), applied in order at symbol-table
	// initialisation.
	Defines []symtab.PredefinedValue `toml:"-"`

	// Serial is the six-digit serial number override (§6 "Serial
	// number"); empty selects the build-date default.
	Serial string `toml:"serial"`

	// GlulxVersion is the requested 32-bit-target header version
	// (§4.7 "32-bit target layout"). Ignored on the Z16 target.
	GlulxVersion uint32 `toml:"glulx_version"`

	// Verbose gates progress tracing to stderr (§10 "Logging").
	Verbose bool `toml:"verbose"`

	// DebugInfo requests the optional debugging-information file (§6,
	// §12 supplement 4).
	DebugInfo bool `toml:"debug_info"`

	// TranscriptFile, if non-empty, requests the optional transcript
	// file (§6 "Output surface").
	TranscriptFile string `toml:"transcript_file"`

	// explicitSet tracks which Memory keys were set by an explicit
	// `NAME=value` directive rather than by a size preset, so a later
	// ApplySizePreset call (presets and settings may arrive in either
	// order on the command line) never clobbers one.
	explicitSet map[string]bool `toml:"-"`
}

// sizePresets gives the memory-setting defaults §6's three named
// presets select, scaled the way the original tool's SMALL/LARGE/HUGE
// switches do: each preset widens every size-shaped setting together
// rather than requiring the user to tune them individually.
var sizePresets = map[string]map[string]int{
	"SMALL": {
		"MAX_SYMBOLS":      3000,
		"MAX_QTEXT_SIZE":   4000,
		"MAX_ARRAYS":       300,
		"MAX_DYNAMIC_SIZE": 16000,
		"MAX_STATIC_DATA":  10000,
	},
	"LARGE": {
		"MAX_SYMBOLS":      12000,
		"MAX_QTEXT_SIZE":   16000,
		"MAX_ARRAYS":       1200,
		"MAX_DYNAMIC_SIZE": 64000,
		"MAX_STATIC_DATA":  40000,
	},
	"HUGE": {
		"MAX_SYMBOLS":      30000,
		"MAX_QTEXT_SIZE":   40000,
		"MAX_ARRAYS":       3000,
		"MAX_DYNAMIC_SIZE": 160000,
		"MAX_STATIC_DATA":  100000,
	},
}

// obsoleteSettings names memory settings later releases withdrew. §6:
// "Obsolete settings print a withdrawal notice and are ignored."
var obsoleteSettings = map[string]string{
	"MAX_LOW_STRINGS": "MAX_LOW_STRINGS was withdrawn; low strings are no longer size-limited separately",
	"MAX_ABBREVS":     "MAX_ABBREVS was withdrawn; abbreviation count is no longer fixed at compile time",
	"SMALL_RAM":       "SMALL_RAM was withdrawn; use the SMALL size preset instead",
}

// DefaultSettings returns a Settings with every memory setting at its
// un-presetted default and the Z16 target selected.
func DefaultSettings() *Settings {
	return &Settings{
		Target:       TargetZ16,
		GlulxVersion: 0x00020000,
		Memory: map[string]int{
			"MAX_SYMBOLS":      6000,
			"MAX_QTEXT_SIZE":   8000,
			"MAX_ARRAYS":       600,
			"MAX_DYNAMIC_SIZE": 32000,
			"MAX_STATIC_DATA":  20000,
		},
	}
}

// ApplySizePreset seeds s.Memory with a named preset's defaults,
// replacing the built-in defaults but leaving any setting made through
// SetMemory untouched (explicit `NAME=value` overrides win over the
// preset, matching the order §6 describes: preset first, then
// individual settings).
func (s *Settings) ApplySizePreset(name string) error {
	preset, ok := sizePresets[name]
	if !ok {
		return fmt.Errorf("unknown size preset %q (want SMALL, LARGE, or HUGE)", name)
	}
	if s.Memory == nil {
		s.Memory = map[string]int{}
	}
	for k, v := range preset {
		if s.explicitSet[k] {
			continue
		}
		s.Memory[k] = v
	}
	s.SizePreset = name
	return nil
}

// SetMemory parses and applies one `NAME=value` memory-setting
// directive (§6). Obsolete names print a withdrawal notice (via warn)
// and are otherwise ignored; numeric overflow clamps to ±10^9-1 and
// warns instead of erroring.
func (s *Settings) SetMemory(name, rawValue string, warn func(string)) error {
	if notice, obsolete := obsoleteSettings[name]; obsolete {
		if warn != nil {
			warn(notice)
		}
		return nil
	}

	value, err := strconv.Atoi(rawValue)
	if err != nil {
		return fmt.Errorf("memory setting %s: %q is not a number", name, rawValue)
	}
	if value > memoryClamp {
		if warn != nil {
			warn(fmt.Sprintf("memory setting %s=%d exceeds %d; clamped", name, value, memoryClamp))
		}
		value = memoryClamp
	} else if value < -memoryClamp {
		if warn != nil {
			warn(fmt.Sprintf("memory setting %s=%d exceeds -%d; clamped", name, value, memoryClamp))
		}
		value = -memoryClamp
	}

	if s.Memory == nil {
		s.Memory = map[string]int{}
	}
	if s.explicitSet == nil {
		s.explicitSet = map[string]bool{}
	}
	s.Memory[name] = value
	s.explicitSet[name] = true
	return nil
}

// AddDefine queues one `--define NAME[=VALUE]` entry (§4.3).
func (s *Settings) AddDefine(name string, value int32, hasExpr bool) {
	s.Defines = append(s.Defines, symtab.PredefinedValue{Name: name, Value: value, HasExpr: hasExpr})
}

// ValidateSerial checks the §6 "Serial number" constraint: a
// user-supplied serial is exactly six ASCII digits.
func ValidateSerial(serial string) error {
	if len(serial) != 6 {
		return fmt.Errorf("serial number %q must be exactly six digits", serial)
	}
	for _, r := range serial {
		if r < '0' || r > '9' {
			return fmt.Errorf("serial number %q must contain only digits", serial)
		}
	}
	return nil
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "ifcc")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "ifcc")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads settings from the default config file.
func Load() (*Settings, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads settings from the specified file. A missing file is
// not an error; it returns the defaults.
func LoadFrom(path string) (*Settings, error) {
	cfg := DefaultSettings()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveTo saves settings to the specified file, creating parent
// directories as needed.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
