package diag

import (
	"fmt"
	"strings"
)

// Severity is one of the five levels spec.md's error-handling design
// names.
type Severity int

const (
	// Internal indicates a compiler bug: an invariant the compiler
	// itself was meant to guarantee has been violated.
	Internal Severity = iota
	// Fatal indicates an unrecoverable condition (I/O failure, a
	// memory-setting overflow) that aborts compilation immediately.
	Fatal
	// Error is recoverable: the diagnostic is recorded, compilation
	// continues so more errors can surface, but no output file is
	// written at the end.
	Error
	// Warning does not block output.
	Warning
	// Obsolete is an informational withdrawal notice for a setting
	// that no longer has any effect.
	Obsolete
)

func (s Severity) String() string {
	switch s {
	case Internal:
		return "internal error"
	case Fatal:
		return "fatal error"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Obsolete:
		return "obsolete"
	default:
		return "diagnostic"
	}
}

// Kind further categorizes a diagnostic beyond its severity, mirroring
// the named failure modes spec.md calls out (unknown symbol, illegal
// source byte, memory overflow, and so on). Kind is informational; it
// never changes how a diagnostic is propagated.
type Kind int

const (
	KindGeneric Kind = iota
	KindLexical
	KindSymbol
	KindDirective
	KindMemoryOverflow
	KindRelocation
	KindChecksum
)

// Diagnostic is one reported problem, carrying enough source context
// to print "file:line:column: severity: message".
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Pos      Position
	File     string
	Message  string
}

func (d Diagnostic) String() string {
	loc := d.File
	if loc == "" {
		loc = fmt.Sprintf("file#%d", d.Pos.FileIndex)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", loc, d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}

// Bag accumulates diagnostics across a compilation pass. It is not
// safe for concurrent use — the compiler is single-threaded per §5.
type Bag struct {
	items        []Diagnostic
	errorCount   int
	warningCount int

	// unknownIssued tracks which symbol indices have already produced
	// an "unknown symbol" error, so the message is only emitted once
	// per symbol as spec.md §7 requires.
	unknownIssued map[int]bool
}

// NewBag returns an empty diagnostic collector.
func NewBag() *Bag {
	return &Bag{unknownIssued: make(map[int]bool)}
}

// Add records a diagnostic. Fatal and Internal severities are never
// passed to Add — callers return them as Go errors instead (see
// Fatalf/Internalf) so they can unwind the call stack immediately.
func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
	switch d.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warningCount++
	}
}

// Errorf records a recoverable error at pos.
func (b *Bag) Errorf(pos Position, file string, kind Kind, format string, args ...any) {
	b.Add(Diagnostic{Severity: Error, Kind: kind, Pos: pos, File: file, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning at pos.
func (b *Bag) Warnf(pos Position, file string, kind Kind, format string, args ...any) {
	b.Add(Diagnostic{Severity: Warning, Kind: kind, Pos: pos, File: file, Message: fmt.Sprintf(format, args...)})
}

// Obsoletef records an obsolete-setting withdrawal notice.
func (b *Bag) Obsoletef(format string, args ...any) {
	b.Add(Diagnostic{Severity: Obsolete, Message: fmt.Sprintf(format, args...)})
}

// UnknownSymbolOnce reports "unknown symbol" for symbolIndex at most
// once, per spec.md §7 ("Unknown symbol errors are emitted at most
// once per symbol"). Returns true if this call actually emitted it.
func (b *Bag) UnknownSymbolOnce(symbolIndex int, pos Position, file, name string) bool {
	if b.unknownIssued[symbolIndex] {
		return false
	}
	b.unknownIssued[symbolIndex] = true
	b.Errorf(pos, file, KindSymbol, "unknown symbol %q", name)
	return true
}

// HasErrors reports whether any recoverable error has been recorded.
// Per spec.md §7, if true at the end of compilation no output file is
// written.
func (b *Bag) HasErrors() bool { return b.errorCount > 0 }

// ErrorCount and WarningCount expose the per-pass counters.
func (b *Bag) ErrorCount() int   { return b.errorCount }
func (b *Bag) WarningCount() int { return b.warningCount }

// All returns every recorded diagnostic in emission order.
func (b *Bag) All() []Diagnostic { return b.items }

// String renders every diagnostic, one per line.
func (b *Bag) String() string {
	var sb strings.Builder
	for _, d := range b.items {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FatalError is returned (as a Go error, never added to a Bag) when
// compilation must abort immediately: I/O failure, a memory-setting
// overflow, or any condition spec.md §7 calls "fatal-error".
type FatalError struct {
	Pos     Position
	File    string
	Message string
}

func (e *FatalError) Error() string {
	if e.File == "" {
		return "fatal error: " + e.Message
	}
	return fmt.Sprintf("%s:%d:%d: fatal error: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
}

// Fatalf builds a FatalError.
func Fatalf(pos Position, file, format string, args ...any) error {
	return &FatalError{Pos: pos, File: file, Message: fmt.Sprintf(format, args...)}
}

// InternalError indicates the compiler violated its own invariant —
// a bug, not a user-triggered condition. It is always fatal.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return "internal compiler error: " + e.Message }

// Internalf builds an InternalError.
func Internalf(format string, args ...any) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
