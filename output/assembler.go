package output

import (
	"fmt"

	"github.com/ninefold/ifcc/backpatch"
	"github.com/ninefold/ifcc/deadfunc"
	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/symtab"
	"github.com/ninefold/ifcc/target"
)

// FeatureTier names one of the incrementally higher Glulx feature
// sets §4.7 lists (unicode/heap/acceleration/float), each of which
// raises the minimum version number a story file must declare.
type FeatureTier int

const (
	FeatureBase FeatureTier = iota
	FeatureUnicode
	FeatureHeap
	FeatureAcceleration
	FeatureFloat
)

func (t FeatureTier) String() string {
	names := [...]string{"base", "unicode", "heap", "acceleration", "float"}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown-feature-tier"
}

// glulxFeatureMinVersion is the minimum header version each tier
// requires, in the incrementally-higher order §4.7 describes.
var glulxFeatureMinVersion = [...]uint32{
	FeatureBase:         0x00020000,
	FeatureUnicode:      0x00030000,
	FeatureHeap:         0x00030001,
	FeatureAcceleration: 0x00030100,
	FeatureFloat:        0x00030102,
}

// Image bundles everything the assembler needs to produce a complete
// story file: the emitted-but-not-yet-backpatched code stream, the
// per-area backpatch logs and their transform registry, the closed
// dead-function map, the symbol table, and the already-sized dynamic
// data area.
type Image struct {
	Desc *target.Descriptor

	Code     []byte
	CodeLog  *backpatch.Log
	Registry *backpatch.Registry
	Dead     *deadfunc.Map
	Sym      *symtab.Table

	DynamicData     []byte // global slots + arrays, already sized
	DynamicDataLog  *backpatch.Log
	StringTable     []byte
	HeaderLog       *backpatch.Log
	InitialPC       uint32
	HighMemoryMark  uint32
	DictionaryAddr  uint32
	ObjectTableAddr uint32
	StaticMemBase   uint32
	AbbrevTableAddr uint32

	// Serial is a six-ASCII-digit build identifier (§4.7 "Serial
	// number"); validated by ValidateSerial before assembly.
	Serial string

	// Glulx-only fields.
	RAMStart            uint32
	StackSize           uint32
	StartFuncOffset     uint32
	StringDecodingTable uint32
	Version             uint32      // requested header version
	Features            FeatureTier // highest feature tier actually used
	Bag                 *diag.Bag   // receives the low-version warning, if any; nil is safe
}

// SerialError reports an invalid build serial (§4.7).
type SerialError struct{ Got string }

func (e *SerialError) Error() string {
	return fmt.Sprintf("serial number %q must be exactly six ASCII digits", e.Got)
}

// ValidateSerial checks s is six ASCII digits, per §6 "validated as
// six ASCII digits at parse time".
func ValidateSerial(s string) error {
	if len(s) != 6 {
		return &SerialError{Got: s}
	}
	for i := 0; i < 6; i++ {
		if s[i] < '0' || s[i] > '9' {
			return &SerialError{Got: s}
		}
	}
	return nil
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	rem := n % multiple
	if rem == 0 {
		return n
	}
	return n + (multiple - rem)
}

// resolvedDynamicData applies img.DynamicDataLog against a private
// copy of img.DynamicData, leaving the Image's own copy untouched.
func (img *Image) resolvedDynamicData() ([]byte, error) {
	data := make([]byte, len(img.DynamicData))
	copy(data, img.DynamicData)
	if img.DynamicDataLog != nil {
		if err := backpatch.ResolveArea(img.DynamicDataLog, img.Sym, img.Registry, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// WriteZ16 assembles the complete 16-bit-target story file (§4.7
// "16-bit target layout"): header, dynamic data, rewritten code,
// padding to the packed-code boundary, the static-strings area,
// trailing padding to the next 512-byte boundary, then the checksum
// is stamped over bytes 28-29.
func (img *Image) WriteZ16() ([]byte, error) {
	if err := ValidateSerial(img.Serial); err != nil {
		return nil, err
	}

	code, err := RewriteCode(img.CodeLog, img.Registry, img.Dead, img.Sym, img.Code)
	if err != nil {
		return nil, err
	}
	dynData, err := img.resolvedDynamicData()
	if err != nil {
		return nil, err
	}

	header := make([]byte, img.Desc.HeaderSize)
	header[0] = byte(versionByte(img))
	putWord16(header, 4, img.HighMemoryMark)
	putWord16(header, 6, img.InitialPC)
	putWord16(header, 8, img.DictionaryAddr)
	putWord16(header, 10, img.ObjectTableAddr)
	putWord16(header, 12, uint32(img.Desc.HeaderSize)) // global-variable table starts right after the header
	putWord16(header, 14, img.StaticMemBase)
	copy(header[18:24], []byte(img.Serial))
	putWord16(header, 24, img.AbbrevTableAddr)

	body := append([]byte{}, header...)
	body = append(body, dynData...)
	body = append(body, code...)

	packedBoundary := roundUp(len(body), img.Desc.PageSize/64) // packed-code alignment, small granularity
	for len(body) < packedBoundary {
		body = append(body, 0)
	}
	body = append(body, img.StringTable...)

	finalLen := roundUp(len(body), img.Desc.PageSize)
	for len(body) < finalLen {
		body = append(body, 0)
	}

	putWord16(body, 26, uint32(len(body)/img.Desc.CodeScaleFactor))

	if img.HeaderLog != nil {
		if err := backpatch.ResolveArea(img.HeaderLog, img.Sym, img.Registry, body[:img.Desc.HeaderSize]); err != nil {
			return nil, err
		}
	}

	checksum := ComputeZ16Checksum(body)
	body[28] = byte(checksum >> 8)
	body[29] = byte(checksum)

	return body, nil
}

// glulxVersion resolves the header version to write: it looks up the
// minimum version tier requires and, if requested falls below it,
// warns naming both. Per §9's resolution of the open question,
// the user's requested version is written regardless — glulxVersion
// never raises requested, only warns about it.
func glulxVersion(requested uint32, tier FeatureTier, bag *diag.Bag, pos diag.Position, file string) uint32 {
	min := glulxFeatureMinVersion[FeatureBase]
	if int(tier) >= 0 && int(tier) < len(glulxFeatureMinVersion) {
		min = glulxFeatureMinVersion[tier]
	}
	if requested < min && bag != nil {
		bag.Warnf(pos, file, diag.KindGeneric, "requested Glulx version 0x%08X is below the %s feature tier's minimum of 0x%08X; writing the requested version anyway", requested, tier, min)
	}
	return requested
}

func versionByte(img *Image) uint32 {
	if img.Version != 0 {
		return img.Version
	}
	return 5
}

func putWord16(data []byte, offset int, v uint32) {
	data[offset] = byte(v >> 8)
	data[offset+1] = byte(v)
}

func putWord32(data []byte, offset int, v uint32) {
	data[offset] = byte(v >> 24)
	data[offset+1] = byte(v >> 16)
	data[offset+2] = byte(v >> 8)
	data[offset+3] = byte(v)
}

// WriteGlulx32 assembles the complete 32-bit-target story file (§4.7
// "32-bit target layout"). After assembly, the checksum field at
// offset 32 is overwritten with the 32-bit wrapping sum of the file,
// treating the checksum field itself as zero.
func (img *Image) WriteGlulx32() ([]byte, error) {
	code, err := RewriteCode(img.CodeLog, img.Registry, img.Dead, img.Sym, img.Code)
	if err != nil {
		return nil, err
	}
	dynData, err := img.resolvedDynamicData()
	if err != nil {
		return nil, err
	}

	header := make([]byte, img.Desc.HeaderSize)
	copy(header[0:4], []byte("Glul"))
	putWord32(header, 4, glulxVersion(img.Version, img.Features, img.Bag, diag.Position{}, ""))
	putWord32(header, 8, img.RAMStart)
	// EXTSTART (file size pre-extension) and ENDMEM are filled in below
	// once the body length is known.
	putWord32(header, 20, img.StackSize)
	putWord32(header, 24, img.StartFuncOffset)
	putWord32(header, 28, img.StringDecodingTable)

	body := append([]byte{}, header...)
	body = append(body, dynData...)
	body = append(body, code...)
	body = append(body, img.StringTable...)

	pageAligned := roundUp(len(body), img.Desc.PageSize)
	for len(body) < pageAligned {
		body = append(body, 0)
	}

	putWord32(body, 12, uint32(len(body))) // EXTSTART: file size pre-extension
	putWord32(body, 16, uint32(len(body))) // ENDMEM: no RAM extension requested

	if img.HeaderLog != nil {
		if err := backpatch.ResolveArea(img.HeaderLog, img.Sym, img.Registry, body[:img.Desc.HeaderSize]); err != nil {
			return nil, err
		}
	}

	checksum := ComputeGlulx32Checksum(body)
	putWord32(body, 32, checksum)

	return body, nil
}
