// Package output is the final assembly stage (§4.7): it consults the
// backpatch table, the dead-function map, and the dynamic data area to
// write a self-checksummed story file in the layout the target
// descriptor names.
package output

import (
	"github.com/ninefold/ifcc/backpatch"
	"github.com/ninefold/ifcc/deadfunc"
	"github.com/ninefold/ifcc/symtab"
)

// RewriteCode replays codeLog against code, honoring dead's liveness
// map: live bytes are copied through (backpatched where a record
// falls), dead bytes are dropped (§4.7 "Code rewrite protocol").
// It is an error for a single backpatch record to straddle a
// live/dead boundary, since that would mean a partially-elided
// relocation.
func RewriteCode(codeLog *backpatch.Log, reg *backpatch.Registry, dead *deadfunc.Map, sym *symtab.Table, code []byte) ([]byte, error) {
	out := make([]byte, 0, len(code))
	var j int64

	copyRange := func(to int64) {
		for j < to {
			if dead.LiveAt(j) {
				out = append(out, code[j])
			}
			j++
		}
	}

	for i := 0; i < codeLog.Len(); i++ {
		e := codeLog.At(i)
		ofs := int64(e.Offset)
		copyRange(ofs)

		startLive := dead.LiveAt(ofs)
		endLive := dead.LiveAt(ofs + int64(e.Width) - 1)
		if startLive != endLive {
			return nil, &backpatch.BoundaryError{Entry: e, Boundary: uint32(ofs)}
		}

		placeholder := readWidth(code, int(ofs), e.Width)
		if startLive {
			v, err := reg.Apply(sym, e, placeholder)
			if err != nil {
				return nil, err
			}
			out = appendWidth(out, e.Width, v)
		}
		j = ofs + int64(e.Width)
	}

	copyRange(int64(len(code)))
	return out, nil
}

func readWidth(data []byte, offset int, w backpatch.Width) uint32 {
	switch w {
	case backpatch.Width1:
		return uint32(data[offset])
	case backpatch.Width2:
		return uint32(data[offset])<<8 | uint32(data[offset+1])
	default:
		return uint32(data[offset])<<24 | uint32(data[offset+1])<<16 | uint32(data[offset+2])<<8 | uint32(data[offset+3])
	}
}

func appendWidth(out []byte, w backpatch.Width, v uint32) []byte {
	switch w {
	case backpatch.Width1:
		return append(out, byte(v))
	case backpatch.Width2:
		return append(out, byte(v>>8), byte(v))
	default:
		return append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}
