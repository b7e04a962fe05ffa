package backpatch

import "github.com/ninefold/ifcc/symtab"

// Registry maps each marker class to the value-transform function that
// computes its final patched value from the referenced symbol (§4.5
// "Resolution protocol"). A target assembles its own Registry since
// several transforms are target-width-dependent (object-count scaling,
// packed-address division).
type Registry struct {
	transforms map[symtab.Marker]Transform
}

// NewRegistry returns an empty registry; register every marker class
// the target actually emits before resolving.
func NewRegistry() *Registry {
	return &Registry{transforms: make(map[symtab.Marker]Transform)}
}

// Register installs fn as the transform for marker.
func (r *Registry) Register(marker symtab.Marker, fn Transform) {
	r.transforms[marker] = fn
}

// Apply resolves one entry's final value, given the original
// placeholder bytes read from the code/data stream.
func (r *Registry) Apply(sym *symtab.Table, e Entry, placeholder uint32) (uint32, error) {
	fn, ok := r.transforms[e.Marker]
	if !ok {
		// No transform registered: the generic-value marker passes the
		// referenced symbol's raw value through unchanged.
		fn = genericValue
	}
	v, err := fn(sym, e, placeholder)
	if err != nil {
		return 0, err
	}
	if err := checkFit(e, v); err != nil {
		return 0, err
	}
	return v, nil
}

func genericValue(sym *symtab.Table, e Entry, placeholder uint32) (uint32, error) {
	if e.SymbolIndex < 0 {
		return placeholder, nil
	}
	s := sym.Get(e.SymbolIndex)
	return uint32(s.Value), nil
}

// ResolveArea replays every entry in l against data in place, calling
// reg to compute each final value. data holds the raw emitted bytes
// for l's area, big-endian per entry width. It is used for the
// areas that need no code/dead-function interleaving (dynamic data,
// global-variable region, header); the code area's own rewrite
// protocol lives in the output package since it must interleave with
// the dead-function map.
func ResolveArea(l *Log, sym *symtab.Table, reg *Registry, data []byte) error {
	for i := 0; i < l.Len(); i++ {
		e := l.At(i)
		placeholder := readWidth(data, int(e.Offset), e.Width)
		v, err := reg.Apply(sym, e, placeholder)
		if err != nil {
			return err
		}
		writeWidth(data, int(e.Offset), e.Width, v)
	}
	return nil
}

func readWidth(data []byte, offset int, w Width) uint32 {
	switch w {
	case Width1:
		return uint32(data[offset])
	case Width2:
		return uint32(data[offset])<<8 | uint32(data[offset+1])
	default:
		return uint32(data[offset])<<24 | uint32(data[offset+1])<<16 | uint32(data[offset+2])<<8 | uint32(data[offset+3])
	}
}

func writeWidth(data []byte, offset int, w Width, v uint32) {
	switch w {
	case Width1:
		data[offset] = byte(v)
	case Width2:
		data[offset] = byte(v >> 8)
		data[offset+1] = byte(v)
	default:
		data[offset] = byte(v >> 24)
		data[offset+1] = byte(v >> 16)
		data[offset+2] = byte(v >> 8)
		data[offset+3] = byte(v)
	}
}
