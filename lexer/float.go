package lexer

import "math"

// ParseFloatLiteral constructs the IEEE-754 bit pattern for a
// `$[sign]INT[.FRAC][eEXP]` literal per §4.2 "Float parsing". wide
// selects the 64-bit double-precision encoding (used by the `$<+`/`$>+`
// variants); low selects which 32 bits of the double are returned
// (true = low half, false = high half) and is ignored when !wide.
// ok is false only when the literal is missing exponent digits after
// 'e' (the one §8 boundary case that is an error rather than a
// deterministic bit pattern), in which case value is 0 per §8.
func ParseFloatLiteral(mantissaInt string, frac string, expSign int, expDigits string, negative bool, wide bool, low bool) (value uint64, ok bool) {
	if expDigits == "missing" {
		return 0, false
	}

	mantissa := 0.0
	for _, c := range mantissaInt {
		mantissa = mantissa*10 + float64(c-'0')
	}
	scale := 1.0
	for _, c := range frac {
		scale *= 10
		mantissa += float64(c-'0') / scale
	}

	exp := 0
	for _, c := range expDigits {
		exp = exp*10 + int(c-'0')
	}
	exp *= expSign

	f := mantissa * math.Pow(10, float64(exp))
	if negative {
		f = -f
	}

	if wide {
		bits := math.Float64bits(f)
		if low {
			return bits & 0xFFFFFFFF, true
		}
		return bits >> 32, true
	}

	bits := uint64(math.Float32bits(float32(f)))
	return bits, true
}

// EncodeSingle returns the 32-bit IEEE-754 single-precision bit
// pattern for f, promoting to infinity on overflow per §4.2 (handled
// by math.Float32bits's own overflow-to-Inf behavior, matched here
// explicitly since float64->float32 conversion in Go already saturates
// to ±Inf for magnitudes beyond float32's range).
func EncodeSingle(f float64) uint32 {
	return math.Float32bits(float32(f))
}

// EncodeDoubleHalf returns the requested 32-bit half of f's IEEE-754
// double-precision bit pattern: low selects the low half, matching the
// `$<` (low) / `$>` (high) selector naming in §4.2.
func EncodeDoubleHalf(f float64, low bool) uint32 {
	bits := math.Float64bits(f)
	if low {
		return uint32(bits & 0xFFFFFFFF)
	}
	return uint32(bits >> 32)
}
