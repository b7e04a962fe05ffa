package lexer

import "golang.org/x/text/encoding/charmap"

// translationGrid maps a host input byte to the compiler's internal
// ISO-Latin-1-like character set (§4.2). Host source is assumed to be
// Windows-1252 (the common legacy default for this class of compiler);
// golang.org/x/text/encoding/charmap supplies the decode table instead
// of a hand-rolled 256-entry array. Runes outside the representable
// Latin-1 range collapse to '?' (0x3F); no later stage reports them,
// so they reach strings and Array ASCII bodies as '?'.
var translationGrid = buildTranslationGrid()

func buildTranslationGrid() [256]byte {
	var grid [256]byte
	dec := charmap.Windows1252.NewDecoder()
	for i := 0; i < 256; i++ {
		r, _, err := dec.Bytes([]byte{byte(i)})
		if err != nil || len(r) == 0 {
			grid[i] = '?'
			continue
		}
		// Decode produces UTF-8; re-derive the single rune value.
		cp := decodeUTF8Rune(r)
		if cp > 0xFF {
			grid[i] = '?'
		} else {
			grid[i] = byte(cp)
		}
	}
	return grid
}

func decodeUTF8Rune(b []byte) rune {
	if len(b) == 0 {
		return '?'
	}
	if b[0] < 0x80 {
		return rune(b[0])
	}
	if b[0]&0xE0 == 0xC0 && len(b) >= 2 {
		return rune(b[0]&0x1F)<<6 | rune(b[1]&0x3F)
	}
	return '?'
}

// TranslateByte converts a single host byte through the grid.
func TranslateByte(b byte) byte { return translationGrid[b] }
