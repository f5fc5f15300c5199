// Package prepare turns logical documents into store-ready items: it
// sanitizes text, flattens metadata, chunks long content, and computes the
// content hashes used for change detection.
package prepare

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Sanitize removes every lone UTF-16 surrogate code unit from s. Upstream
// connectors occasionally hand us WTF-8 text (JSON produced from truncated
// UTF-16); a lone surrogate poisons downstream JSON encoding and the
// embedding API. Adjacent high+low surrogate pairs are combined into the
// code point they encode. The result is valid UTF-8 and Sanitize is
// idempotent.
func Sanitize(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != utf8.RuneError || size > 1 {
			out = utf8.AppendRune(out, r)
			i += size
			continue
		}

		// Invalid byte. Check for a WTF-8 encoded surrogate.
		hi, hiLen := decodeSurrogate(s[i:])
		if hiLen == 0 {
			i++ // stray byte, drop it
			continue
		}
		if utf16.IsSurrogate(hi) && hi >= 0xD800 && hi <= 0xDBFF {
			lo, loLen := decodeSurrogate(s[i+hiLen:])
			if loLen > 0 && lo >= 0xDC00 && lo <= 0xDFFF {
				out = utf8.AppendRune(out, utf16.DecodeRune(hi, lo))
				i += hiLen + loLen
				continue
			}
		}
		// Lone surrogate, high or low: drop.
		i += hiLen
	}
	return string(out)
}

// decodeSurrogate decodes a WTF-8 encoded surrogate code point (a three byte
// sequence ED A0..BF 80..BF) at the start of s. Returns (0, 0) when s does
// not start with one.
func decodeSurrogate(s string) (rune, int) {
	if len(s) < 3 || s[0] != 0xED {
		return 0, 0
	}
	b1, b2 := s[1], s[2]
	if b1 < 0xA0 || b1 > 0xBF || b2 < 0x80 || b2 > 0xBF {
		return 0, 0
	}
	r := rune(0xD000) | rune(b1&0x3F)<<6 | rune(b2&0x3F)
	if r < 0xD800 || r > 0xDFFF {
		return 0, 0
	}
	return r, 3
}
