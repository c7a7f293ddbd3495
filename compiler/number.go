package compiler

import "fmt"

// ParseNumber converts an integer literal. It accepts an optional sign
// followed by a 0x/0X hexadecimal, 0b/0B binary, leading-zero octal or
// decimal digit string, and must consume the whole of s.
//
// The second result is the number of characters consumed. On failure it
// is the offset of the offending character.
func ParseNumber(s string) (int64, int, error) {
	pos := 0
	neg := false
	if pos < len(s) && (s[pos] == '+' || s[pos] == '-') {
		neg = s[pos] == '-'
		pos++
	}

	base := uint64(10)
	switch {
	case pos+1 < len(s) && s[pos] == '0' && (s[pos+1] == 'x' || s[pos+1] == 'X'):
		base = 16
		pos += 2
	case pos+1 < len(s) && s[pos] == '0' && (s[pos+1] == 'b' || s[pos+1] == 'B'):
		base = 2
		pos += 2
	case pos+1 < len(s) && s[pos] == '0':
		base = 8
		pos++
	}

	if pos >= len(s) {
		return 0, pos, fmt.Errorf("%q: missing digits: %w", s, ErrNumeric)
	}

	limit := uint64(1<<63 - 1)
	if neg {
		limit = 1 << 63
	}

	var acc uint64
	for ; pos < len(s); pos++ {
		d, ok := digitValue(s[pos])
		if !ok || d >= base {
			return 0, pos, fmt.Errorf("%q: invalid base-%d digit %q at offset %d: %w",
				s, base, s[pos], pos, ErrNumeric)
		}
		if acc > (limit-d)/base {
			return 0, pos, fmt.Errorf("%q: value out of range: %w", s, ErrNumeric)
		}
		acc = acc*base + d
	}

	if neg {
		return -int64(acc - 1) - 1, pos, nil
	}
	return int64(acc), pos, nil
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

// IsNumeric reports whether text looks like the start of a numeric literal.
func IsNumeric(text string) bool {
	if text == "" {
		return false
	}
	c := text[0]
	if (c == '+' || c == '-') && len(text) > 1 {
		c = text[1]
	}
	return c >= '0' && c <= '9'
}
