// Package ndjson appends newline-delimited JSON records to lazily opened
// sinks. Records are built as appended bytes, one object per line, no
// pretty-printing.
package ndjson

import "strconv"

const hex = "0123456789abcdef"

// AppendString appends a quoted JSON string. Escapes are limited to the
// NDJSON contract: backslash, quote, \n, \r, \t and \u00XX for the
// remaining control bytes.
func AppendString(b []byte, s string) []byte {
	b = append(b, '"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch c {
		case '\\':
			b = append(b, '\\', '\\')
		case '"':
			b = append(b, '\\', '"')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			if c < 0x20 {
				b = append(b, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
			} else {
				b = append(b, c)
			}
		}
	}

	return append(b, '"')
}

func AppendStringArray(b []byte, vals []string) []byte {
	b = append(b, '[')

	for i, v := range vals {
		if i != 0 {
			b = append(b, ',')
		}

		b = AppendString(b, v)
	}

	return append(b, ']')
}

func AppendInt(b []byte, v int) []byte {
	return strconv.AppendInt(b, int64(v), 10)
}

func AppendBool(b []byte, v bool) []byte {
	if v {
		return append(b, "true"...)
	}

	return append(b, "false"...)
}

func AppendNull(b []byte) []byte {
	return append(b, "null"...)
}
