package registry

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// DecodeString resolves the backslash escapes of a JavaScript string or
// template literal body, so `\${name}` becomes `${name}` and "\`" becomes a
// backtick. Unknown escapes drop the backslash, a backslash before a line
// break continues the line, and malformed \x or \u escapes are kept verbatim.
func DecodeString(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			sb.WriteByte(c)
			continue
		}

		i++
		switch e := raw[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, n, ok := parseHex(raw[i+1:], 2); ok {
				sb.WriteRune(r)
				i += n
			} else {
				sb.WriteString(`\x`)
			}
		case 'u':
			if r, n, ok := parseUnicodeEscape(raw[i+1:]); ok {
				sb.WriteRune(r)
				i += n
			} else {
				sb.WriteString(`\u`)
			}
		default:
			sb.WriteByte(e)
		}
	}
	return sb.String()
}

func parseUnicodeEscape(s string) (rune, int, bool) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, false
		}
		r, _, ok := parseHex(s[1:end], end-1)
		return r, end + 1, ok
	}
	return parseHex(s, 4)
}

func parseHex(s string, digits int) (rune, int, bool) {
	if len(s) < digits {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[:digits], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, 0, false
	}
	return rune(v), digits, true
}

// EscapeCodeFences escapes triple backticks so text can be pasted into a
// template literal without closing it.
func EscapeCodeFences(text string) string {
	return strings.ReplaceAll(text, "```", "\\`\\`\\`")
}
