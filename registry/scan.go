package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Declaration errors. Every locate failure wraps ErrMalformedDeclaration and
// one of the detail errors.
var (
	ErrMalformedDeclaration = errors.New("malformed registry declaration")
	ErrAnchorNotFound       = errors.New("anchor not found")
	ErrNoOpenDelimiter      = errors.New("no opening brace after anchor")
	ErrUnbalanced           = errors.New("braces never balance before end of input")
)

// ScanMode selects how braces are counted while locating the registry body.
type ScanMode string

const (
	// ScanNaive counts every brace character, including braces inside string
	// payloads. Correct as long as payload braces come in pairs.
	ScanNaive ScanMode = "naive"

	// ScanStringAware ignores braces inside string literals, template
	// literal text and comments.
	ScanStringAware ScanMode = "string-aware"
)

// Valid reports whether m names a known scan mode.
func (m ScanMode) Valid() bool {
	return m == ScanNaive || m == ScanStringAware
}

// Span is a half-open byte range [Start, End) into a source text.
type Span struct {
	Start int
	End   int
}

// Empty reports whether the span covers no text.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Text returns the spanned slice of src.
func (s Span) Text(src string) string {
	if s.Empty() {
		return ""
	}
	return src[s.Start:s.End]
}

// LocateBody finds the first occurrence of anchor in src and returns the span
// strictly between the first opening brace after it and its matching closing
// brace. On failure the span is empty and the error wraps
// ErrMalformedDeclaration.
func LocateBody(src, anchor string, mode ScanMode) (Span, error) {
	at := strings.Index(src, anchor)
	if anchor == "" || at < 0 {
		return Span{}, fmt.Errorf("%w: %w: %q", ErrMalformedDeclaration, ErrAnchorNotFound, anchor)
	}

	open, closing, depth := -1, -1, 0
	visit := func(i int, c byte) bool {
		switch c {
		case '{':
			if open < 0 {
				open = i
			}
			depth++
		case '}':
			if open < 0 {
				return true
			}
			depth--
			if depth == 0 {
				closing = i
				return false
			}
		}
		return true
	}

	from := at + len(anchor)
	if mode == ScanStringAware {
		walkCode(src, from, visit)
	} else {
		for i := from; i < len(src); i++ {
			if !visit(i, src[i]) {
				break
			}
		}
	}

	switch {
	case open < 0:
		return Span{}, fmt.Errorf("%w: %w: %q", ErrMalformedDeclaration, ErrNoOpenDelimiter, anchor)
	case closing < 0:
		return Span{}, fmt.Errorf("%w: %w (depth %d at end of input)", ErrMalformedDeclaration, ErrUnbalanced, depth)
	}
	return Span{Start: open + 1, End: closing}, nil
}

// walkCode calls visit for every byte of src[from:] that lies outside string
// literals, template literal text and comments. Bytes inside a template
// literal's ${...} expressions are skipped as well, since they belong to the
// literal's value. Scanning stops when visit returns false.
func walkCode(src string, from int, visit func(i int, c byte) bool) {
	const (
		stCode = iota
		stSingle
		stDouble
		stTemplate
		stLineComment
		stBlockComment
	)

	state := stCode
	// exprDepth holds one brace counter per open ${...} expression.
	var exprDepth []int

	for i := from; i < len(src); i++ {
		c := src[i]
		switch state {
		case stCode:
			next := stCode
			switch {
			case c == '\'':
				next = stSingle
			case c == '"':
				next = stDouble
			case c == '`':
				next = stTemplate
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = stLineComment
				i++
				continue
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = stBlockComment
				i++
				continue
			}

			if len(exprDepth) > 0 {
				top := len(exprDepth) - 1
				switch {
				case next != stCode:
					state = next
				case c == '{':
					exprDepth[top]++
				case c == '}' && exprDepth[top] == 0:
					exprDepth = exprDepth[:top]
					state = stTemplate
				case c == '}':
					exprDepth[top]--
				}
				continue
			}

			// Opening quotes are reported so callers can see where a
			// literal starts; their contents are not.
			if !visit(i, c) {
				return
			}
			state = next
		case stSingle, stDouble:
			quote := byte('\'')
			if state == stDouble {
				quote = '"'
			}
			switch c {
			case '\\':
				i++
			case quote, '\n':
				state = stCode
			}
		case stTemplate:
			switch {
			case c == '\\':
				i++
			case c == '`':
				state = stCode
			case c == '$' && i+1 < len(src) && src[i+1] == '{':
				exprDepth = append(exprDepth, 0)
				state = stCode
				i++
			}
		case stLineComment:
			if c == '\n' {
				state = stCode
			}
		case stBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = stCode
				i++
			}
		}
	}
}

// topLevelMask marks the bytes of body that are code at brace depth zero.
func topLevelMask(body string) []bool {
	mask := make([]bool, len(body))
	depth := 0
	walkCode(body, 0, func(i int, c byte) bool {
		switch c {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			if depth > 0 {
				depth--
			}
		default:
			mask[i] = depth == 0
		}
		return true
	})
	return mask
}
