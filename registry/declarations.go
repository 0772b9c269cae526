package registry

import (
	"regexp"
)

var (
	// entryRe matches a line-start object entry whose value opens a string
	// literal. The key may be quoted and the line may start with a comma.
	entryRe = regexp.MustCompile("(?m)^[ \\t]*,?[ \\t]*(['\"]?)([A-Za-z0-9_$]+)['\"]?[ \\t]*:\\s*([`'\"])")

	identifierRe = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// ValidIdentifier reports whether s has the shape of a template identifier:
// one or more of A-Z, 0-9 and underscore.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Declaration is one template entry found in a registry body.
type Declaration struct {
	ID Identifier

	// Offset is the byte offset of the identifier within the body.
	Offset int

	// Body is the decoded string value. Empty when the literal is unterminated.
	Body string

	// Terminated is false when the value's closing quote was never found.
	Terminated bool
}

// ExtractDeclarations returns the template entries declared at the top level
// of body, in source order. Entries whose key is not a valid identifier are
// ignored, as are matches that sit inside nested objects, string payloads or
// comments. Duplicates are kept; Registry construction reports them.
func ExtractDeclarations(body string) []Declaration {
	mask := topLevelMask(body)

	var decls []Declaration
	for _, m := range entryRe.FindAllStringSubmatchIndex(body, -1) {
		// A quoted key starts at its opening quote.
		entryStart := m[2]
		keyStart, keyEnd := m[4], m[5]
		quoteAt := m[6]

		if !mask[entryStart] {
			continue
		}
		key := body[keyStart:keyEnd]
		if !ValidIdentifier(key) {
			continue
		}

		raw, ok := readLiteral(body, quoteAt)
		decl := Declaration{
			ID:         Identifier(key),
			Offset:     keyStart,
			Terminated: ok,
		}
		if ok {
			decl.Body = DecodeString(raw)
		}
		decls = append(decls, decl)
	}
	return decls
}

// readLiteral returns the raw text between the quote at src[at] and its
// closing quote. Escaped quotes do not close the literal; ${...} expressions
// inside template literals are kept verbatim.
func readLiteral(src string, at int) (string, bool) {
	quote := src[at]
	exprDepth := 0
	for i := at + 1; i < len(src); i++ {
		c := src[i]
		if exprDepth > 0 {
			switch c {
			case '{':
				exprDepth++
			case '}':
				exprDepth--
			}
			continue
		}
		switch {
		case c == '\\':
			i++
		case c == quote:
			return src[at+1 : i], true
		case quote == '`' && c == '$' && i+1 < len(src) && src[i+1] == '{':
			exprDepth = 1
			i++
		case quote != '`' && c == '\n':
			return "", false
		}
	}
	return "", false
}
