// Package naming turns raw multi-word labels from an API description into
// identifiers. All functions are pure and safe for concurrent use.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TypeName canonicalizes parts into an identifier whose first token is
// capitalized, e.g. TypeName("user items", "get", "Request") == "UserItemsGetRequest".
func TypeName(parts ...string) string {
	return Canonicalize(upperFirst, parts...)
}

// PropertyName canonicalizes parts into an identifier whose first token is
// lower-cased, e.g. PropertyName("X-Request-Id") == "xRequestId".
func PropertyName(parts ...string) string {
	return Canonicalize(lowerFirst, parts...)
}

// Canonicalize splits every part on runs of whitespace and hyphens and
// concatenates the tokens in camel form. The first token is transformed by
// first, every following token gets its first rune upper-cased.
//
// The result only contains letters, digits and underscores; a leading digit
// is prefixed with "_". An empty input yields "".
func Canonicalize(first func(string) string, parts ...string) string {
	tokens := Tokens(parts...)
	if len(tokens) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(first(tokens[0]))
	for _, tok := range tokens[1:] {
		b.WriteString(upperFirst(tok))
	}
	return sanitize(b.String())
}

// Tokens returns the non-empty tokens of parts, split on whitespace and hyphens.
func Tokens(parts ...string) []string {
	var tokens []string
	for _, part := range parts {
		tokens = append(tokens, strings.FieldsFunc(part, isSeparator)...)
	}
	return tokens
}

func isSeparator(r rune) bool {
	return r == '-' || unicode.IsSpace(r)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// sanitize drops runes that cannot appear in an identifier.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// IsIdentifier reports whether name is a non-empty identifier as produced by
// Canonicalize.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}
