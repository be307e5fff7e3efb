// Package casing converts identifiers between snake_case, camelCase and
// PascalCase. Conversion is word-based: an identifier is split into words
// on case boundaries, digits and separator symbols, then reassembled.
// Acronym runs stay together ("getHTTPStatus" splits as get, HTTP,
// Status), and trailing digits stick to their word ("field1" is one
// word).
package casing

import (
	"strings"
	"unicode"
)

// splitWords breaks an identifier into its component words. Separator
// characters (underscores, dashes, dots, spaces) are dropped. An
// uppercase run followed by a lowercase letter contributes its last
// letter to the next word.
func splitWords(s string) []string {
	var words []string
	runes := []rune(s)

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsUpper(r):
			j := i + 1
			for j < len(runes) && unicode.IsUpper(runes[j]) {
				j++
			}
			if j-i > 1 {
				// Acronym run. If a lowercase letter follows, the final
				// capital starts the next word.
				if j < len(runes) && unicode.IsLower(runes[j]) {
					j--
				}
			} else {
				// Single capital: absorb the following lowercase letters.
				for j < len(runes) && unicode.IsLower(runes[j]) {
					j++
				}
			}
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			words = append(words, string(runes[i:j]))
			i = j
		case unicode.IsLower(r):
			j := i + 1
			for j < len(runes) && unicode.IsLower(runes[j]) {
				j++
			}
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			words = append(words, string(runes[i:j]))
			i = j
		case unicode.IsDigit(r):
			j := i + 1
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			words = append(words, string(runes[i:j]))
			i = j
		default:
			// Separator; drop it.
			i++
		}
	}

	return words
}

// capitalize uppercases the first rune and lowercases the rest, so
// acronyms become title words: HTTP -> Http.
func capitalize(word string) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	out := make([]rune, 0, len(runes))
	out = append(out, unicode.ToUpper(runes[0]))
	for _, r := range runes[1:] {
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// SnakeCase converts an identifier to snake_case
func SnakeCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// PascalCase converts an identifier to PascalCase
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// CamelCase converts an identifier to camelCase
func CamelCase(s string) string {
	return LowerFirst(PascalCase(s))
}

// LowerFirst lowercases the first rune of s
func LowerFirst(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
