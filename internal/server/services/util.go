package services

import (
	"strings"
	"unicode/utf8"
)

// initial returns the upper-cased first letter of s, or "".
func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return strings.ToUpper(string(r))
}
