package transaction

import (
	"strings"
	"unicode"
	"unicode/utf8"

	strs "brokerage/pkg/platform/strings"
)

// EncodingCandidates lists the textual encodings to try for a logical payment
// mode: the mode as given, Title case, UPPER case, then configured aliases for
// the lower-cased mode. Duplicates are dropped keeping the first occurrence.
func EncodingCandidates(mode string, aliases map[string][]string) []string {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return nil
	}
	candidates := []string{mode, titleCase(mode), strings.ToUpper(mode)}
	candidates = append(candidates, aliases[strings.ToLower(mode)]...)
	return strs.DedupeAndTrim(candidates)
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
