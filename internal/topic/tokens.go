package topic

import (
	"strings"
	"unicode"
)

// minTokenRunes is the shortest run of word characters treated as a token.
const minTokenRunes = 2

// Words splits text into lowercased runs of letters, digits and underscores
// at least two runes long, in order of appearance. Punctuation and
// whitespace separate runs. Scripts written without spaces yield one token
// per contiguous run.
func Words(text string) []string {
	var (
		out []string
		b   strings.Builder
		n   int
	)
	flush := func() {
		if n >= minTokenRunes {
			out = append(out, b.String())
		}
		b.Reset()
		n = 0
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
			n++
			continue
		}
		flush()
	}
	flush()
	return out
}

// Tokens returns the distinct words of text as a set.
func Tokens(text string) map[string]struct{} {
	words := Words(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Overlap counts the members of a that are also in b.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
