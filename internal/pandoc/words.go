package pandoc

import (
	"strings"
	"unicode"
)

// Words tokenizes plain text the way pandoc's readers do: each word becomes
// a Str, runs of blanks become one Space, and a run containing a line ending
// becomes one SoftBreak. Leading and trailing whitespace is dropped.
func Words(s string) []Inline {
	return Tokenize(strings.TrimSpace(s))
}

// Tokenize is Words without the trimming: blanks at either end become a
// Space or SoftBreak, so text split across several source runs can be
// tokenized piecewise.
func Tokenize(s string) []Inline {
	var (
		out     []Inline
		word    strings.Builder
		inBlank bool
		newline bool
	)
	flushWord := func() {
		if word.Len() > 0 {
			out = append(out, &Str{Text: word.String()})
			word.Reset()
		}
	}
	flushBlank := func() {
		if !inBlank {
			return
		}
		if newline {
			out = append(out, &SoftBreak{})
		} else {
			out = append(out, &Space{})
		}
		inBlank, newline = false, false
	}

	for _, r := range s {
		if unicode.IsSpace(r) {
			flushWord()
			inBlank = true
			if r == '\n' {
				newline = true
			}
			continue
		}
		flushBlank()
		word.WriteRune(r)
	}
	flushWord()
	flushBlank()
	return out
}
