package qagen

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pair is one generated question with its answer.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const (
	maxQuestionLen = 500
	maxAnswerLen   = 2000
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

// ValidatePair trims p in place and reports whether it is usable: both
// sides non-empty, within length limits and free of prompt-injection text.
func ValidatePair(p *Pair) bool {
	if p == nil {
		return false
	}
	p.Question = strings.TrimSpace(p.Question)
	p.Answer = strings.TrimSpace(p.Answer)

	if utf8.RuneCountInString(p.Question) < 3 || utf8.RuneCountInString(p.Question) > maxQuestionLen {
		return false
	}
	if p.Answer == "" || utf8.RuneCountInString(p.Answer) > maxAnswerLen {
		return false
	}
	return !injectionPattern.MatchString(p.Question) && !injectionPattern.MatchString(p.Answer)
}

// FilterPairs returns the valid pairs, dropping repeated questions
// regardless of case.
func FilterPairs(pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if !ValidatePair(&p) {
			continue
		}
		key := strings.ToLower(p.Question)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
