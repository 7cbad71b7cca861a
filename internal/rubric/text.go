package rubric

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ideaWords are matched as whole tokens so "ideal" or "optional" do not trip them.
var ideaWords = map[string]bool{
	"idea":            true,
	"ideas":           true,
	"option":          true,
	"options":         true,
	"suggest":         true,
	"suggestion":      true,
	"suggestions":     true,
	"recommend":       true,
	"recommendation":  true,
	"recommendations": true,
}

// ideaPhrases are matched against the lowercased, space-normalised text.
var ideaPhrases = []string{
	"what should i",
	"what could i",
	"where do i start",
	"what would you do",
	"any thoughts on what",
}

var stopWords = map[string]bool{
	"that": true, "this": true, "what": true, "when": true, "where": true,
	"which": true, "with": true, "would": true, "could": true, "should": true,
	"have": true, "your": true, "about": true, "there": true, "they": true,
	"them": true, "from": true, "been": true, "were": true, "like": true,
	"more": true, "some": true, "just": true, "into": true, "than": true,
	"then": true, "does": true, "will": true, "really": true, "tell": true,
	"think": true, "thing": true, "things": true, "know": true, "make": true,
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// tokens lowercases s and splits it on anything that is not a letter, digit or apostrophe.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func asksForIdeas(text string) bool {
	toks := tokens(text)
	for _, tok := range toks {
		if ideaWords[tok] {
			return true
		}
	}
	normalized := " " + strings.Join(toks, " ") + " "
	for _, phrase := range ideaPhrases {
		if strings.Contains(normalized, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// contentWords returns the distinct tokens of at least four letters that are not stop words.
func contentWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, tok := range tokens(text) {
		if utf8.RuneCountInString(tok) < 4 || stopWords[tok] {
			continue
		}
		words[tok] = true
	}
	return words
}

// answersQuestion reports whether reply picks up a content word from question.
func answersQuestion(question, reply string) bool {
	if !strings.Contains(question, "?") {
		return false
	}
	asked := contentWords(question)
	if len(asked) == 0 {
		return false
	}
	for w := range contentWords(reply) {
		if asked[w] {
			return true
		}
	}
	return false
}
