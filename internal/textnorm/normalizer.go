// Package textnorm reduces free text to a canonical token stream: case
// folding, markup stripping, stopword removal, and suffix-rule
// lemmatization. Every function is pure and total; empty input yields an
// empty token slice, never an error.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	urlPattern     = regexp.MustCompile(`(https?://|www\.)\S+`)
	emailPattern   = regexp.MustCompile(`\S+@\S+`)
)

// generalStopwords is a compact English stopword set; domainStopwords adds
// terms so common in book metadata that they carry no signal.
var generalStopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "all": {},
	"am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {}, "can": {},
	"did": {}, "do": {}, "does": {}, "doing": {}, "down": {}, "during": {},
	"each": {}, "few": {}, "for": {}, "from": {}, "further": {}, "had": {},
	"has": {}, "have": {}, "having": {}, "he": {}, "her": {}, "here": {},
	"hers": {}, "him": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "just": {}, "me": {},
	"more": {}, "most": {}, "my": {}, "no": {}, "nor": {}, "not": {},
	"now": {}, "of": {}, "off": {}, "on": {}, "once": {}, "only": {},
	"or": {}, "other": {}, "our": {}, "ours": {}, "out": {}, "over": {},
	"own": {}, "same": {}, "she": {}, "so": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "theirs": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {},
	"under": {}, "until": {}, "up": {}, "us": {}, "very": {}, "was": {},
	"we": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {},
	"you": {}, "your": {}, "yours": {},
}

var domainStopwords = map[string]struct{}{
	"book": {}, "novel": {}, "story": {}, "tale": {}, "chapter": {},
	"page": {}, "read": {}, "reading": {}, "author": {}, "writer": {},
	"written": {}, "publish": {}, "published": {}, "publication": {},
	"edition": {}, "volume": {}, "series": {}, "part": {}, "first": {},
	"second": {}, "third": {},
}

// irregularLemmas maps common irregular plurals to their singular form.
var irregularLemmas = map[string]string{
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"people":   "person",
	"feet":     "foot",
	"teeth":    "tooth",
	"mice":     "mouse",
	"geese":    "goose",
	"lives":    "life",
	"wives":    "wife",
	"leaves":   "leaf",
	"selves":   "self",
}

// IsStopword reports whether the token belongs to the general or domain
// stopword set.
func IsStopword(token string) bool {
	if _, ok := generalStopwords[token]; ok {
		return true
	}
	_, ok := domainStopwords[token]
	return ok
}

// Clean lowercases text and strips HTML-like tags, URLs, email addresses,
// and every non-letter character, collapsing whitespace runs.
func Clean(text string) string {
	text = strings.ToLower(text)
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Normalize runs the full pipeline: clean, tokenize, drop stopwords, and
// lemmatize each surviving token. Normalizing already-normalized text is a
// no-op.
func Normalize(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}
	words := strings.Fields(cleaned)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if IsStopword(word) {
			continue
		}
		lemma := Lemmatize(word)
		if lemma == "" || IsStopword(lemma) {
			continue
		}
		tokens = append(tokens, lemma)
	}
	return tokens
}

// SearchTerms builds the canonical document token stream for a book from
// its metadata fields, skipping absent ones, in document order.
func SearchTerms(title, author, genre string) []string {
	var terms []string
	for _, field := range []string{title, author, genre} {
		if field == "" {
			continue
		}
		terms = append(terms, Normalize(field)...)
	}
	return terms
}

// suffixRules are applied in order; the first matching rule whose result
// keeps at least minRemain letters wins.
var suffixRules = []struct {
	suffix    string
	replace   string
	minRemain int
}{
	{"sses", "ss", 3},
	{"ies", "y", 3},
	{"xes", "x", 3},
	{"ches", "ch", 3},
	{"shes", "sh", 3},
	{"ves", "f", 3},
	{"ing", "", 3},
	{"ed", "", 4},
	{"s", "", 3},
}

// Lemmatize reduces a single lowercase token to its dictionary lemma using
// an irregular-form table and ordered suffix rules. Applying it to its own
// output changes nothing.
func Lemmatize(word string) string {
	if lemma, ok := irregularLemmas[word]; ok {
		return lemma
	}
	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		if rule.suffix == "s" && (strings.HasSuffix(word, "ss") || strings.HasSuffix(word, "us") || strings.HasSuffix(word, "is")) {
			continue
		}
		stem := word[:len(word)-len(rule.suffix)] + rule.replace
		if len(stem) < rule.minRemain {
			continue
		}
		if rule.suffix == "ing" || rule.suffix == "ed" {
			stem = undouble(stem)
		}
		return stem
	}
	return word
}

// undouble collapses a doubled final consonant left behind by stripping a
// verbal suffix (running -> run, stopped -> stop).
func undouble(stem string) string {
	if len(stem) < 3 {
		return stem
	}
	last := stem[len(stem)-1]
	if stem[len(stem)-2] != last {
		return stem
	}
	switch last {
	case 'b', 'd', 'f', 'g', 'm', 'n', 'p', 'r', 't':
		return stem[:len(stem)-1]
	}
	return stem
}
