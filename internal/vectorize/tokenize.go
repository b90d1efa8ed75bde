package vectorize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// minTokenRunes drops single-character tokens.
const minTokenRunes = 2

// Tokenize normalizes text (NFKC, lowercase) and splits it into runs of
// letters and digits, dropping tokens shorter than two runes and stopwords.
func Tokenize(text string, stopwords map[string]struct{}) []string {
	if text == "" {
		return nil
	}
	normed := strings.ToLower(norm.NFKC.String(text))

	var tokens []string
	start := -1
	flush := func(end int) {
		tok := normed[start:end]
		start = -1
		if utf8.RuneCountInString(tok) < minTokenRunes {
			return
		}
		if _, stop := stopwords[tok]; stop {
			return
		}
		tokens = append(tokens, tok)
	}

	for i, r := range normed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			flush(i)
		}
	}
	if start != -1 {
		flush(len(normed))
	}
	return tokens
}

// Terms expands tokens into unigrams followed by adjacent bigrams.
func Terms(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(tokens)-1)
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}
