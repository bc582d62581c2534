// Package tokenizer splits text into word tokens. Tokenizers never stem;
// stemming is a separate stage so the two can be configured independently.
package tokenizer

import (
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
)

// Tokenizer splits a string into an ordered sequence of word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Func adapts an ordinary function to the Tokenizer interface.
type Func func(text string) []string

func (f Func) Tokenize(text string) []string {
	return f(text)
}

// Word splits on every run of characters that are not letters, digits or
// underscores. Case is preserved and nothing is dropped.
type Word struct{}

func (Word) Tokenize(text string) []string {
	return strings.FieldsFunc(text, isSeparator)
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Search lower-cases input, splits like Word, and drops stop-words and
// tokens shorter than MinLength.
type Search struct {
	StopWords map[string]struct{}
	MinLength int
}

// NewSearch returns a Search tokenizer with the built-in English stop-word
// list and a minimum token length of 2.
func NewSearch() *Search {
	return &Search{
		StopWords: stopWords,
		MinLength: 2,
	}
}

func (s *Search) Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < s.MinLength {
			continue
		}
		if _, isStop := s.StopWords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// ByName resolves a configured tokenizer name.
func ByName(name string) (Tokenizer, error) {
	switch name {
	case "", "word":
		return Word{}, nil
	case "search":
		return NewSearch(), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownTokenizer, "%q", name)
	}
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
