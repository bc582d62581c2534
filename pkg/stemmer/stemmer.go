// Package stemmer reduces word tokens to their stem form. Three strategies
// are provided: the classic Porter algorithm (the default used for ranking),
// the Snowball English (Porter2) algorithm, and a light rule-based suffix
// stripper.
package stemmer

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball/english"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
)

// Stemmer maps a single word to its stem.
type Stemmer interface {
	Stem(word string) string
}

// Func adapts an ordinary function to the Stemmer interface.
type Func func(word string) string

func (f Func) Stem(word string) string {
	return f(word)
}

// Porter is the original Porter (1980) stemmer. Input is lower-cased
// before stemming, so "Ruby" and "ruby" both become "rubi".
type Porter struct{}

func (Porter) Stem(word string) string {
	return porterstemmer.StemString(word)
}

// Snowball is the Snowball English stemmer. Stop words are stemmed like any
// other word because the tokenizer, not the stemmer, decides what to drop.
type Snowball struct{}

func (Snowball) Stem(word string) string {
	return english.Stem(word, true)
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Suffix strips the first matching suffix from a fixed rule table,
// provided the remaining stem keeps the rule's minimum length. It is
// cheaper than Porter and more aggressive on short words.
type Suffix struct{}

func (Suffix) Stem(word string) string {
	word = strings.ToLower(word)
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}

// ByName resolves a configured stemmer name. "none" resolves to a nil
// Stemmer, which the ranking pipeline treats as pass-through.
func ByName(name string) (Stemmer, error) {
	switch name {
	case "", "porter":
		return Porter{}, nil
	case "snowball":
		return Snowball{}, nil
	case "suffix":
		return Suffix{}, nil
	case "none":
		return nil, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownStemmer, "%q", name)
	}
}
