package related

import (
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/stemmer"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/tfidf"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/tokenizer"
)

// pipeline is an immutable snapshot of the text-processing configuration.
// A built corpusIndex keeps the pipeline it was built with so queries are
// always processed the same way as the corpus they are scored against.
type pipeline[D any] struct {
	serializer Serializer[D]
	tokenizer  tokenizer.Tokenizer
	stemmer    stemmer.Stemmer
	idf        tfidf.IDFFunc
	logger     *slog.Logger
}

func (p pipeline[D]) serialize(doc D) []string {
	return p.serializer(doc)
}

func (p pipeline[D]) tokenize(parts []string) [][]string {
	tokens := make([][]string, len(parts))
	for i, part := range parts {
		tokens[i] = p.tokenizer.Tokenize(part)
	}
	return tokens
}

func (p pipeline[D]) stem(parts [][]string) [][]string {
	if p.stemmer == nil {
		return parts
	}
	stems := make([][]string, len(parts))
	for i, words := range parts {
		stems[i] = make([]string, len(words))
		for j, w := range words {
			stems[i][j] = p.stemmer.Stem(w)
		}
	}
	return stems
}

// process converts a document into parts, each an ordered list of stems
// (or raw tokens when stemming is disabled).
func (p pipeline[D]) process(doc D) [][]string {
	serialized := p.serialize(doc)
	tokens := p.tokenize(serialized)
	stems := p.stem(tokens)
	p.logger.Debug("document processed",
		"serialized", serialized,
		"tokens", tokens,
		"stems", stems,
	)
	return stems
}

// build processes every corpus document and fills one TF-IDF index per
// part, adding documents in corpus order.
func (p pipeline[D]) build(documents []D) (*corpusIndex[D], error) {
	if p.serializer == nil {
		return nil, apperrors.ErrNoSerializer
	}
	if len(documents) == 0 {
		return nil, apperrors.ErrEmptyCorpus
	}
	stems := make([][][]string, len(documents))
	for i, doc := range documents {
		stems[i] = p.process(doc)
	}
	numParts := len(stems[0])
	for i, parts := range stems {
		if len(parts) != numParts {
			return nil, apperrors.Newf(apperrors.ErrPartCount,
				"document %d serialized to %d parts, want %d", i, len(parts), numParts)
		}
	}
	indexes := make([]*tfidf.Index, numParts)
	for part := range indexes {
		ix := tfidf.New(tfidf.WithIDF(p.idf))
		for _, parts := range stems {
			ix.AddDocument(parts[part])
		}
		indexes[part] = ix
	}
	return &corpusIndex[D]{
		stems:    stems,
		tfidfs:   indexes,
		pipeline: p,
	}, nil
}

// Serialize runs the configured serializer.
func (e *Engine[D]) Serialize(doc D) []string {
	return e.currentPipeline().serialize(doc)
}

// Tokenize applies the configured tokenizer to each part independently.
func (e *Engine[D]) Tokenize(parts []string) [][]string {
	return e.currentPipeline().tokenize(parts)
}

// Stem maps every token through the configured stemmer, or returns parts
// unchanged when stemming is disabled.
func (e *Engine[D]) Stem(parts [][]string) [][]string {
	return e.currentPipeline().stem(parts)
}

// Process runs serialize, tokenize and stem on doc.
func (e *Engine[D]) Process(doc D) [][]string {
	return e.currentPipeline().process(doc)
}
