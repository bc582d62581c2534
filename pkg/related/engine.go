// Package related ranks a fixed corpus of documents by similarity to a
// query document.
//
// Each document is serialized into parts (for example title and body).
// Every part is tokenized, optionally stemmed, and scored against its own
// TF-IDF index built over the same part of every corpus document. Part
// scores are multiplied by per-part weights and summed into one absolute
// score per corpus document, then min-max normalized into a relative
// score. The best match, assumed to be the query itself, is dropped.
//
// Indexes are built lazily on the first Rank or Prepare call and kept until
// the serializer, tokenizer or stemmer changes. Weight changes take effect
// immediately without a rebuild.
package related

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/stemmer"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/tfidf"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/tokenizer"
)

// corpusIndex is the derived state of a corpus. It is built whole and
// never modified afterwards.
type corpusIndex[D any] struct {
	stems    [][][]string
	tfidfs   []*tfidf.Index
	pipeline pipeline[D]
}

// Engine ranks documents of type D. It is safe for concurrent use.
type Engine[D any] struct {
	documents []D

	mu         sync.RWMutex
	serializer Serializer[D]
	tokenizer  tokenizer.Tokenizer
	stemmer    stemmer.Stemmer
	weights    []float64
	idf        tfidf.IDFFunc
	parallel   bool
	cache      *corpusIndex[D]
	generation uint64

	builds  singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Engine over documents. The slice is retained, not
// copied, and is never modified.
func New[D any](documents []D, opts Options[D]) (*Engine[D], error) {
	if opts.Serializer == nil {
		return nil, apperrors.ErrNoSerializer
	}
	e := &Engine[D]{
		documents:  documents,
		serializer: opts.Serializer,
		tokenizer:  opts.Tokenizer,
		stemmer:    opts.Stemmer,
		weights:    cloneWeights(opts.Weights),
		idf:        opts.IDF,
		parallel:   opts.Parallel,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if e.tokenizer == nil {
		e.tokenizer = tokenizer.Word{}
	}
	switch {
	case opts.NoStemmer:
		e.stemmer = nil
	case e.stemmer == nil:
		e.stemmer = stemmer.Porter{}
	}
	if e.idf == nil {
		e.idf = tfidf.StandardIDF
	}
	if e.logger == nil {
		e.logger = logger.WithComponent("related")
	}
	return e, nil
}

// Documents returns the corpus exactly as passed to New.
func (e *Engine[D]) Documents() []D {
	return e.documents
}

// NumParts returns the number of parts the first corpus document
// serializes to, or 0 for an empty corpus.
func (e *Engine[D]) NumParts() int {
	if len(e.documents) == 0 {
		return 0
	}
	p := e.currentPipeline()
	if p.serializer == nil {
		return 0
	}
	return len(p.serialize(e.documents[0]))
}

// Weights returns a copy of the configured weights, or one weight of 1
// per part when none are configured.
func (e *Engine[D]) Weights() []float64 {
	e.mu.RLock()
	weights := cloneWeights(e.weights)
	e.mu.RUnlock()
	if weights != nil {
		return weights
	}
	weights = make([]float64, e.NumParts())
	for i := range weights {
		weights[i] = 1
	}
	return weights
}

// SetWeights replaces the part weights. Built indexes are kept.
func (e *Engine[D]) SetWeights(weights []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = cloneWeights(weights)
}

// Serializer returns the configured serializer.
func (e *Engine[D]) Serializer() Serializer[D] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.serializer
}

// SetSerializer replaces the serializer and invalidates built indexes.
func (e *Engine[D]) SetSerializer(serializer Serializer[D]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked("serializer")
	e.serializer = serializer
}

// Tokenizer returns the configured tokenizer.
func (e *Engine[D]) Tokenizer() tokenizer.Tokenizer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tokenizer
}

// SetTokenizer replaces the tokenizer and invalidates built indexes.
func (e *Engine[D]) SetTokenizer(tok tokenizer.Tokenizer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked("tokenizer")
	e.tokenizer = tok
}

// Stemmer returns the configured stemmer, or nil when stemming is off.
func (e *Engine[D]) Stemmer() stemmer.Stemmer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stemmer
}

// SetStemmer replaces the stemmer and invalidates built indexes. A nil
// stemmer disables stemming.
func (e *Engine[D]) SetStemmer(s stemmer.Stemmer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked("stemmer")
	e.stemmer = s
}

// Stems returns the per-document, per-part stems, or nil if not built.
func (e *Engine[D]) Stems() [][][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cache == nil {
		return nil
	}
	return e.cache.stems
}

// TFIDFs returns one index per part, or nil if not built.
func (e *Engine[D]) TFIDFs() []*tfidf.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cache == nil {
		return nil
	}
	return e.cache.tfidfs
}

// Prepare builds the stems and per-part indexes if they are not already
// built. It is a no-op otherwise.
func (e *Engine[D]) Prepare() error {
	_, err := e.prepare()
	return err
}

func (e *Engine[D]) resetLocked(reason string) {
	if e.cache != nil {
		e.logger.Debug("index invalidated", "reason", reason)
	}
	e.cache = nil
	e.generation++
}

func (e *Engine[D]) currentPipeline() pipeline[D] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pipelineLocked()
}

func (e *Engine[D]) pipelineLocked() pipeline[D] {
	return pipeline[D]{
		serializer: e.serializer,
		tokenizer:  e.tokenizer,
		stemmer:    e.stemmer,
		idf:        e.idf,
		logger:     e.logger,
	}
}

// prepare returns the current corpusIndex, building it if needed.
// Concurrent callers share one build. A build that finishes after an
// invalidation is discarded and retried with the new configuration, so
// the installed cache always matches the configuration at install time.
func (e *Engine[D]) prepare() (*corpusIndex[D], error) {
	for {
		e.mu.RLock()
		c := e.cache
		e.mu.RUnlock()
		if c != nil {
			return c, nil
		}

		v, err, _ := e.builds.Do("build", func() (interface{}, error) {
			e.mu.RLock()
			if e.cache != nil {
				c := e.cache
				e.mu.RUnlock()
				return c, nil
			}
			p := e.pipelineLocked()
			gen := e.generation
			e.mu.RUnlock()

			start := time.Now()
			c, err := p.build(e.documents)
			if err != nil {
				e.metrics.ObserveBuild("error", time.Since(start))
				return nil, err
			}

			e.mu.Lock()
			if e.generation != gen {
				e.mu.Unlock()
				e.metrics.ObserveBuild("discarded", time.Since(start))
				e.logger.Debug("discarding index built with stale configuration")
				return (*corpusIndex[D])(nil), nil
			}
			e.cache = c
			e.mu.Unlock()

			elapsed := time.Since(start)
			e.metrics.ObserveBuild("built", elapsed)
			for part, ix := range c.tfidfs {
				e.metrics.SetVocabulary(part, ix.Vocabulary())
			}
			e.logger.Info("index built",
				"documents", len(e.documents),
				"parts", len(c.tfidfs),
				"duration", elapsed,
			)
			return c, nil
		})
		if err != nil {
			return nil, err
		}
		if c := v.(*corpusIndex[D]); c != nil {
			return c, nil
		}
	}
}

func cloneWeights(weights []float64) []float64 {
	if weights == nil {
		return nil
	}
	out := make([]float64, len(weights))
	copy(out, weights)
	return out
}
