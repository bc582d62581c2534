package related

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
)

// ScoreEntry is one ranked corpus document.
type ScoreEntry[D any] struct {
	Document D `json:"document"`
	// Index is the document's position in the corpus.
	Index int `json:"index"`
	// Absolute is the weighted sum of part scores.
	Absolute float64 `json:"absolute"`
	// Relative is Absolute min-max normalized over the whole corpus,
	// including the dropped best match. It is 0 for every entry when all
	// scores are equal.
	Relative float64 `json:"relative"`
}

// Rank scores every corpus document against document and returns all
// but the best match, highest absolute score first. Equal scores keep
// corpus order. The result has len(Documents())-1 entries.
func (e *Engine[D]) Rank(document D) ([]ScoreEntry[D], error) {
	start := time.Now()
	entries, err := e.rank(document)
	e.metrics.ObserveRank(time.Since(start), len(entries), err)
	if err != nil {
		e.logger.Warn("rank failed", "error", err)
	}
	return entries, err
}

func (e *Engine[D]) rank(document D) ([]ScoreEntry[D], error) {
	c, err := e.prepare()
	if err != nil {
		return nil, err
	}

	query := c.pipeline.process(document)
	if len(query) != len(c.tfidfs) {
		return nil, apperrors.Newf(apperrors.ErrPartCount,
			"query serialized to %d parts, want %d", len(query), len(c.tfidfs))
	}

	e.mu.RLock()
	weights := partWeights(e.weights, len(c.tfidfs))
	parallel := e.parallel
	e.mu.RUnlock()

	var measures []float64
	if parallel {
		measures = e.measureParallel(c, query, weights)
	} else {
		measures = e.measure(c, query, weights)
	}
	return order(e.documents, measures), nil
}

func (e *Engine[D]) measure(c *corpusIndex[D], query [][]string, weights []float64) []float64 {
	measures := make([]float64, len(e.documents))
	for part, ix := range c.tfidfs {
		w := weights[part]
		ix.Scores(query[part], func(doc int, score float64) {
			measures[doc] += score * w
		})
	}
	return measures
}

// measureParallel scores each part into its own slice and merges the
// slices in part order, giving the same sums as measure.
func (e *Engine[D]) measureParallel(c *corpusIndex[D], query [][]string, weights []float64) []float64 {
	partials := make([][]float64, len(c.tfidfs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for part, ix := range c.tfidfs {
		part, ix := part, ix
		g.Go(func() error {
			partial := make([]float64, len(e.documents))
			w := weights[part]
			ix.Scores(query[part], func(doc int, score float64) {
				partial[doc] = score * w
			})
			partials[part] = partial
			return nil
		})
	}
	_ = g.Wait()

	measures := make([]float64, len(e.documents))
	for _, partial := range partials {
		for doc, score := range partial {
			measures[doc] += score
		}
	}
	return measures
}

// partWeights returns exactly numParts weights, filling missing entries
// with 1 and ignoring extras.
func partWeights(configured []float64, numParts int) []float64 {
	weights := make([]float64, numParts)
	for i := range weights {
		if i < len(configured) {
			weights[i] = configured[i]
		} else {
			weights[i] = 1
		}
	}
	return weights
}

func order[D any](documents []D, measures []float64) []ScoreEntry[D] {
	entries := make([]ScoreEntry[D], len(measures))
	for i, score := range measures {
		entries[i] = ScoreEntry[D]{
			Document: documents[i],
			Index:    i,
			Absolute: score,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Absolute > entries[j].Absolute
	})

	hi := entries[0].Absolute
	lo := entries[len(entries)-1].Absolute
	for i := range entries {
		if hi > lo {
			entries[i].Relative = (entries[i].Absolute - lo) / (hi - lo)
		}
	}
	return entries[1:]
}
