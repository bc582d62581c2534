// Package tfidf implements a term-frequency / inverse-document-frequency
// accumulator. Documents are pre-tokenized stem sequences addressed by the
// position at which they were added.
package tfidf

import (
	"sort"
	"sync"
)

// Index is an inverted index over stem sequences. It is safe for
// concurrent use; scoring takes a read lock only.
type Index struct {
	mu       sync.RWMutex
	postings map[string]PostingList
	docLens  []int
	idf      IDFFunc
}

type Option func(*Index)

// WithIDF replaces the default StandardIDF.
func WithIDF(fn IDFFunc) Option {
	return func(ix *Index) {
		if fn != nil {
			ix.idf = fn
		}
	}
}

func New(opts ...Option) *Index {
	ix := &Index{
		postings: make(map[string]PostingList),
		idf:      StandardIDF,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// AddDocument indexes stems as the next document and returns its position.
func (ix *Index) AddDocument(stems []string) int {
	termFreq := make(map[string]int, len(stems))
	order := make([]string, 0, len(stems))
	for _, s := range stems {
		if _, seen := termFreq[s]; !seen {
			order = append(order, s)
		}
		termFreq[s]++
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	doc := len(ix.docLens)
	for _, term := range order {
		ix.postings[term] = append(ix.postings[term], Posting{
			Doc:       doc,
			Frequency: termFreq[term],
		})
	}
	ix.docLens = append(ix.docLens, len(stems))
	return doc
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docLens)
}

// DocLen returns the number of stems indexed for doc.
func (ix *Index) DocLen(doc int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.docLens[doc]
}

// Vocabulary returns the number of distinct terms.
func (ix *Index) Vocabulary() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

func (ix *Index) DocFreq(term string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings[term])
}

func (ix *Index) IDF(term string) float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.idfLocked(term)
}

// TF returns the raw count of term in doc.
func (ix *Index) TF(term string, doc int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tfLocked(term, doc)
}

// Score returns Σ tf(t, doc) · idf(t) over every term of query, counting
// repeated query terms once per occurrence.
func (ix *Index) Score(query []string, doc int) float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var score float64
	for _, term := range query {
		tf := ix.tfLocked(term, doc)
		if tf == 0 {
			continue
		}
		score += float64(tf) * ix.idfLocked(term)
	}
	return score
}

// Scores calls fn once for every indexed document, in index order, with
// that document's score against query.
func (ix *Index) Scores(query []string, fn func(doc int, score float64)) {
	ix.mu.RLock()
	scores := make([]float64, len(ix.docLens))
	for _, term := range query {
		list := ix.postings[term]
		if len(list) == 0 {
			continue
		}
		idf := ix.idfLocked(term)
		for _, p := range list {
			scores[p.Doc] += float64(p.Frequency) * idf
		}
	}
	ix.mu.RUnlock()

	for doc, score := range scores {
		fn(doc, score)
	}
}

// Terms returns the inverted index sorted by term, each posting list
// sorted by document.
func (ix *Index) Terms() []TermEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]TermEntry, 0, len(ix.postings))
	for term, list := range ix.postings {
		postings := make(PostingList, len(list))
		copy(postings, list)
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (ix *Index) idfLocked(term string) float64 {
	return ix.idf(len(ix.docLens), len(ix.postings[term]))
}

// tfLocked relies on posting lists being sorted by Doc, which holds because
// documents are only ever appended.
func (ix *Index) tfLocked(term string, doc int) int {
	list := ix.postings[term]
	i := sort.Search(len(list), func(i int) bool { return list[i].Doc >= doc })
	if i < len(list) && list[i].Doc == doc {
		return list[i].Frequency
	}
	return 0
}
