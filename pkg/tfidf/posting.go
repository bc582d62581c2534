package tfidf

// Posting records how often a term occurs in one indexed document.
type Posting struct {
	Doc       int
	Frequency int
}

type PostingList []Posting

// TermEntry is one row of the inverted index, as returned by Terms.
type TermEntry struct {
	Term     string
	Postings PostingList
}
