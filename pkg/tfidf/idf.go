package tfidf

import (
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
)

// IDFFunc computes the inverse document frequency of a term that occurs in
// docFreq of totalDocs indexed documents.
type IDFFunc func(totalDocs, docFreq int) float64

// StandardIDF is ln(N/df). Terms absent from the index score 0.
func StandardIDF(totalDocs, docFreq int) float64 {
	if docFreq == 0 || totalDocs == 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// SmoothIDF is 1 + ln(N/(1+df)). A term present in every document still
// scores slightly below 1 instead of 0.
func SmoothIDF(totalDocs, docFreq int) float64 {
	if totalDocs == 0 {
		return 0
	}
	return 1 + math.Log(float64(totalDocs)/float64(1+docFreq))
}

// IDFByName resolves a configured IDF function name.
func IDFByName(name string) (IDFFunc, error) {
	switch name {
	case "", "standard":
		return StandardIDF, nil
	case "smooth":
		return SmoothIDF, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownIDF, "%q", name)
	}
}
