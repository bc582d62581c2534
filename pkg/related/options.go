package related

import (
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/related/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/stemmer"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/tfidf"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/tokenizer"
)

// Serializer extracts the ordered textual parts of a document, for
// example its title and body. It must return the same number of parts
// for every document an Engine sees.
type Serializer[D any] func(doc D) []string

// Options configures an Engine. Only Serializer is required.
type Options[D any] struct {
	Serializer Serializer[D]

	// Weights scale each part's score. Missing entries count as 1.
	Weights []float64

	// Tokenizer defaults to tokenizer.Word.
	Tokenizer tokenizer.Tokenizer

	// Stemmer defaults to stemmer.Porter unless NoStemmer is set.
	Stemmer   stemmer.Stemmer
	NoStemmer bool

	// IDF defaults to tfidf.StandardIDF.
	IDF tfidf.IDFFunc

	// Parallel scores parts concurrently.
	Parallel bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// OptionsFromConfig resolves the strategy names in cfg.
func OptionsFromConfig[D any](cfg config.RankingConfig, serializer Serializer[D]) (Options[D], error) {
	tok, err := tokenizer.ByName(cfg.Tokenizer)
	if err != nil {
		return Options[D]{}, err
	}
	stem, err := stemmer.ByName(cfg.Stemmer)
	if err != nil {
		return Options[D]{}, err
	}
	idf, err := tfidf.IDFByName(cfg.IDF)
	if err != nil {
		return Options[D]{}, err
	}
	return Options[D]{
		Serializer: serializer,
		Weights:    cfg.Weights,
		Tokenizer:  tok,
		Stemmer:    stem,
		NoStemmer:  stem == nil,
		IDF:        idf,
		Parallel:   cfg.Parallel,
	}, nil
}

// NewFromConfig creates an Engine over documents from a loaded Config.
// The engine logs to w (stdout when nil) at cfg.Logging's level and
// format, and registers its collectors on reg only when
// cfg.Metrics.Enabled is set.
func NewFromConfig[D any](documents []D, cfg *config.Config, serializer Serializer[D], w io.Writer, reg prometheus.Registerer) (*Engine[D], error) {
	opts, err := OptionsFromConfig[D](cfg.Ranking, serializer)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}
	opts.Logger = logger.New(w, cfg.Logging.Level, cfg.Logging.Format).With("component", "related")
	if cfg.Metrics.Enabled {
		opts.Metrics = metrics.New(reg)
	}
	return New(documents, opts)
}
