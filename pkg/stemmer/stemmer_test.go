package stemmer

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
)

func TestPorter(t *testing.T) {
	tests := map[string]string{
		"ruby":      "rubi",
		"Ruby":      "rubi",
		"this":      "thi",
		"lorem":     "lorem",
		"running":   "run",
		"caresses":  "caress",
		"ponies":    "poni",
		"relational": "relat",
	}
	for word, want := range tests {
		if got := (Porter{}).Stem(word); got != want {
			t.Errorf("Porter.Stem(%q) = %q, want %q", word, got, want)
		}
	}
}

func TestSnowball(t *testing.T) {
	tests := map[string]string{
		"running":  "run",
		"ruby":     "rubi",
		"examples": "exampl",
		"document": "document",
	}
	for word, want := range tests {
		if got := (Snowball{}).Stem(word); got != want {
			t.Errorf("Snowball.Stem(%q) = %q, want %q", word, got, want)
		}
	}
}

func TestSuffix(t *testing.T) {
	tests := map[string]string{
		"relational": "relate",
		"ponies":     "pony",
		"jumping":    "jump",
		"boxes":      "box",
		"is":         "is",
		"Glass":      "glass",
	}
	for word, want := range tests {
		if got := (Suffix{}).Stem(word); got != want {
			t.Errorf("Suffix.Stem(%q) = %q, want %q", word, got, want)
		}
	}
}

func TestFunc(t *testing.T) {
	var s Stemmer = Func(strings.ToUpper)
	if got := s.Stem("node"); got != "NODE" {
		t.Errorf("got %q", got)
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		wantNil bool
		wantErr error
	}{
		{"", false, nil},
		{"porter", false, nil},
		{"snowball", false, nil},
		{"suffix", false, nil},
		{"none", true, nil},
		{"lancaster", true, apperrors.ErrUnknownStemmer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ByName(tt.name)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if (s == nil) != tt.wantNil {
				t.Errorf("stemmer nil = %v, want %v", s == nil, tt.wantNil)
			}
		})
	}
}

func BenchmarkStemmers(b *testing.B) {
	words := []string{
		"running", "distributed", "searching", "indexing",
		"tokenization", "normalization", "efficiently",
		"processing", "infrastructure", "scalability",
	}
	for name, s := range map[string]Stemmer{"porter": Porter{}, "snowball": Snowball{}, "suffix": Suffix{}} {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				for _, w := range words {
					_ = s.Stem(w)
				}
			}
		})
	}
}
