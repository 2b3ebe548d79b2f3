// Package stats derives corpus-wide term statistics from postings.
package stats

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/index"
)

// Stats is indexed by TermID (DF, IDF) and DocID (DocLengths).
type Stats struct {
	NumDocs    int
	DF         []int
	IDF        []float64
	DocLengths []int
}

// IDF is log10(n/df), or 0 when df is 0.
func IDF(df, n int) float64 {
	if df <= 0 || n <= 0 {
		return 0
	}
	return math.Log10(float64(n) / float64(df))
}

func Compute(p *index.Postings) *Stats {
	n := p.NumDocs()
	s := &Stats{
		NumDocs:    n,
		DF:         make([]int, p.NumTerms()),
		IDF:        make([]float64, p.NumTerms()),
		DocLengths: make([]int, n),
	}
	for t := range s.DF {
		list := p.List(corpus.TermID(t))
		s.DF[t] = len(list)
		s.IDF[t] = IDF(len(list), n)
		for _, posting := range list {
			s.DocLengths[posting.DocID] += posting.Frequency
		}
	}
	return s
}

// DFOf returns 0 for IDs outside the vocabulary.
func (s *Stats) DFOf(term corpus.TermID) int {
	if term < 0 || int(term) >= len(s.DF) {
		return 0
	}
	return s.DF[term]
}

// IDFOf returns 0 for IDs outside the vocabulary.
func (s *Stats) IDFOf(term corpus.TermID) float64 {
	if term < 0 || int(term) >= len(s.IDF) {
		return 0
	}
	return s.IDF[term]
}
