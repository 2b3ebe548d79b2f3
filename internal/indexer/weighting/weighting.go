// Package weighting builds sparse TF-IDF vectors for documents and queries.
//
// Vectors keep their entries sorted by TermID, and every sum over a vector
// runs in that order, so the same inputs always produce bit-identical norms
// and dot products.
package weighting

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/stats"
)

type Entry struct {
	Term   corpus.TermID
	Weight float64
}

// Vector is a sparse TF-IDF vector. Terms with zero frequency are absent.
type Vector struct {
	Entries []Entry
	Norm    float64
}

// Weight returns the weight of term, zero when absent.
func (v Vector) Weight(term corpus.TermID) float64 {
	i := sort.Search(len(v.Entries), func(i int) bool { return v.Entries[i].Term >= term })
	if i < len(v.Entries) && v.Entries[i].Term == term {
		return v.Entries[i].Weight
	}
	return 0
}

func (v Vector) Len() int { return len(v.Entries) }

// DocumentVectors returns one vector per document, indexed by DocID. Walking
// postings in TermID order appends entries already sorted.
func DocumentVectors(p *index.Postings, s *stats.Stats) []Vector {
	vectors := make([]Vector, p.NumDocs())
	for t := 0; t < p.NumTerms(); t++ {
		term := corpus.TermID(t)
		idf := s.IDFOf(term)
		for _, posting := range p.List(term) {
			vectors[posting.DocID].Entries = append(vectors[posting.DocID].Entries, Entry{
				Term:   term,
				Weight: float64(posting.Frequency) * idf,
			})
		}
	}
	for i := range vectors {
		vectors[i].Norm = Norm(vectors[i].Entries)
	}
	return vectors
}

// QueryVector weights terms with the corpus idf, counting tf within the
// query. Terms outside vocab contribute nothing.
func QueryVector(terms []string, vocab *corpus.Vocabulary, s *stats.Stats) Vector {
	counts := make(map[corpus.TermID]int, len(terms))
	for _, t := range terms {
		if id, ok := vocab.ID(t); ok {
			counts[id]++
		}
	}
	entries := make([]Entry, 0, len(counts))
	for id, n := range counts {
		entries = append(entries, Entry{Term: id, Weight: float64(n) * s.IDFOf(id)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
	return Vector{Entries: entries, Norm: Norm(entries)}
}

// Norm is the Euclidean norm of entries.
func Norm(entries []Entry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Weight * e.Weight
	}
	return math.Sqrt(sum)
}

// Dot merges two sorted vectors.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Entries) && j < len(b.Entries) {
		switch {
		case a.Entries[i].Term < b.Entries[j].Term:
			i++
		case a.Entries[i].Term > b.Entries[j].Term:
			j++
		default:
			sum += a.Entries[i].Weight * b.Entries[j].Weight
			i++
			j++
		}
	}
	return sum
}
