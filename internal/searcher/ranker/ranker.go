// Package ranker scores documents by cosine similarity between TF-IDF
// vectors and keeps the best K.
package ranker

import (
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/weighting"
)

type ScoredDoc struct {
	DocID corpus.DocID `json:"doc_id"`
	Score float64      `json:"score"`
}

// Cosine is dot(q, d) / (|q| |d|), clamped to [0, 1]. It is 0 when either
// vector has zero norm.
func Cosine(q, d weighting.Vector) float64 {
	if q.Norm == 0 || d.Norm == 0 {
		return 0
	}
	s := weighting.Dot(q, d) / (q.Norm * d.Norm)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// Rank scores every document against query and returns the top k by score
// descending, ties broken by ascending DocID. docs is indexed by DocID. The
// result has exactly min(k, len(docs)) entries; k <= 0 yields none.
func Rank(query weighting.Vector, docs []weighting.Vector, k int) []ScoredDoc {
	top, _ := RankWithMatches(query, docs, k)
	return top
}

// RankWithMatches is Rank plus the number of documents scoring above zero.
func RankWithMatches(query weighting.Vector, docs []weighting.Vector, k int) ([]ScoredDoc, int) {
	matches := 0
	if k <= 0 {
		for _, d := range docs {
			if Cosine(query, d) > 0 {
				matches++
			}
		}
		return []ScoredDoc{}, matches
	}
	top := newTopK(min(k, len(docs)))
	for i, d := range docs {
		score := Cosine(query, d)
		if score > 0 {
			matches++
		}
		top.Offer(ScoredDoc{DocID: corpus.DocID(i), Score: score})
	}
	return top.Sorted(), matches
}

// better reports whether a ranks ahead of b.
func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}
