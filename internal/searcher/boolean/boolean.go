// Package boolean answers conjunctive queries by intersecting roaring
// bitmaps, smallest first.
package boolean

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/RoaringBitmap/roaring/v2"
)

// PostingSource returns a term's posting bitmap, nil for unknown terms.
// The bitmap is never modified here.
type PostingSource interface {
	PostingBitmap(term string) *roaring.Bitmap
}

// RetrieveAnd returns the documents containing every term, ascending. An
// empty query matches nothing, as does any query with an unknown term.
func RetrieveAnd(terms []string, src PostingSource) []corpus.DocID {
	if len(terms) == 0 {
		return []corpus.DocID{}
	}
	seen := make(map[string]struct{}, len(terms))
	bitmaps := make([]*roaring.Bitmap, 0, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		bm := src.PostingBitmap(term)
		if bm == nil || bm.IsEmpty() {
			return []corpus.DocID{}
		}
		bitmaps = append(bitmaps, bm)
	}

	sort.SliceStable(bitmaps, func(i, j int) bool {
		return bitmaps[i].GetCardinality() < bitmaps[j].GetCardinality()
	})
	result := bitmaps[0].Clone()
	for _, bm := range bitmaps[1:] {
		result.And(bm)
		if result.IsEmpty() {
			return []corpus.DocID{}
		}
	}

	ids := make([]corpus.DocID, 0, result.GetCardinality())
	it := result.Iterator()
	for it.HasNext() {
		ids = append(ids, corpus.DocID(it.Next()))
	}
	return ids
}
