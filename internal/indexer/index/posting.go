// Package index builds the inverted index: for every vocabulary term, the
// ascending list of documents containing it with the term's frequency in
// each.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
)

type Posting struct {
	DocID     corpus.DocID
	Frequency int
}

// PostingList is sorted by DocID with no repeats.
type PostingList []Posting

// Postings is indexed by TermID. A vocabulary term that occurs nowhere has an
// empty list, never a missing one.
type Postings struct {
	lists   []PostingList
	numDocs int
	total   int
}

// List returns the posting list of term, or an empty list for an ID outside
// the vocabulary. The result is shared and must not be modified.
func (p *Postings) List(term corpus.TermID) PostingList {
	if term < 0 || int(term) >= len(p.lists) {
		return PostingList{}
	}
	return p.lists[term]
}

func (p *Postings) DocIDs(term corpus.TermID) []corpus.DocID {
	list := p.List(term)
	ids := make([]corpus.DocID, len(list))
	for i, posting := range list {
		ids[i] = posting.DocID
	}
	return ids
}

// TF returns the raw count of term in doc, zero when absent.
func (p *Postings) TF(term corpus.TermID, doc corpus.DocID) int {
	list := p.List(term)
	i := sort.Search(len(list), func(i int) bool { return list[i].DocID >= doc })
	if i < len(list) && list[i].DocID == doc {
		return list[i].Frequency
	}
	return 0
}

func (p *Postings) NumTerms() int { return len(p.lists) }

func (p *Postings) NumDocs() int { return p.numDocs }

// Total is the number of (term, document) pairs across all lists.
func (p *Postings) Total() int { return p.total }
