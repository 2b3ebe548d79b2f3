package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type termCount struct {
	term  corpus.TermID
	count int
}

// Build counts terms per document on up to workers goroutines, then appends
// postings in DocID order on the calling goroutine. No list is ever written
// concurrently, and lists come out sorted without a final sort. A token
// missing from vocab aborts the build.
func Build(ctx context.Context, store *corpus.Store, vocab *corpus.Vocabulary, workers int) (*Postings, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	docs := store.Documents()
	counts := make([][]termCount, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tc, err := countTerms(docs[i], vocab)
			if err != nil {
				return err
			}
			counts[i] = tc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("counting terms: %w", err)
	}

	p := &Postings{
		lists:   make([]PostingList, vocab.Len()),
		numDocs: len(docs),
	}
	for i := range p.lists {
		p.lists[i] = PostingList{}
	}
	for i, doc := range docs {
		for _, tc := range counts[i] {
			p.lists[tc.term] = append(p.lists[tc.term], Posting{DocID: doc.ID, Frequency: tc.count})
			p.total++
		}
	}
	return p, nil
}

func countTerms(doc corpus.Document, vocab *corpus.Vocabulary) ([]termCount, error) {
	byTerm := make(map[corpus.TermID]int, len(doc.Tokens))
	for _, tok := range doc.Tokens {
		id, ok := vocab.ID(tok)
		if !ok {
			return nil, apperrors.Integrity("document %d (%q) has term %q outside the vocabulary", doc.ID, doc.Title, tok)
		}
		byTerm[id]++
	}
	out := make([]termCount, 0, len(byTerm))
	for id, n := range byTerm {
		out = append(out, termCount{term: id, count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].term < out[j].term })
	return out, nil
}
