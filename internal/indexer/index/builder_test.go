package index

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample(t testing.TB, entries []corpus.Entry, workers int) (*corpus.Store, *corpus.Vocabulary, *Postings) {
	t.Helper()
	store, err := corpus.NewStore(entries, corpus.StoreOptions{})
	require.NoError(t, err)
	vocab := corpus.BuildVocabulary(store)
	p, err := Build(context.Background(), store, vocab, workers)
	require.NoError(t, err)
	return store, vocab, p
}

func catDog() []corpus.Entry {
	return []corpus.Entry{
		{Title: "a", Tokens: []string{"the", "cat", "sat"}},
		{Title: "b", Tokens: []string{"the", "dog", "sat"}},
		{Title: "c", Tokens: []string{"cat", "and", "dog"}},
	}
}

func docIDs(t *testing.T, vocab *corpus.Vocabulary, p *Postings, term string) []corpus.DocID {
	t.Helper()
	id, ok := vocab.ID(term)
	if !ok {
		return p.DocIDs(-1)
	}
	return p.DocIDs(id)
}

func TestBuildCatDog(t *testing.T) {
	_, vocab, p := buildSample(t, catDog(), 2)

	assert.Equal(t, []corpus.DocID{0, 2}, docIDs(t, vocab, p, "cat"))
	assert.Equal(t, []corpus.DocID{0, 1}, docIDs(t, vocab, p, "sat"))
	assert.Equal(t, []corpus.DocID{2}, docIDs(t, vocab, p, "and"))
	assert.Empty(t, docIDs(t, vocab, p, "elephant"))
	assert.NotNil(t, p.List(-1))
	assert.Equal(t, 5, p.NumTerms())
	assert.Equal(t, 3, p.NumDocs())
	assert.Equal(t, 9, p.Total())
}

func TestBuildFrequencies(t *testing.T) {
	_, vocab, p := buildSample(t, []corpus.Entry{
		{Title: "x", Tokens: []string{"dog", "dog", "cat", "dog"}},
		{Title: "y", Tokens: []string{"cat"}},
	}, 1)
	dog, _ := vocab.ID("dog")
	cat, _ := vocab.ID("cat")
	assert.Equal(t, 3, p.TF(dog, 0))
	assert.Equal(t, 0, p.TF(dog, 1))
	assert.Equal(t, 1, p.TF(cat, 1))
	assert.Equal(t, 0, p.TF(99, 0))
}

func randomCorpus(r *rand.Rand, docs, words int) []corpus.Entry {
	entries := make([]corpus.Entry, docs)
	for i := range entries {
		n := r.IntN(40)
		tokens := make([]string, n)
		for j := range tokens {
			tokens[j] = fmt.Sprintf("w%d", r.IntN(words))
		}
		entries[i] = corpus.Entry{Title: fmt.Sprintf("doc-%03d", docs-i), Tokens: tokens}
	}
	return entries
}

func TestBuildPostingIffOccurs(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	store, vocab, p := buildSample(t, randomCorpus(r, 50, 80), 4)

	for tid := 0; tid < vocab.Len(); tid++ {
		term := corpus.TermID(tid)
		list := p.List(term)
		for i := 1; i < len(list); i++ {
			require.Less(t, list[i-1].DocID, list[i].DocID, "list for %q not strictly ascending", vocab.Term(term))
		}
		inList := make(map[corpus.DocID]bool, len(list))
		for _, posting := range list {
			inList[posting.DocID] = true
		}
		for _, doc := range store.Documents() {
			count := 0
			for _, tok := range doc.Tokens {
				if tok == vocab.Term(term) {
					count++
				}
			}
			assert.Equal(t, count > 0, inList[doc.ID])
			assert.Equal(t, count, p.TF(term, doc.ID))
		}
	}
}

func TestBuildIndependentOfWorkers(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	entries := randomCorpus(r, 30, 50)
	_, _, one := buildSample(t, entries, 1)
	_, _, many := buildSample(t, entries, 8)
	assert.Equal(t, one, many)
}

func TestBuildRejectsTermOutsideVocabulary(t *testing.T) {
	store, err := corpus.NewStore(catDog(), corpus.StoreOptions{})
	require.NoError(t, err)
	other, err := corpus.NewStore([]corpus.Entry{{Title: "z", Tokens: []string{"cat"}}}, corpus.StoreOptions{})
	require.NoError(t, err)

	_, err = Build(context.Background(), store, corpus.BuildVocabulary(other), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCorpusIntegrity)
}

func TestBuildCancelled(t *testing.T) {
	store, err := corpus.NewStore(catDog(), corpus.StoreOptions{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, store, corpus.BuildVocabulary(store), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkBuild(b *testing.B) {
	r := rand.New(rand.NewPCG(3, 4))
	store, err := corpus.NewStore(randomCorpus(r, 60, 5000), corpus.StoreOptions{})
	require.NoError(b, err)
	vocab := corpus.BuildVocabulary(store)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Build(context.Background(), store, vocab, 4); err != nil {
			b.Fatal(err)
		}
	}
}
