package ranker

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/weighting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catDogEngine(t testing.TB) *indexer.Engine {
	t.Helper()
	store, err := corpus.NewStore([]corpus.Entry{
		{Title: "a", Tokens: []string{"the", "cat", "sat"}},
		{Title: "b", Tokens: []string{"the", "dog", "sat"}},
		{Title: "c", Tokens: []string{"cat", "and", "dog"}},
	}, corpus.StoreOptions{})
	require.NoError(t, err)
	e, err := indexer.NewEngine(context.Background(), store, indexer.Options{Workers: 1})
	require.NoError(t, err)
	return e
}

func TestRankCatDog(t *testing.T) {
	e := catDogEngine(t)
	got := Rank(e.QueryVector([]string{"cat", "dog"}), e.DocumentVectors(), 10)

	require.Len(t, got, 3)
	assert.Equal(t, []corpus.DocID{2, 0, 1}, []corpus.DocID{got[0].DocID, got[1].DocID, got[2].DocID})
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Equal(t, got[1].Score, got[2].Score)
	assert.InDelta(t, 1/math.Sqrt(6), got[1].Score, 1e-9)
	assert.InDelta(t, 0.4627, got[0].Score, 1e-4)
	_, matches := RankWithMatches(e.QueryVector([]string{"cat", "dog"}), e.DocumentVectors(), 1)
	assert.Equal(t, 3, matches)
}

func TestRankIdenticalDocumentScoresOne(t *testing.T) {
	e := catDogEngine(t)
	got := Rank(e.QueryVector([]string{"cat", "and", "dog"}), e.DocumentVectors(), 1)
	require.Len(t, got, 1)
	assert.Equal(t, corpus.DocID(2), got[0].DocID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-12)
	assert.LessOrEqual(t, got[0].Score, 1.0)
}

func TestRankLengths(t *testing.T) {
	e := catDogEngine(t)
	q := e.QueryVector([]string{"dog"})
	for k, want := range map[int]int{-1: 0, 0: 0, 1: 1, 2: 2, 3: 3, 50: 3} {
		assert.Len(t, Rank(q, e.DocumentVectors(), k), want, "k=%d", k)
	}
}

func TestRankHugeKReturnsWholeCorpus(t *testing.T) {
	e := catDogEngine(t)
	q := e.QueryVector([]string{"cat"})
	var got []ScoredDoc
	require.NotPanics(t, func() { got = Rank(q, e.DocumentVectors(), math.MaxInt) })
	require.Len(t, got, 3)
	assert.Equal(t, corpus.DocID(0), got[0].DocID)

	got, matches := RankWithMatches(q, e.DocumentVectors(), 1<<40)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, matches)
}

func TestRankUnknownQueryReturnsZerosInDocOrder(t *testing.T) {
	e := catDogEngine(t)
	got := Rank(e.QueryVector([]string{"elephant"}), e.DocumentVectors(), 2)
	assert.Equal(t, []ScoredDoc{{DocID: 0, Score: 0}, {DocID: 1, Score: 0}}, got)
	_, matches := RankWithMatches(e.QueryVector([]string{"and"}), e.DocumentVectors(), 0)
	assert.Equal(t, 1, matches)
}

func TestCosineZeroNorms(t *testing.T) {
	v := weighting.Vector{Entries: []weighting.Entry{{Term: 0, Weight: 1}}, Norm: 1}
	assert.Zero(t, Cosine(weighting.Vector{}, v))
	assert.Zero(t, Cosine(v, weighting.Vector{}))
	assert.Equal(t, 1.0, Cosine(v, v))
}

func randomVectors(r *rand.Rand, n, terms int) []weighting.Vector {
	docs := make([]weighting.Vector, n)
	for i := range docs {
		var entries []weighting.Entry
		for t := 0; t < terms; t++ {
			if r.IntN(3) == 0 {
				// Coarse weights force score ties.
				entries = append(entries, weighting.Entry{Term: corpus.TermID(t), Weight: float64(1 + r.IntN(2))})
			}
		}
		docs[i] = weighting.Vector{Entries: entries, Norm: weighting.Norm(entries)}
	}
	return docs
}

func TestRankMatchesFullSortAndIsReproducible(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 8))
	docs := randomVectors(r, 300, 6)
	q := randomVectors(r, 1, 6)[0]

	all := make([]ScoredDoc, len(docs))
	for i, d := range docs {
		all[i] = ScoredDoc{DocID: corpus.DocID(i), Score: Cosine(q, d)}
	}
	sort.Slice(all, func(i, j int) bool { return better(all[i], all[j]) })

	for _, k := range []int{1, 7, 50, 300, 1000} {
		got := Rank(q, docs, k)
		want := all[:min(k, len(all))]
		assert.Equal(t, want, got, "k=%d", k)
		assert.Equal(t, got, Rank(q, docs, k))
		for _, s := range got {
			assert.GreaterOrEqual(t, s.Score, 0.0)
			assert.LessOrEqual(t, s.Score, 1.0)
		}
	}
}

func BenchmarkRank(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 1))
	docs := randomVectors(r, 5000, 40)
	q := randomVectors(r, 1, 40)[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(q, docs, 10)
	}
}
