package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \t\n ", []string{}},
		{"punctuation stripped", "Cat, sat!", []string{"cat", "sat"}},
		{"punctuation only word dropped", "the -- dog", []string{"the", "dog"}},
		{"inner punctuation joins", "don't", []string{"dont"}},
		{"digits kept", "Chapter 12", []string{"chapter", "12"}},
		{"repeats kept", "dog dog", []string{"dog", "dog"}},
		{"stemmed", "running dogs", []string{"run", "dog"}},
		{"non ascii stripped", "café", []string{"caf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStemWord(t *testing.T) {
	assert.Equal(t, "dog", StemWord("Dogs."))
	assert.Equal(t, "", StemWord("!!!"))
	assert.Equal(t, StemWord("hunting"), Normalize("HUNTING")[0])
}

func TestProcessQueryMatchesDocumentSide(t *testing.T) {
	doc := Normalize("The hunters were hunting in Africa.")
	query := ProcessQuery("hunting africa")
	assert.Contains(t, doc, query[0])
	assert.Contains(t, doc, query[1])
}

func BenchmarkNormalize(b *testing.B) {
	text := "It was the custom of the people of that country to hunt the elephant, " +
		"and the hunters returned with ivory in the autumn of every year."
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Normalize(text)
	}
}

// Porter2 special forms; the classic Porter stemmer gives "dy", "ly", "ty".
func TestStemWordPorter2SpecialForms(t *testing.T) {
	for word, want := range map[string]string{"dying": "die", "lying": "lie", "tying": "tie"} {
		assert.Equal(t, want, StemWord(word), word)
	}
}
