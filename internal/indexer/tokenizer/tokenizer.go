// Package tokenizer turns raw text into index terms. Text is lower-cased,
// split on whitespace, stripped of every character outside [a-z0-9], and each
// surviving word is reduced with the Snowball English stemmer. Stop words
// are kept: the boolean and ranked engines both need to see them.
package tokenizer

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// Normalize returns the terms of text in order, repeats included.
func Normalize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if term := stemClean(clean(word)); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// StemWord normalizes a single raw word. It returns "" when nothing
// alphanumeric remains, and the first term when word contains whitespace.
func StemWord(word string) string {
	terms := Normalize(word)
	if len(terms) == 0 {
		return ""
	}
	return terms[0]
}

// ProcessQuery normalizes a raw query exactly as documents are normalized.
func ProcessQuery(raw string) []string {
	return Normalize(raw)
}

func clean(word string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, word)
}

func stemClean(word string) string {
	if word == "" {
		return ""
	}
	return english.Stem(word, true)
}
