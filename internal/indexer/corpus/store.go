// Package corpus holds the documents an index is built from. A Store fixes
// document identity: DocIDs are positions in title-sorted order, so the same
// set of titled documents always yields the same IDs.
package corpus

import (
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
)

type DocID int

// Entry is a titled token sequence as produced by a loader.
type Entry struct {
	Title  string
	Tokens []string
}

type Document struct {
	ID     DocID
	Title  string
	Tokens []string
}

type StoreOptions struct {
	// ExpectedDocuments, when non-zero, is the exact document count the
	// corpus must have.
	ExpectedDocuments int
}

// Store is immutable after NewStore returns.
type Store struct {
	docs    []Document
	byTitle map[string]DocID
}

// NewStore validates entries and assigns DocIDs by sorting titles. Every
// violation is reported as a corpus integrity error.
func NewStore(entries []Entry, opts StoreOptions) (*Store, error) {
	if len(entries) == 0 {
		return nil, apperrors.Integrity("corpus is empty")
	}
	if opts.ExpectedDocuments > 0 && len(entries) != opts.ExpectedDocuments {
		return nil, apperrors.Integrity("expected %d documents, found %d", opts.ExpectedDocuments, len(entries))
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Title < sorted[j].Title
	})

	s := &Store{
		docs:    make([]Document, len(sorted)),
		byTitle: make(map[string]DocID, len(sorted)),
	}
	for i, e := range sorted {
		if strings.TrimSpace(e.Title) == "" {
			return nil, apperrors.Integrity("document with empty title")
		}
		if _, dup := s.byTitle[e.Title]; dup {
			return nil, apperrors.Integrity("duplicate title %q", e.Title)
		}
		tokens := make([]string, len(e.Tokens))
		copy(tokens, e.Tokens)
		id := DocID(i)
		s.docs[i] = Document{ID: id, Title: e.Title, Tokens: tokens}
		s.byTitle[e.Title] = id
	}
	return s, nil
}

func (s *Store) Len() int { return len(s.docs) }

// Documents returns the documents in DocID order. Callers must not modify
// the returned slice or its token slices.
func (s *Store) Documents() []Document { return s.docs }

func (s *Store) Document(id DocID) (Document, bool) {
	if id < 0 || int(id) >= len(s.docs) {
		return Document{}, false
	}
	return s.docs[id], true
}

func (s *Store) Title(id DocID) (string, bool) {
	doc, ok := s.Document(id)
	return doc.Title, ok
}

func (s *Store) Lookup(title string) (DocID, bool) {
	id, ok := s.byTitle[title]
	return id, ok
}

// Titles returns a copy of all titles in DocID order.
func (s *Store) Titles() []string {
	out := make([]string, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Title
	}
	return out
}
