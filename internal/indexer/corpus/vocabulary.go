package corpus

import "sort"

// TermID indexes dense per-term tables. IDs follow lexicographic term order.
type TermID int

type Vocabulary struct {
	terms []string
	ids   map[string]TermID
}

// BuildVocabulary collects the distinct terms of every document in s.
func BuildVocabulary(s *Store) *Vocabulary {
	seen := make(map[string]struct{})
	for _, doc := range s.docs {
		for _, tok := range doc.Tokens {
			seen[tok] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	ids := make(map[string]TermID, len(terms))
	for i, t := range terms {
		ids[t] = TermID(i)
	}
	return &Vocabulary{terms: terms, ids: ids}
}

func (v *Vocabulary) ID(term string) (TermID, bool) {
	id, ok := v.ids[term]
	return id, ok
}

// Term returns the term for id, or "" when id is out of range.
func (v *Vocabulary) Term(id TermID) string {
	if id < 0 || int(id) >= len(v.terms) {
		return ""
	}
	return v.terms[id]
}

func (v *Vocabulary) Len() int { return len(v.terms) }

func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}
