// Package parser validates raw queries and turns them into plans holding the
// normalized terms the engine looks up.
package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
)

type Mode int

const (
	ModeRanked Mode = iota
	ModeBoolean
)

func (m Mode) String() string {
	switch m {
	case ModeBoolean:
		return "boolean"
	default:
		return "ranked"
	}
}

// ParseMode accepts "ranked", "boolean" or "and"; "" means ranked.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ranked", "rank", "cosine":
		return ModeRanked, nil
	case "boolean", "bool", "and":
		return ModeBoolean, nil
	default:
		return 0, apperrors.Invalid("unknown mode %q", s)
	}
}

type QueryPlan struct {
	RawQuery string
	Mode     Mode
	// Terms keeps query order and repeats; ranked retrieval counts them.
	Terms []string
}

// Parse rejects an empty or blank query. A query whose words all normalize
// away is valid and simply has no terms.
func Parse(raw string, mode Mode) (*QueryPlan, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.Invalid("query must not be empty")
	}
	return &QueryPlan{
		RawQuery: raw,
		Mode:     mode,
		Terms:    tokenizer.ProcessQuery(raw),
	}, nil
}

// DistinctTerms returns the terms without repeats, in first-seen order.
func (p *QueryPlan) DistinctTerms() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (p *QueryPlan) String() string {
	return fmt.Sprintf("%s%v", p.Mode, p.Terms)
}
