package parser

import (
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	plan, err := Parse("Cats and DOGS, dogs!", ModeBoolean)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "and", "dog", "dog"}, plan.Terms)
	assert.Equal(t, []string{"cat", "and", "dog"}, plan.DistinctTerms())
	assert.Equal(t, ModeBoolean, plan.Mode)
	assert.Equal(t, "boolean[cat and dog dog]", plan.String())
}

func TestParseRejectsBlank(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := Parse(raw, ModeRanked)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestParsePunctuationOnly(t *testing.T) {
	plan, err := Parse("?!", ModeRanked)
	require.NoError(t, err)
	assert.Empty(t, plan.Terms)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeRanked},
		{"ranked", ModeRanked},
		{"Boolean", ModeBoolean},
		{"and", ModeBoolean},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseMode("phrase")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, "ranked", ModeRanked.String())
}
