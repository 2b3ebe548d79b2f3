package main

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadQueriesSkipsTFIDFLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "ayesha, she\nshe who, zulu\nking, 3; queen, 7\nzulu, ivory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := loadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ayesha", "she", "she who", "zulu", "ivory"}, got)
}

func TestSearchURL(t *testing.T) {
	cfg := Config{BaseURL: "http://localhost:8080", TopK: 5}
	u, err := url.Parse(searchURL(cfg, "ranked", "she who"))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/search", u.Path)
	assert.Equal(t, "she who", u.Query().Get("q"))
	assert.Equal(t, "5", u.Query().Get("k"))

	u, err = url.Parse(searchURL(cfg, "boolean", "she"))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("k"))
}

func TestStatsAndPercentile(t *testing.T) {
	s := NewStats()
	s.Record("ranked", time.Millisecond, 200, nil)
	s.Record("ranked", 3*time.Millisecond, 400, nil)
	s.Record("boolean", 0, 0, errors.New("refused"))

	assert.Equal(t, int64(1), s.modes["ranked"].errors)
	assert.Len(t, s.modes["ranked"].latencies, 2)
	assert.Equal(t, int64(1), s.modes["boolean"].errors)

	sorted := []time.Duration{1, 2, 3, 4}
	assert.Equal(t, time.Duration(2), percentile(sorted, 50))
	assert.Equal(t, time.Duration(4), percentile(sorted, 99))
	assert.Zero(t, percentile(nil, 50))
}
