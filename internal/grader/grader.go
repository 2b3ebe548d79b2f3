// Package grader scores an engine against a fixed set of queries with known
// answers. The queries file holds one line per part and the solutions file
// holds the matching JSON answers, one line per part.
package grader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
)

type Part int

const (
	PartPostings Part = iota
	PartBoolean
	PartTFIDF
	PartCosine
)

// Parts lists every part in grading order.
var Parts = []Part{PartPostings, PartBoolean, PartTFIDF, PartCosine}

func (p Part) String() string {
	switch p {
	case PartPostings:
		return "Inverted Index Test"
	case PartBoolean:
		return "Boolean Retrieval Test"
	case PartTFIDF:
		return "TF-IDF Test"
	case PartCosine:
		return "Cosine Similarity Test"
	default:
		return fmt.Sprintf("part %d", int(p))
	}
}

// Suite is the parsed content of the queries and solutions files.
type Suite struct {
	Queries   []string
	Solutions []json.RawMessage
}

func LoadSuite(queriesPath, solutionsPath string) (*Suite, error) {
	queries, err := readLines(queriesPath)
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	lines, err := readLines(solutionsPath)
	if err != nil {
		return nil, fmt.Errorf("reading solutions: %w", err)
	}
	s := &Suite{Queries: queries, Solutions: make([]json.RawMessage, len(lines))}
	for i, line := range lines {
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			return nil, fmt.Errorf("solutions line %d is not valid JSON", i+1)
		}
		s.Solutions[i] = json.RawMessage(line)
	}
	return s, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	return lines, sc.Err()
}

type Failure struct {
	Case  int    `json:"case"`
	Input string `json:"input"`
	Got   string `json:"got"`
	Want  string `json:"want"`
}

type Result struct {
	Part     Part      `json:"part"`
	Name     string    `json:"name"`
	Correct  int       `json:"correct"`
	Total    int       `json:"total"`
	Points   int       `json:"points"`
	Failures []Failure `json:"failures,omitempty"`
}

func (r Result) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

func (r Result) Feedback() string {
	return fmt.Sprintf("%d/%d Correct. Accuracy: %f", r.Correct, r.Total, r.Accuracy())
}

// Points is 3 when every case passes, 2 above 75%, 1 for any pass, else 0.
func Points(correct, total int) int {
	switch {
	case correct == total:
		return 3
	case float64(correct) > 0.75*float64(total):
		return 2
	case correct > 0:
		return 1
	default:
		return 0
	}
}

type Grader struct {
	exec    *executor.Executor
	epsilon float64
	logger  *slog.Logger
}

func New(exec *executor.Executor, epsilon float64) *Grader {
	return &Grader{
		exec:    exec,
		epsilon: epsilon,
		logger:  slog.Default().With("component", "grader"),
	}
}

// RunAll grades every part in order and stops at the first malformed part.
func (g *Grader) RunAll(ctx context.Context, s *Suite) ([]Result, error) {
	results := make([]Result, 0, len(Parts))
	for _, p := range Parts {
		r, err := g.Run(ctx, s, p)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (g *Grader) Run(ctx context.Context, s *Suite, part Part) (Result, error) {
	if int(part) < 0 || int(part) >= len(s.Queries) || int(part) >= len(s.Solutions) {
		return Result{}, fmt.Errorf("no queries or solutions for %s", part)
	}
	if s.Queries[int(part)] == "" {
		return Result{}, fmt.Errorf("%s has no cases", part)
	}
	res := Result{Part: part, Name: part.String()}
	var err error
	switch part {
	case PartPostings:
		err = g.gradePostings(s.Queries[part], s.Solutions[part], &res)
	case PartBoolean:
		err = g.gradeBoolean(ctx, s.Queries[part], s.Solutions[part], &res)
	case PartTFIDF:
		err = g.gradeTFIDF(s.Queries[part], s.Solutions[part], &res)
	case PartCosine:
		err = g.gradeCosine(ctx, s.Queries[part], s.Solutions[part], &res)
	default:
		err = fmt.Errorf("unknown part %d", int(part))
	}
	if err != nil {
		return Result{}, fmt.Errorf("grading %s: %w", part, err)
	}
	res.Points = Points(res.Correct, res.Total)
	g.logger.Info("part graded",
		"part", res.Name,
		"correct", res.Correct,
		"total", res.Total,
		"points", res.Points,
	)
	return res, nil
}

func (g *Grader) gradePostings(line string, soln json.RawMessage, res *Result) error {
	words := strings.Split(line, ", ")
	var want [][]corpus.DocID
	if err := decodeCases(soln, len(words), &want); err != nil {
		return err
	}
	engine := g.exec.Engine()
	for i, w := range words {
		got := engine.PostingUnstemmed(w)
		res.record(i, w, sameSet(got, want[i]), formatIDs(got), formatIDs(want[i]))
	}
	return nil
}

func (g *Grader) gradeBoolean(ctx context.Context, line string, soln json.RawMessage, res *Result) error {
	queries := strings.Split(line, ", ")
	var want [][]corpus.DocID
	if err := decodeCases(soln, len(queries), &want); err != nil {
		return err
	}
	for i, q := range queries {
		var got []corpus.DocID
		sr, err := g.exec.Boolean(ctx, q)
		if err != nil {
			res.record(i, q, false, "error: "+err.Error(), formatIDs(want[i]))
			continue
		}
		for _, d := range sr.Documents {
			got = append(got, d.DocID)
		}
		res.record(i, q, sameSet(got, want[i]), formatIDs(got), formatIDs(want[i]))
	}
	return nil
}

func (g *Grader) gradeTFIDF(line string, soln json.RawMessage, res *Result) error {
	pairs := strings.Split(line, "; ")
	var raw []json.RawMessage
	if err := decodeCases(soln, len(pairs), &raw); err != nil {
		return err
	}
	engine := g.exec.Engine()
	for i, p := range pairs {
		word, docStr, ok := strings.Cut(p, ", ")
		if !ok {
			return fmt.Errorf("case %d: expected \"word, doc\", got %q", i, p)
		}
		doc, err := strconv.Atoi(strings.TrimSpace(docStr))
		if err != nil {
			return fmt.Errorf("case %d: bad document id %q", i, docStr)
		}
		want, err := parseFloat(raw[i])
		if err != nil {
			return fmt.Errorf("case %d: %w", i, err)
		}
		got := engine.WeightUnstemmed(word, corpus.DocID(doc))
		res.record(i, p, g.within(got, want), formatFloat(got), formatFloat(want))
	}
	return nil
}

func (g *Grader) gradeCosine(ctx context.Context, line string, soln json.RawMessage, res *Result) error {
	queries := strings.Split(line, ", ")
	var raw [][]json.RawMessage
	if err := decodeCases(soln, len(queries), &raw); err != nil {
		return err
	}
	for i, q := range queries {
		if len(raw[i]) != 2 {
			return fmt.Errorf("case %d: expected [doc, score], got %d values", i, len(raw[i]))
		}
		var wantDoc corpus.DocID
		if err := json.Unmarshal(raw[i][0], &wantDoc); err != nil {
			return fmt.Errorf("case %d: bad document id: %w", i, err)
		}
		wantScore, err := parseFloat(raw[i][1])
		if err != nil {
			return fmt.Errorf("case %d: %w", i, err)
		}
		want := fmt.Sprintf("%d %s", wantDoc, formatFloat(wantScore))

		sr, err := g.exec.Ranked(ctx, q, 1)
		if err != nil || len(sr.Results) == 0 {
			got := "no results"
			if err != nil {
				got = "error: " + err.Error()
			}
			res.record(i, q, false, got, want)
			continue
		}
		top := sr.Results[0]
		ok := top.DocID == wantDoc && g.within(top.Score, wantScore)
		res.record(i, q, ok, fmt.Sprintf("%d %s", top.DocID, formatFloat(top.Score)), want)
	}
	return nil
}

func (r *Result) record(i int, input string, ok bool, got, want string) {
	r.Total++
	if ok {
		r.Correct++
		return
	}
	r.Failures = append(r.Failures, Failure{Case: i, Input: input, Got: got, Want: want})
}

func (g *Grader) within(got, want float64) bool {
	return got >= want-g.epsilon && got <= want+g.epsilon
}

func decodeCases[T any](soln json.RawMessage, n int, out *[]T) error {
	if len(soln) == 0 {
		return fmt.Errorf("missing solution line")
	}
	if err := json.Unmarshal(soln, out); err != nil {
		return fmt.Errorf("decoding solutions: %w", err)
	}
	if len(*out) < n {
		return fmt.Errorf("%d cases but only %d solutions", n, len(*out))
	}
	return nil
}

// parseFloat accepts a JSON number or a numeric string.
func parseFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", s)
	}
	return f, nil
}

func sameSet(a, b []corpus.DocID) bool {
	set := func(ids []corpus.DocID) map[corpus.DocID]struct{} {
		m := make(map[corpus.DocID]struct{}, len(ids))
		for _, id := range ids {
			m[id] = struct{}{}
		}
		return m
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for id := range sa {
		if _, ok := sb[id]; !ok {
			return false
		}
	}
	return true
}

func formatIDs(ids []corpus.DocID) string {
	sorted := append([]corpus.DocID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return fmt.Sprint(sorted)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
