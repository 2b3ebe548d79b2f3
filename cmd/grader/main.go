// Command grader builds the index and scores it against the query and
// solution files named in the grader config section.
//
// Usage:
//
//	go run ./cmd/grader [-config configs/development.yaml] [-part 2] [-json]
//
// Terms are stemmed with the Snowball English (Porter2) stemmer. Solution
// files produced with the classic Porter stemmer disagree on some stems, so
// regenerate them with this build before reading a postings or tf-idf
// mismatch as an index bug.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/grader"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/metrics"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: grader [flags]\n\nSolutions must be generated with the Snowball English stemmer used by this build.\n\n")
		flag.PrintDefaults()
	}
	part := flag.Int("part", -1, "grade a single part (0-3); all parts when negative")
	asJSON := flag.Bool("json", false, "print results as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, "text", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite, err := grader.LoadSuite(cfg.Grader.QueriesPath, cfg.Grader.SolutionsPath)
	if err != nil {
		slog.Error("failed to load grading suite", "error", err)
		os.Exit(1)
	}
	engine, err := indexer.Open(ctx, cfg, metrics.New())
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	g := grader.New(executor.New(engine), cfg.Grader.Epsilon)

	var results []grader.Result
	if *part >= 0 {
		r, err := g.Run(ctx, suite, grader.Part(*part))
		if err != nil {
			slog.Error("grading failed", "part", *part, "error", err)
			os.Exit(1)
		}
		results = []grader.Result{r}
	} else {
		results, err = g.RunAll(ctx, suite)
		if err != nil {
			slog.Error("grading failed", "error", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			slog.Error("failed to write results", "error", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("===== Running tests =====")
	total := 0
	for _, r := range results {
		total += r.Points
		fmt.Println(r.Name)
		for _, f := range r.Failures {
			fmt.Printf("    case %d %q: got %s, want %s\n", f.Case, f.Input, f.Got, f.Want)
		}
		fmt.Printf("    Score: %d Feedback: %s\n", r.Points, r.Feedback())
	}
	fmt.Printf("Total: %d/%d\n", total, 3*len(results))
}
