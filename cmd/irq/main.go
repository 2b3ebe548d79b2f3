// Command irq is an interactive query console over a locally built index.
// Logs go to irq.log so they do not corrupt the screen.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/tui"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	logPath := flag.String("log", "irq.log", "log file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, logFile)

	fmt.Fprintln(os.Stderr, "Building index...")
	engine, err := indexer.Open(context.Background(), cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "index build failed: %v\n", err)
		os.Exit(1)
	}
	build := engine.BuildStats()
	summary := fmt.Sprintf("%d documents, %d terms, %d postings, built in %s",
		build.Documents, build.Terms, build.Postings, build.Duration.Round(time.Millisecond))

	m := tui.New(executor.New(engine), cfg.Search.DefaultTopK, summary)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}
