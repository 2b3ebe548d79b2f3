package corpus

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	rawDir     = "raw"
	stemmedDir = "stemmed"
)

var rawTitlePattern = regexp.MustCompile(`^(.*) \d+\.txt$`)

type LoadOptions struct {
	// WriteCache stores normalized documents under <dir>/stemmed so later
	// loads skip normalization.
	WriteCache bool
	// Workers bounds concurrent file reads; zero means GOMAXPROCS.
	Workers int
}

// LoadDir reads a corpus directory. When <dir>/stemmed exists its files are
// taken as already normalized; otherwise every <dir>/raw/<title> <n>.txt file
// is normalized with the tokenizer.
func LoadDir(ctx context.Context, dir string, opts LoadOptions) ([]Entry, error) {
	logger := slog.Default().With("component", "corpus-loader", "dir", dir)

	cached := filepath.Join(dir, stemmedDir)
	if info, err := os.Stat(cached); err == nil && info.IsDir() {
		entries, err := loadFiles(ctx, cached, opts.Workers, stemmedTitle, strings.Fields)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded normalized cache", "documents", len(entries))
		return entries, nil
	}

	entries, err := loadFiles(ctx, filepath.Join(dir, rawDir), opts.Workers, rawTitle, tokenizer.Normalize)
	if err != nil {
		return nil, err
	}
	logger.Info("normalized raw documents", "documents", len(entries))

	if opts.WriteCache {
		if err := writeCache(dir, entries); err != nil {
			return nil, err
		}
		logger.Info("wrote normalized cache", "path", cached)
	}
	return entries, nil
}

func rawTitle(name string) (string, error) {
	m := rawTitlePattern.FindStringSubmatch(name)
	if m == nil {
		return "", apperrors.Integrity("file %q does not match \"<title> <n>.txt\"", name)
	}
	return m[1], nil
}

func stemmedTitle(name string) (string, error) {
	return strings.TrimSuffix(name, ".txt"), nil
}

func loadFiles(
	ctx context.Context,
	dir string,
	workers int,
	titleOf func(string) (string, error),
	split func(string) []string,
) ([]Entry, error) {
	names, err := listTextFiles(dir)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries := make([]Entry, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			title, err := titleOf(name)
			if err != nil {
				return err
			}
			tokens, err := readTokens(filepath.Join(dir, name), split)
			if err != nil {
				return err
			}
			entries[i] = Entry{Title: title, Tokens: tokens}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// listTextFiles returns the visible .txt files of dir in name order.
func listTextFiles(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func readTokens(path string, split func(string) []string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var tokens []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		tokens = append(tokens, split(sc.Text())...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return tokens, nil
}

// writeCache writes every entry into a temporary sibling directory and
// renames it to <dir>/stemmed, so a crash never leaves a partial cache.
func writeCache(dir string, entries []Entry) error {
	tmp, err := os.MkdirTemp(dir, ".stemmed-")
	if err != nil {
		return fmt.Errorf("creating cache staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, e := range entries {
		path := filepath.Join(tmp, e.Title+".txt")
		if err := os.WriteFile(path, []byte(strings.Join(e.Tokens, " ")+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing cache file %s: %w", path, err)
		}
	}
	if err := os.Rename(tmp, filepath.Join(dir, stemmedDir)); err != nil {
		return fmt.Errorf("publishing cache directory: %w", err)
	}
	return nil
}
