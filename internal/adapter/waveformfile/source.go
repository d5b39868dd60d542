package waveformfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirSource lists decoded-record files in a directory that have not been
// committed yet. It implements pipeline.BatchSource. Committed names are
// appended to an optional ledger file so a restart does not reprocess them.
type DirSource struct {
	dir    string
	ledger string

	mu   sync.Mutex
	done map[string]struct{}
}

// NewDirSource creates a source over dir. ledger may be empty, in which case
// committed files are only remembered for the life of the process.
func NewDirSource(dir, ledger string) (*DirSource, error) {
	s := &DirSource{dir: dir, ledger: ledger, done: make(map[string]struct{})}
	if ledger == "" {
		return s, nil
	}
	f, err := os.Open(ledger)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			s.done[name] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return s, nil
}

// ExtractBatch returns the uncommitted *.json files in name order. Hidden
// files, which include in-progress atomic writes, are skipped.
func (s *DirSource) ExtractBatch(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		if _, ok := s.done[name]; ok {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Commit marks paths as processed.
func (s *DirSource) Commit(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if _, ok := s.done[name]; ok {
			continue
		}
		s.done[name] = struct{}{}
		names = append(names, name)
	}
	if s.ledger == "" || len(names) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.ledger, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if _, err := f.WriteString(strings.Join(names, "\n") + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	return f.Close()
}
