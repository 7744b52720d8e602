// Package goldentest runs txtar-bundled compiler fixtures concurrently
// and diffs actual disassembly against each fixture's expected output.
// Grounded on parser_test.go's plain-testing-package style for the
// assertion surface, generalized to a fixture-per-file harness using
// golang.org/x/tools/txtar (archive format) and golang.org/x/sync/
// errgroup (one goroutine per fixture, first error wins) since
// neither the teacher nor the rest of the pack has a compiler golden
// test harness to adapt directly.
package goldentest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"
)

// Case is one parsed fixture: a name (the archive's base filename) and
// its "module" and "want" file sections.
type Case struct {
	Name   string
	Module string // the fixture's "module" section, interpreted by the check func (the compiler test looks it up by name)
	Want   string // the fixture's "want" section, the expected output the check func compares against
}

// Load reads every *.txtar fixture under dir.
func Load(dir string) ([]Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading fixture dir: %w", err)
	}
	var cases []Case
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txtar") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		arc := txtar.Parse(data)
		c := Case{Name: e.Name()}
		for _, f := range arc.Files {
			switch f.Name {
			case "module":
				c.Module = string(f.Data)
			case "want":
				c.Want = string(f.Data)
			}
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// Run executes check against every case concurrently, bounded by
// errgroup's default (unlimited, like a plain WaitGroup, but with
// first-error propagation and context cancellation on failure) — each
// check is expected to build, compile, and disassemble its case,
// returning a descriptive error on mismatch.
func Run(ctx context.Context, cases []Case, check func(context.Context, Case) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range cases {
		c := c
		g.Go(func() error {
			if err := check(ctx, c); err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
