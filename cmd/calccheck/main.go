// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// calccheck: Syntax checker for .calc notebook files.
//
// Every non-blank line is parsed on its own; with --eval the notebook is
// also evaluated and lines that fail to evaluate are reported. A file
// containing a "# EXPECTED: Error" line is expected to fail.
//
// Usage:
//
//	calccheck [--eval] FILE [FILE...]
//	calccheck [--eval] --dir DIR
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"

	"nickandperla.net/calcnb/internal/eval"
	"nickandperla.net/calcnb/internal/notebook"
	"nickandperla.net/calcnb/internal/stdlib"
)

const expectedMarker = "# EXPECTED:"

type checkResult struct {
	path         string
	errors       []string
	expectsError bool
}

type checker struct {
	fs       afs.Service
	rt       *eval.Runtime
	evaluate bool
}

func (c *checker) checkFile(ctx context.Context, path string) checkResult {
	content, err := c.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return checkResult{
			path:   path,
			errors: []string{fmt.Sprintf("read error: %v", err)},
		}
	}
	res := checkResult{path: path}

	lines := notebook.Split(string(content))
	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line.Text, expectedMarker); ok {
			rest = strings.TrimSpace(rest)
			if strings.HasPrefix(rest, "Error") || strings.HasPrefix(rest, "SyntaxError") {
				res.expectsError = true
			}
		}
	}
	if !c.evaluate {
		for _, line := range lines {
			if line.Blank() {
				continue
			}
			if _, err := c.rt.Parse(line.Text); err != nil {
				res.errors = append(res.errors, fmt.Sprintf("line %d: %v", line.Index+1, err))
			}
		}
		return res
	}

	prelude := notebook.NewEvaluator(c.rt)
	prelude.Evaluate(ctx, stdlib.Prelude)
	ev := notebook.NewEvaluator(c.rt, notebook.WithInitialScope(prelude.Scope()))
	results, _ := ev.EvaluateLines(ctx, lines)
	for _, r := range results {
		if r.Failed() {
			res.errors = append(res.errors, fmt.Sprintf("line %d: %s", r.Line.Index+1, r.Text))
		}
	}
	return res
}

func findCalcFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".calc") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: calccheck [--eval] [--dir DIR] FILE [FILE...]")
		return 1
	}

	c := &checker{fs: afs.New(), rt: eval.New()}
	var files []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--eval":
			c.evaluate = true
		case "--dir":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "Error: --dir requires an argument")
				return 1
			}
			i++
			found, err := findCalcFiles(args[i])
			if err != nil {
				fmt.Fprintf(stderr, "Error scanning directory %s: %v\n", args[i], err)
				return 1
			}
			files = append(files, found...)
		default:
			files = append(files, args[i])
		}
	}

	if len(files) == 0 {
		fmt.Fprintln(stderr, "No .calc files found")
		return 1
	}

	ctx := context.Background()
	passed, failed, expectedErr := 0, 0, 0
	for _, f := range files {
		result := c.checkFile(ctx, f)
		hasErrors := len(result.errors) > 0

		switch {
		case result.expectsError:
			expectedErr++
			if hasErrors {
				fmt.Fprintf(stdout, "OK   %s (expected error, found %d)\n", f, len(result.errors))
			} else {
				fmt.Fprintf(stdout, "OK   %s (expected error, none found)\n", f)
			}
		case hasErrors:
			failed++
			fmt.Fprintf(stdout, "FAIL %s\n", f)
			for _, e := range result.errors {
				fmt.Fprintf(stdout, "     %s\n", e)
			}
		default:
			passed++
			fmt.Fprintf(stdout, "OK   %s\n", f)
		}
	}

	fmt.Fprintf(stdout, "\n--- Summary ---\n")
	fmt.Fprintf(stdout, "Passed: %d  Failed: %d  Expected errors: %d  Total: %d\n",
		passed, failed, expectedErr, len(files))
	if failed > 0 {
		return 1
	}
	return 0
}
