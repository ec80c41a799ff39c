// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/peterh/liner"

	"nickandperla.net/calcnb/pkg/calcnb"
)

const historyFile = ".calcnb_history"

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "calcnb REPL (Ctrl+D to exit)")
	fmt.Fprintln(w, "Each line is appended to the notebook. Commands:")
	fmt.Fprintln(w, "  :show     print the notebook with results")
	fmt.Fprintln(w, "  :vars     list variables")
	fmt.Fprintln(w, "  :history  list stored revisions")
	fmt.Fprintln(w, "  :reset    clear the notebook")
	fmt.Fprintln(w)
}

func runREPL(sess *calcnb.Session, stdin io.Reader, stdout io.Writer) error {
	printBanner(stdout)
	if sess.Text() != "" {
		writeText(stdout, sess.Text(), sess.Results(), 0, false)
	}

	if !isTerminal(stdin) {
		return runBasicREPL(sess, stdin, stdout)
	}
	return runLinerREPL(sess, stdout)
}

// runBasicREPL handles non-TTY input (piped input)
func runBasicREPL(sess *calcnb.Session, stdin io.Reader, stdout io.Writer) error {
	reader := bufio.NewReader(stdin)
	for {
		fmt.Fprint(stdout, ">>> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(stdout)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit := handleLine(sess, strings.TrimRight(line, "\r\n"), stdout); quit {
			return nil
		}
	}
}

func runLinerREPL(sess *calcnb.Session, stdout io.Writer) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetTabCompletionStyle(liner.TabPrints)
	ln.SetWordCompleter(func(line string, pos int) (string, []string, string) {
		return complete(sess.Names(), line, pos)
	})

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(">>> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(stdout)
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if quit := handleLine(sess, line, stdout); quit {
			return nil
		}
	}
}

// handleLine runs a REPL command or appends line to the notebook and
// prints its result. It reports whether the REPL should exit.
func handleLine(sess *calcnb.Session, line string, w io.Writer) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ":") {
		return command(sess, trimmed, w)
	}
	if trimmed == "" {
		return false
	}

	idx, err := sess.AppendLine(line)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}
	sess.Flush()
	for _, r := range sess.Results() {
		if r.Line.Index != idx {
			continue
		}
		if m := marker(r, false); m != "" {
			fmt.Fprintln(w, m)
		}
	}
	return false
}

func command(sess *calcnb.Session, cmd string, w io.Writer) bool {
	name, arg, _ := strings.Cut(cmd, " ")
	switch strings.ToLower(name) {
	case ":quit", ":q", ":exit":
		return true
	case ":show":
		writeText(w, sess.Text(), sess.Results(), 0, false)
	case ":vars":
		sc := sess.Scope()
		for _, n := range sc.Names() {
			v, _ := sc.Get(n)
			fmt.Fprintf(w, "%s = %s\n", n, sess.Format(v))
		}
	case ":history":
		limit := 10
		fmt.Sscanf(arg, "%d", &limit)
		entries, err := sess.History(limit)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return false
		}
		if entries == nil {
			fmt.Fprintln(w, "no history (persistence disabled)")
		}
		for _, e := range entries {
			lines := strings.Count(e.Value, "\n") + 1
			fmt.Fprintf(w, "v%d  %s  %d lines\n", e.Version, e.Ts, lines)
		}
	case ":reset":
		if err := sess.SetText(""); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return false
		}
		sess.Flush()
	case ":help":
		printBanner(w)
	default:
		fmt.Fprintf(w, "unknown command %s. Type :help for a list.\n", name)
	}
	return false
}

// complete returns liner word completion for the identifier ending at pos,
// ranked by fuzzy match distance.
func complete(names []string, line string, pos int) (string, []string, string) {
	if pos > len(line) {
		pos = len(line)
	}
	start := pos
	for start > 0 {
		r := rune(line[start-1])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		start--
	}
	word := line[start:pos]
	if word == "" {
		return line[:pos], nil, line[pos:]
	}

	ranks := fuzzy.RankFindFold(word, names)
	sort.Sort(ranks)
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return line[:start], out, line[pos:]
}
