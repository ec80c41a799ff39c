// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command calcnb is the calculator notebook CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/viant/afs"
	"golang.org/x/term"

	"nickandperla.net/calcnb/internal/config"
	"nickandperla.net/calcnb/internal/logging"
	"nickandperla.net/calcnb/pkg/calcnb"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	evalStr   string
	file      string
	cfgURL    string
	dbPath    string
	noDB      bool
	format    string
	precision int
	debounce  time.Duration
	logLevel  string
	noPrelude bool
	repl      bool
	tui       bool
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("calcnb", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.evalStr, "e", "", "Evaluate a notebook given as a string")
	fs.StringVar(&o.file, "f", "", "Evaluate a notebook file (path or URL)")
	fs.StringVar(&o.cfgURL, "config", "", "YAML config file (path or URL)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database path (default from config: calcnb.db)")
	fs.BoolVar(&o.noDB, "no-db", false, "Disable persistence")
	fs.StringVar(&o.format, "format", "text", "Batch output format: text or yaml")
	fs.IntVar(&o.precision, "precision", 0, "Significant digits shown in results")
	fs.DurationVar(&o.debounce, "debounce", 0, "Quiet interval before recomputing")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: error, warn, info or debug")
	fs.BoolVar(&o.noPrelude, "no-prelude", false, "Start from an empty scope")
	fs.BoolVar(&o.repl, "repl", false, "Start the line REPL")
	fs.BoolVar(&o.tui, "tui", false, "Start the terminal editor")

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if o.format != "text" && o.format != "yaml" {
		return o, nil, fmt.Errorf("unknown format: %s (use text or yaml)", o.format)
	}
	return o, set, nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(ctx context.Context, o options, set map[string]bool) (config.Config, error) {
	cfg := config.Default()
	if o.cfgURL != "" {
		var err error
		if cfg, err = config.Load(ctx, o.cfgURL); err != nil {
			return cfg, err
		}
	}
	if set["db"] {
		cfg.DB = o.dbPath
	}
	if set["precision"] {
		cfg.Precision = o.precision
	}
	if set["debounce"] {
		cfg.Debounce = o.debounce
	}
	if set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	return cfg, cfg.Validate()
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, set, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	cfg, err := loadConfig(ctx, o, set)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := logging.New(cfg.Level(), stderr)

	interactive := o.repl || o.tui
	var input string
	switch {
	case interactive:
	case o.file != "":
		data, err := afs.New().DownloadWithURL(ctx, o.file)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading file: %v\n", err)
			return 1
		}
		input = string(data)
	case o.evalStr != "":
		input = o.evalStr
	case !isTerminal(stdin):
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading stdin: %v\n", err)
			return 1
		}
		input = string(data)
	default:
		interactive = true
	}

	opts := []calcnb.Option{
		calcnb.WithDebounce(cfg.Debounce),
		calcnb.WithPrecision(cfg.Precision),
		calcnb.WithLineTimeout(cfg.LineTimeout),
		calcnb.WithDocumentKey(cfg.DocumentKey),
		calcnb.WithLogger(log),
	}
	if o.noPrelude {
		opts = append(opts, calcnb.WithNoPrelude())
	}
	// Batch runs only touch the database when it was asked for explicitly,
	// so evaluating a file never overwrites the stored notebook.
	persist := !o.noDB && cfg.DB != "" && (interactive || set["db"])
	if persist {
		opts = append(opts, calcnb.WithSQLiteStore(cfg.DB))
	}
	if !interactive {
		opts = append(opts, calcnb.WithInitialText(input))
	}

	sess, err := calcnb.New(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer sess.Close()

	if interactive {
		if o.tui {
			err = runTUI(sess)
		} else {
			err = runREPL(sess, stdin, stdout)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	results := sess.Results()
	if o.format == "yaml" {
		err = writeYAML(stdout, results)
	} else {
		width, color := outputInfo(stdout)
		err = writeText(stdout, sess.Text(), results, width, color)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// outputInfo reports the terminal width of w and whether to use color.
func outputInfo(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80, true
	}
	return width, true
}
