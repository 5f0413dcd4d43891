package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-html2pdf/internal/config"
)

// serverFlags holds the command line overrides. Only flags the user actually
// set are applied on top of the file and environment layers.
type serverFlags struct {
	config  string
	envFile string

	addr      string
	uploadDir string
	outputDir string

	renderTimeout     time.Duration
	navigationTimeout time.Duration
	settleDelay       time.Duration
	pageFormat        string
	margin            float64
	maxConcurrent     int

	browserBin string
	noSandbox  bool

	logLevel  string
	logFormat string

	printConfig bool
	version     bool

	fs *flag.FlagSet
}

// newFlagSet declares the flags shared by serve and doctor.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *serverFlags) {
	f := &serverFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.StringVarP(&f.config, "config", "c", "", "config file path or name (also HTML2PDF_CONFIG)")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file to load (default .env if present)")

	fs.StringVar(&f.addr, "addr", "", "listen address (default :3000)")
	fs.StringVar(&f.uploadDir, "upload-dir", "", "staging directory for uploads")
	fs.StringVar(&f.outputDir, "output-dir", "", "directory for generated PDFs")

	fs.DurationVar(&f.renderTimeout, "render-timeout", 0, "bound on loading and printing a document")
	fs.DurationVar(&f.navigationTimeout, "navigation-timeout", 0, "bound on loading a remote URL")
	fs.DurationVar(&f.settleDelay, "settle-delay", 0, "pause after navigation for late resources")
	fs.StringVar(&f.pageFormat, "page-format", "", "paper format: a4, letter, legal")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches (0-3)")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", 0, "simultaneous browsers (0 = unlimited, -1 = auto)")

	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Chromium binary (default auto-detect)")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers)")

	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "json or console")

	f.fs = fs
	return fs, f
}

// parseServeFlags parses the serve command line.
// flag.ErrHelp is returned unwrapped so the caller can exit cleanly.
func parseServeFlags(args []string, stderr io.Writer) (*serverFlags, error) {
	fs, f := newFlagSet("html2pdf-server", stderr)
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config as YAML and exit")
	fs.BoolVarP(&f.version, "version", "v", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return f, nil
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(f *serverFlags, cfg *config.Config) {
	changed := f.fs.Changed

	if changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if changed("upload-dir") {
		cfg.Storage.UploadDir = f.uploadDir
	}
	if changed("output-dir") {
		cfg.Storage.OutputDir = f.outputDir
	}
	if changed("render-timeout") {
		cfg.Render.Timeout = f.renderTimeout
	}
	if changed("navigation-timeout") {
		cfg.Render.NavigationTimeout = f.navigationTimeout
	}
	if changed("settle-delay") {
		cfg.Render.SettleDelay = f.settleDelay
	}
	if changed("page-format") {
		cfg.Render.PageFormat = strings.ToLower(f.pageFormat)
	}
	if changed("margin") {
		cfg.Render.Margin = f.margin
	}
	if changed("max-concurrent") {
		cfg.Render.MaxConcurrent = f.maxConcurrent
	}
	if changed("browser-bin") {
		cfg.Browser.Bin = f.browserBin
	}
	if changed("no-sandbox") {
		cfg.Browser.NoSandbox = f.noSandbox
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
}
