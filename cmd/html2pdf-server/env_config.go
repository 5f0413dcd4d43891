package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/alnah/go-html2pdf/internal/config"
)

// envPrefix marks the server's own environment variables.
const envPrefix = "HTML2PDF_"

// Variables read outside the binding table.
const (
	envConfigPath = "HTML2PDF_CONFIG"
	envContainer  = "HTML2PDF_CONTAINER"
)

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	name  string
	apply func(cfg *config.Config, v string) error
}

// rodBindings are go-rod's own variables, applied before HTML2PDF_* so the
// server's variables win when both are set.
var rodBindings = []envBinding{
	{"ROD_BROWSER_BIN", func(c *config.Config, v string) error { c.Browser.Bin = v; return nil }},
	{"ROD_NO_SANDBOX", func(c *config.Config, v string) error { return setBool(&c.Browser.NoSandbox, v) }},
}

var envBindings = []envBinding{
	// Server
	{"HTML2PDF_ADDR", func(c *config.Config, v string) error { c.Server.Addr = v; return nil }},
	{"HTML2PDF_MAX_UPLOAD_BYTES", func(c *config.Config, v string) error { return setInt64(&c.Server.MaxUploadBytes, v) }},
	// Storage
	{"HTML2PDF_UPLOAD_DIR", func(c *config.Config, v string) error { c.Storage.UploadDir = v; return nil }},
	{"HTML2PDF_OUTPUT_DIR", func(c *config.Config, v string) error { c.Storage.OutputDir = v; return nil }},
	// Render
	{"HTML2PDF_RENDER_TIMEOUT", func(c *config.Config, v string) error { return setDuration(&c.Render.Timeout, v) }},
	{"HTML2PDF_NAVIGATION_TIMEOUT", func(c *config.Config, v string) error { return setDuration(&c.Render.NavigationTimeout, v) }},
	{"HTML2PDF_SETTLE_DELAY", func(c *config.Config, v string) error { return setDuration(&c.Render.SettleDelay, v) }},
	{"HTML2PDF_PAGE_FORMAT", func(c *config.Config, v string) error { c.Render.PageFormat = strings.ToLower(v); return nil }},
	{"HTML2PDF_MARGIN", func(c *config.Config, v string) error { return setFloat(&c.Render.Margin, v) }},
	{"HTML2PDF_MAX_CONCURRENT", func(c *config.Config, v string) error { return setInt(&c.Render.MaxConcurrent, v) }},
	{"HTML2PDF_HIDE_SELECTORS", func(c *config.Config, v string) error { c.Render.HideSelectors = splitList(v); return nil }},
	// Browser
	{"HTML2PDF_BROWSER_BIN", func(c *config.Config, v string) error { c.Browser.Bin = v; return nil }},
	{"HTML2PDF_NO_SANDBOX", func(c *config.Config, v string) error { return setBool(&c.Browser.NoSandbox, v) }},
	// Log
	{"HTML2PDF_LOG_LEVEL", func(c *config.Config, v string) error { c.Log.Level = strings.ToLower(v); return nil }},
	{"HTML2PDF_LOG_FORMAT", func(c *config.Config, v string) error { c.Log.Format = strings.ToLower(v); return nil }},
}

// knownEnvVars lists valid HTML2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = func() map[string]bool {
	known := lo.SliceToMap(envBindings, func(b envBinding) (string, bool) { return b.name, true })
	known[envConfigPath] = true
	known[envContainer] = true
	return known
}()

// applyEnv applies every set variable to cfg. Empty values are ignored.
func applyEnv(cfg *config.Config, lookup func(string) (string, bool)) error {
	for _, b := range append(rodBindings, envBindings...) {
		v, ok := lookup(b.name)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, b.name, v, err)
		}
	}
	return nil
}

// unknownEnvVars returns the sorted HTML2PDF_* names that match no binding.
// Helps catch typos like HTML2PDF_OUTPUTDIR.
func unknownEnvVars(environ []string, dotenv map[string]string) []string {
	names := lo.Map(environ, func(kv string, _ int) string {
		name, _, _ := strings.Cut(kv, "=")
		return name
	})
	names = append(names, lo.Keys(dotenv)...)

	unknown := lo.Uniq(lo.Filter(names, func(name string, _ int) bool {
		return strings.HasPrefix(name, envPrefix) && !knownEnvVars[name]
	}))
	sort.Strings(unknown)
	return unknown
}

// readDotenv loads a dotenv file. A missing file is only an error when the
// user named it explicitly.
func readDotenv(path string, required bool) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return values, nil
}

// layeredLookup prefers the process environment over dotenv values, like
// godotenv.Load does.
func layeredLookup(env *Environment, dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(v string) []string {
	return lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
