package yamlutil_test

// Notes:
// - Marshal error branch: not tested because yaml.Marshal only fails with
//   unmarshalable types (channels, functions).
// - TestInputSizeLimit modifies MaxInputSize and does not run in parallel.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

type serverSection struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

type testConfig struct {
	Server  serverSection `yaml:"server"`
	Enabled bool          `yaml:"enabled"`
	Items   []string      `yaml:"items"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Parses YAML into Go structs, rejecting unknown keys
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		wantMsg string
		check   func(t *testing.T, v any)
	}{
		{
			name: "nested section with duration",
			data: []byte("server:\n  addr: \":8080\"\n  timeout: 90s\nenabled: true\nitems: [nav, footer]"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Server.Addr != ":8080" {
					t.Errorf("Addr = %q, want %q", cfg.Server.Addr, ":8080")
				}
				if cfg.Server.Timeout != 90*time.Second {
					t.Errorf("Timeout = %v, want 90s", cfg.Server.Timeout)
				}
				if !cfg.Enabled || len(cfg.Items) != 2 {
					t.Errorf("cfg = %+v", cfg)
				}
			},
		},
		{
			name:    "unknown field causes error",
			data:    []byte("server:\n  adress: \":8080\""),
			dest:    &testConfig{},
			wantMsg: "yamlutil:",
		},
		{
			name:    "syntax error",
			data:    []byte("items: [unclosed"),
			dest:    &testConfig{},
			wantMsg: "yamlutil:",
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "empty data",
			data:    []byte{},
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("enabled: true"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.wantMsg != "":
				if err == nil || !strings.HasPrefix(err.Error(), tt.wantMsg) {
					t.Fatalf("error = %v, want prefix %q", err, tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestReadFileStrict
// ---------------------------------------------------------------------------

func TestReadFileStrict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":3000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var cfg testConfig
	if err := yamlutil.ReadFileStrict(path, &cfg); err != nil {
		t.Fatalf("ReadFileStrict() error = %v", err)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Addr = %q, want %q", cfg.Server.Addr, ":3000")
	}

	err := yamlutil.ReadFileStrict(filepath.Join(dir, "missing.yaml"), &cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want %v", err, os.ErrNotExist)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal - Serializes Go structs to YAML
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	data, err := yamlutil.Marshal(&testConfig{
		Server:  serverSection{Addr: "localhost"},
		Enabled: true,
		Items:   []string{"nav"},
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	s := string(data)
	for _, want := range []string{"server:", "addr: localhost", "enabled: true", "- nav"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q, got:\n%s", want, s)
		}
	}
}

// ---------------------------------------------------------------------------
// TestInputSizeLimit - Verifies MaxInputSize enforcement
// ---------------------------------------------------------------------------

func TestInputSizeLimit(t *testing.T) {
	originalMax := yamlutil.MaxInputSize
	t.Cleanup(func() { yamlutil.MaxInputSize = originalMax })

	t.Run("input at limit succeeds", func(t *testing.T) {
		yamlutil.MaxInputSize = 100
		data := []byte("enabled: true" + strings.Repeat(" ", 87))
		var cfg testConfig
		if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("input exceeding limit fails", func(t *testing.T) {
		yamlutil.MaxInputSize = 100
		data := []byte("enabled: true" + strings.Repeat(" ", 88))
		var cfg testConfig
		err := yamlutil.UnmarshalStrict(data, &cfg)
		if !errors.Is(err, yamlutil.ErrInputTooLarge) {
			t.Errorf("errors.Is(err, ErrInputTooLarge) = false, got: %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), "101 bytes") {
			t.Errorf("error should contain actual size, got: %v", err)
		}
	})

	t.Run("file exceeding limit fails before reading", func(t *testing.T) {
		yamlutil.MaxInputSize = 10
		path := filepath.Join(t.TempDir(), "big.yaml")
		if err := os.WriteFile(path, []byte("enabled: true\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		var cfg testConfig
		if err := yamlutil.ReadFileStrict(path, &cfg); !errors.Is(err, yamlutil.ErrInputTooLarge) {
			t.Errorf("errors.Is(err, ErrInputTooLarge) = false, got: %v", err)
		}
	})
}
