// Package config holds the server configuration: built-in defaults, the
// optional YAML file and its validation.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// AppDir is the directory searched under the user config directory.
const AppDir = "html2pdf-server"

// Config holds all configuration for the server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Render  RenderConfig  `yaml:"render"`
	Browser BrowserConfig `yaml:"browser"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,listen_addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"min=1s"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"min=1s"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes" validate:"min=1"`
}

// StorageConfig defines where uploads are staged and PDFs are kept.
type StorageConfig struct {
	UploadDir string `yaml:"uploadDir" validate:"required"`
	OutputDir string `yaml:"outputDir" validate:"required,nefield=UploadDir"`
}

// RenderConfig defines browser render bounds and print defaults.
type RenderConfig struct {
	Timeout           time.Duration  `yaml:"timeout" validate:"min=1s"`
	NavigationTimeout time.Duration  `yaml:"navigationTimeout" validate:"min=1s"`
	SettleDelay       time.Duration  `yaml:"settleDelay" validate:"min=0s,max=1m"`
	PageFormat        string         `yaml:"pageFormat" validate:"oneof=a4 letter legal"`
	Margin            float64        `yaml:"margin" validate:"min=0,max=3"` // inches
	Viewport          ViewportConfig `yaml:"viewport"`
	UserAgent         string         `yaml:"userAgent" validate:"max=512"`
	HideSelectors     []string       `yaml:"hideSelectors" validate:"dive,required,max=256"`
	MaxConcurrent     int            `yaml:"maxConcurrent" validate:"min=-1,max=64"` // 0 = unlimited, -1 = auto
}

// ViewportConfig is the emulated window for URL renders.
type ViewportConfig struct {
	Width       int     `yaml:"width" validate:"min=320,max=7680"`
	Height      int     `yaml:"height" validate:"min=320,max=7680"`
	ScaleFactor float64 `yaml:"scaleFactor" validate:"gt=0,lte=4"`
}

// BrowserConfig selects the Chrome binary.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // empty = auto-detect, then download
	NoSandbox bool   `yaml:"noSandbox"` // required in most containers
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	vp := html2pdf.DefaultViewport()
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
			OutputDir: "output",
		},
		Render: RenderConfig{
			Timeout:           60 * time.Second,
			NavigationTimeout: 45 * time.Second,
			SettleDelay:       2 * time.Second,
			PageFormat:        html2pdf.PageFormatA4,
			Margin:            html2pdf.DefaultMargin,
			Viewport:          ViewportConfig{Width: vp.Width, Height: vp.Height, ScaleFactor: vp.ScaleFactor},
			UserAgent:         html2pdf.DefaultUserAgent,
			HideSelectors:     html2pdf.DefaultHiddenSelectors(),
			MaxConcurrent:     0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = newValidator()

// newValidator reports fields by their YAML key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("listen_addr", func(fl validator.FieldLevel) bool {
		return validListenAddr(fl.Field().String())
	})
	return v
}

// validListenAddr accepts what net.Listen accepts for TCP: an optional host
// (name, IPv4 or bracketed IPv6) and a numeric port, where 0 picks a free one.
func validListenAddr(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// Validate checks every field bound and the cross-field constraints.
// Called automatically by LoadConfig, and again by the server after
// environment and flag overrides are applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for i, s := range c.Render.HideSelectors {
		if !html2pdf.ValidSelector(s) {
			return fmt.Errorf("%w: render.hideSelectors[%d] %q is not a plain selector", ErrInvalidConfig, i, s)
		}
	}

	// A URL render runs navigation, settle, stylesheet injection and print
	// back to back; the last two are each bounded by render.timeout.
	budget := c.Render.NavigationTimeout + c.Render.SettleDelay + 2*c.Render.Timeout
	if c.Server.WriteTimeout < budget {
		return fmt.Errorf("%w: server.writeTimeout %s is shorter than the render budget %s",
			ErrInvalidConfig, c.Server.WriteTimeout, budget)
	}
	return nil
}

// describe renders one validation failure as "<yaml.path> <rule>".
func describe(fe validator.FieldError) string {
	// Namespace is "Config.render.viewport.width"; drop the type name.
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s must satisfy %s (got %v)", path, fe.Tag(), fe.Value())
}

// HTMLOptions returns the render options for uploaded documents.
func (r RenderConfig) HTMLOptions() *html2pdf.RenderOptions {
	return &html2pdf.RenderOptions{
		Page: html2pdf.PageSettings{Format: r.PageFormat, Margin: r.Margin},
	}
}

// URLOptions returns the render options for remote pages.
func (r RenderConfig) URLOptions() *html2pdf.RenderOptions {
	return &html2pdf.RenderOptions{
		Page:              html2pdf.PageSettings{Format: r.PageFormat, Margin: r.Margin},
		PrintBackground:   true,
		PreferCSSPageSize: true,
		Viewport: html2pdf.Viewport{
			Width:       r.Viewport.Width,
			Height:      r.Viewport.Height,
			ScaleFactor: r.Viewport.ScaleFactor,
		},
		UserAgent:     r.UserAgent,
		HideSelectors: append([]string(nil), r.HideSelectors...),
	}
}

// LoadConfig loads configuration from a file path or config name on top of
// DefaultConfig. Keys absent from the file keep their default.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFileStrict(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Tried: []string{configPath}}
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NotFoundError lists the locations searched for a config file.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: tried %s", ErrConfigNotFound, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrConfigNotFound
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/html2pdf-server/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	// Try current directory first (both extensions)
	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	// Try user config directory (both extensions)
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, AppDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", &NotFoundError{Tried: triedPaths}
}
