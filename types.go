package html2pdf

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Page format constants.
const (
	PageFormatA4     = "a4"
	PageFormatLetter = "letter"
	PageFormatLegal  = "legal"
)

// Paper dimensions in inches, portrait.
var paperSizes = map[string][2]float64{
	PageFormatA4:     {8.27, 11.69},
	PageFormatLetter: {8.5, 11},
	PageFormatLegal:  {8.5, 14},
}

// Margin bounds in inches.
const (
	MinMargin     = 0.0
	MaxMargin     = 3.0
	DefaultMargin = 0.0
)

// Viewport bounds in CSS pixels.
const (
	MinViewportSize = 320
	MaxViewportSize = 7680
)

// DefaultUserAgent identifies as a desktop Chrome so remote sites serve their
// full layout instead of a mobile or bot-blocked one.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// SourceKind tags the variant of a RenderRequest.
type SourceKind int

// Render sources.
const (
	SourceHTML SourceKind = iota + 1
	SourceURL
)

// String returns the source name used in logs.
func (k SourceKind) String() string {
	switch k {
	case SourceHTML:
		return "html"
	case SourceURL:
		return "url"
	default:
		return "unknown"
	}
}

// RenderRequest describes one render. Exactly one of HTML or URL is used,
// selected by Kind. Build with HTMLRequest or URLRequest.
type RenderRequest struct {
	Kind    SourceKind
	HTML    string
	URL     string
	Options *RenderOptions // nil = renderer defaults for Kind
}

// HTMLRequest returns a request rendering raw HTML content.
func HTMLRequest(content string) RenderRequest {
	return RenderRequest{Kind: SourceHTML, HTML: content}
}

// URLRequest returns a request rendering a remote page.
func URLRequest(rawURL string) RenderRequest {
	return RenderRequest{Kind: SourceURL, URL: rawURL}
}

// Validate checks the request without touching the browser.
func (r RenderRequest) Validate() error {
	switch r.Kind {
	case SourceHTML:
		// Content is not inspected: empty or malformed HTML still renders.
	case SourceURL:
		if err := ValidateURL(r.URL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %d", ErrInvalidSourceKind, r.Kind)
	}
	return r.Options.Validate()
}

// PageSettings configures PDF page dimensions.
type PageSettings struct {
	Format string  // "a4", "letter", "legal"
	Margin float64 // inches, applied to all sides
}

// Validate checks that page settings are valid.
// Does not mutate - uses case-insensitive comparison.
func (p PageSettings) Validate() error {
	if _, ok := paperSizes[strings.ToLower(p.Format)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageFormat, p.Format)
	}
	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}
	return nil
}

// paperSize returns width and height in inches. Unknown formats fall back to A4.
func (p PageSettings) paperSize() (width, height float64) {
	size, ok := paperSizes[strings.ToLower(p.Format)]
	if !ok {
		size = paperSizes[PageFormatA4]
	}
	return size[0], size[1]
}

// Viewport is the emulated browser window, used for URL renders.
type Viewport struct {
	Width       int
	Height      int
	ScaleFactor float64
}

// Validate checks the viewport dimensions.
func (v Viewport) Validate() error {
	if v.Width < MinViewportSize || v.Width > MaxViewportSize ||
		v.Height < MinViewportSize || v.Height > MaxViewportSize {
		return fmt.Errorf("%w: %dx%d (each side must be between %d and %d)",
			ErrInvalidViewport, v.Width, v.Height, MinViewportSize, MaxViewportSize)
	}
	if v.ScaleFactor <= 0 || v.ScaleFactor > 4 {
		return fmt.Errorf("%w: scale factor %.2f (must be in (0, 4])", ErrInvalidViewport, v.ScaleFactor)
	}
	return nil
}

// RenderOptions controls how a page is loaded and printed.
type RenderOptions struct {
	Page              PageSettings
	PrintBackground   bool
	PreferCSSPageSize bool
	Viewport          Viewport // URL renders only
	UserAgent         string   // URL renders only
	HideSelectors     []string // URL renders only
}

// Validate checks the options. Returns nil if o is nil (nil means defaults).
func (o *RenderOptions) Validate() error {
	if o == nil {
		return nil
	}
	if err := o.Page.Validate(); err != nil {
		return err
	}
	if o.Viewport != (Viewport{}) {
		if err := o.Viewport.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultViewport is a full-HD desktop window.
func DefaultViewport() Viewport {
	return Viewport{Width: 1920, Height: 1080, ScaleFactor: 1}
}

// DefaultHTMLOptions returns the options used for uploaded HTML content.
func DefaultHTMLOptions() *RenderOptions {
	return &RenderOptions{
		Page: PageSettings{Format: PageFormatA4, Margin: DefaultMargin},
	}
}

// DefaultURLOptions returns the options used for remote pages.
func DefaultURLOptions() *RenderOptions {
	return &RenderOptions{
		Page:              PageSettings{Format: PageFormatA4, Margin: DefaultMargin},
		PrintBackground:   true,
		PreferCSSPageSize: true,
		Viewport:          DefaultViewport(),
		UserAgent:         DefaultUserAgent,
		HideSelectors:     DefaultHiddenSelectors(),
	}
}

var validate = validator.New()

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	if err := validate.Var(raw, "url"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not supported", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Result holds a rendered PDF.
type Result struct {
	PDF   []byte
	Pages int
}

// Option configures a Renderer.
type Option func(*Renderer)

// rendererConfig holds internal configuration for Renderer.
type rendererConfig struct {
	timeout           time.Duration
	navigationTimeout time.Duration
	settleDelay       time.Duration
	maxConcurrent     int
	browserBin        string
	noSandbox         bool
	htmlOptions       *RenderOptions
	urlOptions        *RenderOptions
}

// Defaults used when no option overrides them.
const (
	defaultTimeout           = 60 * time.Second
	defaultNavigationTimeout = 45 * time.Second
	defaultSettleDelay       = 2 * time.Second
)

// WithTimeout bounds HTML loading and printing.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("html2pdf: WithTimeout duration must be positive")
	}
	return func(r *Renderer) {
		r.cfg.timeout = d
	}
}

// WithNavigationTimeout bounds remote URL navigation.
// Panics if d <= 0.
func WithNavigationTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("html2pdf: WithNavigationTimeout duration must be positive")
	}
	return func(r *Renderer) {
		r.cfg.navigationTimeout = d
	}
}

// WithSettleDelay sets the pause after navigation for late-loading resources.
// Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Renderer) {
		if d >= 0 {
			r.cfg.settleDelay = d
		}
	}
}

// WithMaxConcurrent caps simultaneous browser instances.
// Zero means unlimited, negative derives a cap from GOMAXPROCS.
func WithMaxConcurrent(n int) Option {
	return func(r *Renderer) {
		r.cfg.maxConcurrent = n
	}
}

// WithBrowser selects the Chrome binary (empty = auto-detect or download)
// and whether to disable its sandbox.
func WithBrowser(bin string, noSandbox bool) Option {
	return func(r *Renderer) {
		r.cfg.browserBin = bin
		r.cfg.noSandbox = noSandbox
	}
}

// WithHTMLOptions replaces the defaults for HTML content renders.
func WithHTMLOptions(o *RenderOptions) Option {
	return func(r *Renderer) {
		if o != nil {
			r.cfg.htmlOptions = o
		}
	}
}

// WithURLOptions replaces the defaults for remote URL renders.
func WithURLOptions(o *RenderOptions) Option {
	return func(r *Renderer) {
		if o != nil {
			r.cfg.urlOptions = o
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}
