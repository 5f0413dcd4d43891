package conversion

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/storage"
)

// Renderer renders a request to PDF. *html2pdf.Renderer satisfies it.
type Renderer interface {
	Render(ctx context.Context, req html2pdf.RenderRequest) (*html2pdf.Result, error)
}

// Compile-time interface check.
var _ Renderer = (*html2pdf.Renderer)(nil)

// Output describes a committed conversion.
type Output struct {
	File      storage.Entry
	Pages     int
	SourceURL string // empty for uploads
}

// Service converts uploads and remote pages into registry entries.
type Service struct {
	renderer Renderer
	staging  *storage.Staging
	registry *storage.Registry
	log      *zap.Logger
}

// New returns a Service. A nil logger is replaced by a no-op one.
func New(renderer Renderer, staging *storage.Staging, registry *storage.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{renderer: renderer, staging: staging, registry: registry, log: log}
}

// ConvertUpload stages src under filename, renders it and commits the PDF.
// The staged file is released on every exit path.
func (s *Service) ConvertUpload(ctx context.Context, filename string, src io.Reader) (*Output, error) {
	staged, err := s.staging.Stage(filename, src)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := staged.Release(); err != nil {
			s.log.Warn("staged upload not released", zap.String("path", staged.Path), zap.Error(err))
		}
	}()
	s.log.Debug("upload staged", zap.String("original", filename), zap.String("path", staged.Path))

	content, err := staged.ReadContent()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.renderer.Render(ctx, html2pdf.HTMLRequest(content))
	if err != nil {
		return nil, err
	}

	entry, err := s.commit(fileutil.Stem(staged.OriginalName), res.PDF)
	if err != nil {
		return nil, err
	}

	s.log.Info("upload converted",
		zap.String("original", filename),
		zap.String("pdf", entry.Name),
		zap.Int("pages", res.Pages),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Output{File: entry, Pages: res.Pages}, nil
}

// ConvertURL renders the remote page at rawURL and commits the PDF.
// The URL is validated before any browser is launched.
func (s *Service) ConvertURL(ctx context.Context, rawURL string) (*Output, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := html2pdf.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.renderer.Render(ctx, html2pdf.URLRequest(rawURL))
	if err != nil {
		return nil, err
	}

	entry, err := s.commit(urlStem(rawURL), res.PDF)
	if err != nil {
		return nil, err
	}

	s.log.Info("url converted",
		zap.String("url", rawURL),
		zap.String("pdf", entry.Name),
		zap.Int("pages", res.Pages),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Output{File: entry, Pages: res.Pages, SourceURL: rawURL}, nil
}

func (s *Service) commit(stem string, pdf []byte) (storage.Entry, error) {
	name := s.registry.NewName(stem)
	entry, err := s.registry.Commit(name, pdf)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("storing PDF: %w", err)
	}
	return entry, nil
}

// urlStem derives a readable file stem from a URL's host and path,
// e.g. "https://example.com/docs/intro.html" -> "example.com-docs-intro".
func urlStem(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		path = path[:i]
	}
	if path == "" {
		return u.Hostname()
	}
	return u.Hostname() + "-" + strings.ReplaceAll(path, "/", "-")
}
