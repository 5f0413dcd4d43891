package conversion_test

// Notes:
// - Uses a fake renderer; no browser is launched.
// - Staging and output directories are per-test temp dirs, so the staging
//   directory can be checked for leftovers after every conversion.

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/conversion"
	"github.com/alnah/go-html2pdf/internal/pdftest"
	"github.com/alnah/go-html2pdf/internal/storage"
)

// fakeRenderer implements conversion.Renderer for testing.
type fakeRenderer struct {
	mu   sync.Mutex
	reqs []html2pdf.RenderRequest
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, req html2pdf.RenderRequest) (*html2pdf.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &html2pdf.Result{PDF: pdftest.Minimal(1), Pages: 1}, nil
}

func (f *fakeRenderer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type fixture struct {
	svc        *conversion.Service
	renderer   *fakeRenderer
	stagingDir string
	registry   *storage.Registry
}

func newFixture(t *testing.T, renderErr error) fixture {
	t.Helper()

	stagingDir := t.TempDir()
	registry, err := storage.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	r := &fakeRenderer{err: renderErr}
	return fixture{
		svc:        conversion.New(r, storage.NewStaging(stagingDir), registry, nil),
		renderer:   r,
		stagingDir: stagingDir,
		registry:   registry,
	}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%s has %d leftover entries, want 0", dir, len(entries))
	}
}

// ---------------------------------------------------------------------------
// TestConvertUpload
// ---------------------------------------------------------------------------

func TestConvertUpload_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	out, err := f.svc.ConvertUpload(context.Background(), "Quarterly Report.html", strings.NewReader("<h1>Q3</h1>"))
	if err != nil {
		t.Fatalf("ConvertUpload() error = %v", err)
	}

	if !strings.HasSuffix(out.File.Name, "-Quarterly-Report.pdf") {
		t.Errorf("File.Name = %q, want suffix -Quarterly-Report.pdf", out.File.Name)
	}
	if out.Pages != 1 || out.File.Size == 0 || out.SourceURL != "" {
		t.Errorf("Output = %+v", out)
	}

	req := f.renderer.reqs[0]
	if req.Kind != html2pdf.SourceHTML || req.HTML != "<h1>Q3</h1>" {
		t.Errorf("render request = %+v", req)
	}

	entries, err := f.registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name != out.File.Name {
		t.Errorf("List() = %+v, want the committed file", entries)
	}
	assertDirEmpty(t, f.stagingDir)
}

func TestConvertUpload_RenderFailureReleasesUpload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, html2pdf.ErrPageLoad)

	_, err := f.svc.ConvertUpload(context.Background(), "page.html", strings.NewReader("<p>x</p>"))
	if !errors.Is(err, html2pdf.ErrPageLoad) {
		t.Fatalf("ConvertUpload() error = %v, want %v", err, html2pdf.ErrPageLoad)
	}

	assertDirEmpty(t, f.stagingDir)
	assertDirEmpty(t, f.registry.Dir())
}

func TestConvertUpload_RejectedBeforeRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{name: "pdf", filename: "doc.pdf", wantErr: storage.ErrUnsupportedExtension},
		{name: "no extension", filename: "doc", wantErr: storage.ErrUnsupportedExtension},
		{name: "empty", filename: "", wantErr: storage.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)

			_, err := f.svc.ConvertUpload(context.Background(), tt.filename, strings.NewReader("x"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ConvertUpload() error = %v, want %v", err, tt.wantErr)
			}
			if html2pdf.KindOf(err) != html2pdf.KindValidation {
				t.Errorf("KindOf() = %v, want validation", html2pdf.KindOf(err))
			}
			if f.renderer.calls() != 0 {
				t.Error("renderer called for rejected upload")
			}
			assertDirEmpty(t, f.stagingDir)
		})
	}
}

func TestConvertUpload_ConcurrentDistinctNames(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	const n = 10
	names := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.svc.ConvertUpload(context.Background(), "same.html", strings.NewReader("<p>x</p>"))
			if err != nil {
				t.Errorf("ConvertUpload() error = %v", err)
				return
			}
			names[i] = out.File.Name
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		if seen[name] {
			t.Errorf("duplicate output name %q", name)
		}
		seen[name] = true
	}

	entries, err := f.registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != n {
		t.Errorf("List() returned %d entries, want %d", len(entries), n)
	}
	assertDirEmpty(t, f.stagingDir)
}

// ---------------------------------------------------------------------------
// TestConvertURL
// ---------------------------------------------------------------------------

func TestConvertURL_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url        string
		wantSuffix string
	}{
		{url: "https://example.com", wantSuffix: "-example.com.pdf"},
		{url: "https://example.com/docs/intro.html", wantSuffix: "-example.com-docs-intro.pdf"},
		{url: "  http://localhost:8080/a/b/  ", wantSuffix: "-localhost-a-b.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)

			out, err := f.svc.ConvertURL(context.Background(), tt.url)
			if err != nil {
				t.Fatalf("ConvertURL() error = %v", err)
			}
			if !strings.HasSuffix(out.File.Name, tt.wantSuffix) {
				t.Errorf("File.Name = %q, want suffix %q", out.File.Name, tt.wantSuffix)
			}
			if out.SourceURL != strings.TrimSpace(tt.url) {
				t.Errorf("SourceURL = %q", out.SourceURL)
			}
			if req := f.renderer.reqs[0]; req.Kind != html2pdf.SourceURL || req.URL != strings.TrimSpace(tt.url) {
				t.Errorf("render request = %+v", req)
			}
		})
	}
}

func TestConvertURL_InvalidNeverRenders(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "ftp://example.com", "file:///etc/passwd"} {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)

			_, err := f.svc.ConvertURL(context.Background(), raw)
			if !errors.Is(err, html2pdf.ErrInvalidURL) {
				t.Fatalf("ConvertURL(%q) error = %v, want %v", raw, err, html2pdf.ErrInvalidURL)
			}
			if f.renderer.calls() != 0 {
				t.Error("renderer called for invalid URL")
			}
		})
	}
}

func TestConvertURL_NavigationFailureCommitsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, html2pdf.ErrNavigation)

	_, err := f.svc.ConvertURL(context.Background(), "https://unreachable.invalid")
	if html2pdf.KindOf(err) != html2pdf.KindNavigation {
		t.Fatalf("KindOf(%v) = %v, want navigation", err, html2pdf.KindOf(err))
	}
	assertDirEmpty(t, f.registry.Dir())
}
