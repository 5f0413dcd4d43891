package html2pdf

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-html2pdf/internal/pdftest"
)

// fakeEngine implements pdfEngine for testing.
type fakeEngine struct {
	mu       sync.Mutex
	result   []byte
	err      error
	delay    time.Duration
	jobs     []renderJob
	contents []string // HTML handed to the engine
	active   atomic.Int32
	peak     atomic.Int32
}

func (f *fakeEngine) Render(ctx context.Context, job renderJob) ([]byte, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.contents = append(f.contents, job.html)
	f.mu.Unlock()

	if f.delay > 0 {
		if err := sleepContext(ctx, f.delay); err != nil {
			return nil, err
		}
	}
	return f.result, f.err
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func newTestRenderer(engine *fakeEngine, opts ...Option) *Renderer {
	r := NewRenderer(append([]Option{func(r *Renderer) { r.engine = engine }}, opts...)...)
	return r
}

// ---------------------------------------------------------------------------
// TestRenderer_Render - Dispatch and results
// ---------------------------------------------------------------------------

func TestRenderer_Render_HTML(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(2)}
	r := newTestRenderer(engine)

	res, err := r.Render(context.Background(), HTMLRequest("<h1>Hello</h1>"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}
	if !strings.HasPrefix(string(res.PDF), "%PDF-") {
		t.Errorf("PDF missing magic header")
	}

	job := engine.jobs[0]
	if job.kind != SourceHTML {
		t.Errorf("job kind = %v, want html", job.kind)
	}
	if job.target != "" {
		t.Errorf("job target = %q, want none for inline HTML", job.target)
	}
	if engine.contents[0] != "<h1>Hello</h1>" {
		t.Errorf("engine saw content %q", engine.contents[0])
	}
	if job.opts.PrintBackground {
		t.Error("HTML defaults should not print backgrounds")
	}
	if job.loadTimeout != defaultTimeout || job.printTimeout != defaultTimeout {
		t.Errorf("timeouts = %v/%v, want %v", job.loadTimeout, job.printTimeout, defaultTimeout)
	}
}

func TestRenderer_Render_EmptyHTML(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1)}
	r := newTestRenderer(engine)

	for _, html := range []string{"", "   \n\t"} {
		if _, err := r.Render(context.Background(), HTMLRequest(html)); err != nil {
			t.Fatalf("Render(%q) error = %v, want blank document rendered", html, err)
		}
	}
	if engine.calls() != 2 {
		t.Errorf("engine calls = %d, want 2", engine.calls())
	}
}

func TestRenderer_Render_URL(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1)}
	r := newTestRenderer(engine,
		WithNavigationTimeout(10*time.Second),
		WithSettleDelay(500*time.Millisecond),
	)

	if _, err := r.Render(context.Background(), URLRequest("https://example.com/a?b=c")); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	job := engine.jobs[0]
	if job.target != "https://example.com/a?b=c" {
		t.Errorf("target = %q", job.target)
	}
	if job.navigationTimeout != 10*time.Second || job.settleDelay != 500*time.Millisecond {
		t.Errorf("navigation timeout/settle = %v/%v", job.navigationTimeout, job.settleDelay)
	}
	if !job.opts.PrintBackground || !job.opts.PreferCSSPageSize {
		t.Error("URL defaults should print backgrounds and prefer CSS page size")
	}
	if job.opts.Viewport != DefaultViewport() {
		t.Errorf("viewport = %+v, want %+v", job.opts.Viewport, DefaultViewport())
	}
	if len(job.opts.HideSelectors) == 0 {
		t.Error("URL defaults should hide non-content selectors")
	}
}

func TestRenderer_Render_RequestOptionsOverrideDefaults(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1)}
	r := newTestRenderer(engine)

	req := HTMLRequest("<p>x</p>")
	req.Options = &RenderOptions{Page: PageSettings{Format: PageFormatLetter, Margin: 0.2}}

	if _, err := r.Render(context.Background(), req); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := engine.jobs[0].opts.Page; got.Format != PageFormatLetter || got.Margin != 0.2 {
		t.Errorf("page = %+v, want letter/0.2", got)
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render_ValidationFailsFast - No browser for bad input
// ---------------------------------------------------------------------------

func TestRenderer_Render_ValidationFailsFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     RenderRequest
		wantErr error
	}{
		{name: "not a url", req: URLRequest("not a url"), wantErr: ErrInvalidURL},
		{name: "empty url", req: URLRequest(""), wantErr: ErrInvalidURL},
		{name: "ftp scheme", req: URLRequest("ftp://example.com/file"), wantErr: ErrInvalidURL},
		{name: "file scheme", req: URLRequest("file:///etc/passwd"), wantErr: ErrInvalidURL},
		{name: "javascript scheme", req: URLRequest("javascript:alert(1)"), wantErr: ErrInvalidURL},
		{name: "zero kind", req: RenderRequest{}, wantErr: ErrInvalidSourceKind},
		{
			name:    "bad page format",
			req:     RenderRequest{Kind: SourceHTML, HTML: "x", Options: &RenderOptions{Page: PageSettings{Format: "a0"}}},
			wantErr: ErrInvalidPageFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &fakeEngine{result: pdftest.Minimal(1)}
			r := newTestRenderer(engine)

			_, err := r.Render(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
			}
			if KindOf(err) != KindValidation {
				t.Errorf("KindOf() = %v, want validation", KindOf(err))
			}
			if engine.calls() != 0 {
				t.Errorf("engine called %d times for invalid input", engine.calls())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render_Errors - Engine and output failures
// ---------------------------------------------------------------------------

func TestRenderer_Render_EngineErrorPropagates(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{err: ErrNavigation}
	r := newTestRenderer(engine)

	_, err := r.Render(context.Background(), URLRequest("https://unreachable.invalid"))
	if !errors.Is(err, ErrNavigation) {
		t.Fatalf("Render() error = %v, want %v", err, ErrNavigation)
	}
}

func TestRenderer_Render_RejectsNonPDFOutput(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: []byte("<html>not a pdf</html>")}
	r := newTestRenderer(engine)

	_, err := r.Render(context.Background(), HTMLRequest("<p>x</p>"))
	if !errors.Is(err, ErrPDFGeneration) {
		t.Fatalf("Render() error = %v, want %v", err, ErrPDFGeneration)
	}
}

func TestRenderer_Render_RecoversPanic(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1)}
	r := newTestRenderer(engine)
	r.inspect = func([]byte) (int, error) { panic("boom") }

	_, err := r.Render(context.Background(), HTMLRequest("<p>x</p>"))
	if err == nil || !strings.Contains(err.Error(), "internal error") {
		t.Fatalf("Render() error = %v, want internal error", err)
	}
}

func TestRenderer_Render_CanceledWhileWaitingForSlot(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1), delay: time.Second}
	r := newTestRenderer(engine, WithMaxConcurrent(1))

	go func() { _, _ = r.Render(context.Background(), HTMLRequest("<p>slow</p>")) }()

	// Wait until the first render holds the only slot.
	deadline := time.Now().Add(time.Second)
	for engine.active.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Render(ctx, HTMLRequest("<p>queued</p>"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Render() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render_Concurrency
// ---------------------------------------------------------------------------

func TestRenderer_Render_ConcurrencyCap(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1), delay: 20 * time.Millisecond}
	r := newTestRenderer(engine, WithMaxConcurrent(2))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Render(context.Background(), HTMLRequest("<p>x</p>")); err != nil {
				t.Errorf("Render() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := engine.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent renders = %d, want <= 2", peak)
	}
	if engine.calls() != 8 {
		t.Errorf("engine calls = %d, want 8", engine.calls())
	}
}

func TestRenderer_Render_ConcurrentContent(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: pdftest.Minimal(1), delay: 10 * time.Millisecond}
	r := newTestRenderer(engine)

	var wg sync.WaitGroup
	for i := range 6 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = r.Render(context.Background(), HTMLRequest(strings.Repeat("x", i+1)))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, content := range engine.contents {
		if seen[content] {
			t.Errorf("content %q handed to the engine twice", content)
		}
		seen[content] = true
	}
	if len(seen) != 6 {
		t.Errorf("distinct contents = %d, want 6", len(seen))
	}
}

// ---------------------------------------------------------------------------
// TestNewRenderer - Defaults and options
// ---------------------------------------------------------------------------

func TestNewRenderer_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRenderer()

	if r.cfg.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", r.cfg.timeout, defaultTimeout)
	}
	if r.cfg.navigationTimeout != 45*time.Second {
		t.Errorf("navigation timeout = %v, want 45s", r.cfg.navigationTimeout)
	}
	if r.cfg.settleDelay != 2*time.Second {
		t.Errorf("settle delay = %v, want 2s", r.cfg.settleDelay)
	}
	if r.gate != nil {
		t.Error("default renderer should not cap concurrency")
	}
	if _, ok := r.engine.(*rodEngine); !ok {
		t.Errorf("engine = %T, want *rodEngine", r.engine)
	}
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithTimeout(0) did not panic")
		}
	}()
	WithTimeout(0)
}

func TestWithNavigationTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithNavigationTimeout(-1) did not panic")
		}
	}()
	WithNavigationTimeout(-1)
}
