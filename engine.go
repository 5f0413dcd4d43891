package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/process"
)

// pdfEngine abstracts the browser so the Renderer can be tested without Chrome.
type pdfEngine interface {
	Render(ctx context.Context, job renderJob) ([]byte, error)
}

// Compile-time interface check.
var _ pdfEngine = (*rodEngine)(nil)

// renderJob is one fully resolved render: target, options and time bounds.
type renderJob struct {
	kind              SourceKind
	html              string // document for SourceHTML
	target            string // remote URL for SourceURL
	opts              *RenderOptions
	loadTimeout       time.Duration
	navigationTimeout time.Duration
	printTimeout      time.Duration
	settleDelay       time.Duration
}

// rodEngine renders with headless Chrome via go-rod.
// Every Render launches its own browser and tears it down before returning.
// Rod downloads Chromium on first run if no binary is configured or found.
type rodEngine struct {
	bin       string
	noSandbox bool
	log       *zap.Logger
}

// newRodEngine creates a rodEngine.
func newRodEngine(bin string, noSandbox bool, log *zap.Logger) *rodEngine {
	return &rodEngine{bin: bin, noSandbox: noSandbox, log: log}
}

// Render runs job in a dedicated browser instance.
func (e *rodEngine) Render(ctx context.Context, job renderJob) ([]byte, error) {
	var pdf []byte
	err := e.withPage(ctx, func(page *rod.Page) error {
		var err error
		if job.kind == SourceURL {
			pdf, err = e.renderURL(ctx, page, job)
		} else {
			pdf, err = e.renderDocument(ctx, page, job)
		}
		return err
	})
	return pdf, err
}

// withPage launches a browser, opens a blank page and runs fn with it.
// Page, browser connection and browser process are released on every exit
// path, including panics and timeouts.
func (e *rodEngine) withPage(ctx context.Context, fn func(*rod.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := launcher.New().Context(ctx).Headless(true)
	if e.bin != "" {
		l = l.Bin(e.bin)
	}
	if e.noSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	defer func() {
		pid := l.PID()
		l.Kill()
		process.KillTree(pid)
		l.Cleanup()
		e.log.Debug("browser released", zap.Int("pid", pid))
	}()
	e.log.Debug("browser launched", zap.Int("pid", l.PID()))

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	return fn(page)
}

// renderDocument replaces the about:blank document with the HTML content,
// waits for its subresources to go idle and prints. The document keeps the
// opaque about:blank origin, so file:// references are refused by Chrome.
func (e *rodEngine) renderDocument(ctx context.Context, page *rod.Page, job renderJob) ([]byte, error) {
	loadCtx, cancel := context.WithTimeout(ctx, job.loadTimeout)
	defer cancel()

	if err := setContentAndWait(loadCtx, page, job.html); err != nil {
		return nil, stepError(ErrPageLoad, loadCtx, err)
	}

	return e.print(ctx, page, job)
}

// renderURL emulates a desktop browser, navigates to the remote page, lets
// late resources settle, hides non-content elements and prints.
func (e *rodEngine) renderURL(ctx context.Context, page *rod.Page, job renderJob) ([]byte, error) {
	vp := job.opts.Viewport
	if vp == (Viewport{}) {
		vp = DefaultViewport()
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: vp.ScaleFactor,
		Mobile:            false,
	}); err != nil {
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrPageCreate, err)
	}

	if job.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: job.opts.UserAgent}); err != nil {
			return nil, fmt.Errorf("%w: setting user agent: %v", ErrPageCreate, err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, job.navigationTimeout)
	err := navigateAndWait(navCtx, page, job.target,
		proto.PageLifecycleEventNameDOMContentLoaded,
		proto.PageLifecycleEventNameNetworkIdle,
	)
	if err != nil {
		err = stepError(ErrNavigation, navCtx, err)
	}
	cancel()
	if err != nil {
		return nil, err
	}
	e.log.Debug("navigation settled", zap.String("url", job.target))

	if err := sleepContext(ctx, job.settleDelay); err != nil {
		return nil, err
	}

	injectCtx, cancelInject := context.WithTimeout(ctx, job.printTimeout)
	defer cancelInject()
	css := buildPrintOverrideCSS(job.opts.HideSelectors, job.opts.Page)
	if err := page.Context(injectCtx).AddStyleTag("", css); err != nil {
		return nil, stepError(ErrPDFGeneration, injectCtx, fmt.Errorf("injecting print overrides: %w", err))
	}

	return e.print(ctx, page, job)
}

// print renders the current page to PDF within the print timeout.
func (e *rodEngine) print(ctx context.Context, page *rod.Page, job renderJob) ([]byte, error) {
	printCtx, cancel := context.WithTimeout(ctx, job.printTimeout)
	defer cancel()

	reader, err := page.Context(printCtx).PDF(buildPrintOptions(job.opts))
	if err != nil {
		return nil, stepError(ErrPDFGeneration, printCtx, err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, stepError(ErrPDFGeneration, printCtx, fmt.Errorf("reading PDF stream: %w", err))
	}
	return pdf, nil
}

// navigateAndWait navigates page to target and blocks until every listed
// lifecycle event has fired for the main frame, or ctx is done.
func navigateAndWait(ctx context.Context, page *rod.Page, target string, events ...proto.PageLifecycleEventName) error {
	p := page.Context(ctx)

	if err := (proto.PageSetLifecycleEventsEnabled{Enabled: true}).Call(p); err != nil {
		return fmt.Errorf("enabling lifecycle events: %w", err)
	}

	pending := make(map[proto.PageLifecycleEventName]bool, len(events))
	reset := func() {
		for _, ev := range events {
			pending[ev] = true
		}
	}
	reset()

	// Subscribed before navigating so no event is missed. A new "init"
	// starts a fresh document, discarding events seen for the previous one.
	wait := p.EachEvent(func(ev *proto.PageLifecycleEvent) bool {
		if ev.FrameID != page.FrameID {
			return false
		}
		if ev.Name == proto.PageLifecycleEventNameInit {
			reset()
			return false
		}
		delete(pending, ev.Name)
		return len(pending) == 0
	})

	if err := p.Navigate(target); err != nil {
		return err
	}
	wait()

	return ctx.Err()
}

// networkIdleWindow is how long no request may be in flight before the
// document counts as loaded.
const networkIdleWindow = 500 * time.Millisecond

// setContentAndWait writes html into the page's current document and blocks
// until no request has been in flight for networkIdleWindow, or ctx is done.
func setContentAndWait(ctx context.Context, page *rod.Page, html string) error {
	p := page.Context(ctx)

	// Registered before writing so the document's first requests are counted.
	wait := p.WaitRequestIdle(networkIdleWindow, nil, nil, nil)

	if err := p.SetDocumentContent(html); err != nil {
		return fmt.Errorf("setting document content: %w", err)
	}
	wait()

	return ctx.Err()
}

// buildPrintOptions constructs proto.PagePrintToPDF from render options.
func buildPrintOptions(o *RenderOptions) *proto.PagePrintToPDF {
	width, height := o.Page.paperSize()
	return &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(width),
		PaperHeight:       floatPtr(height),
		MarginTop:         floatPtr(o.Page.Margin),
		MarginBottom:      floatPtr(o.Page.Margin),
		MarginLeft:        floatPtr(o.Page.Margin),
		MarginRight:       floatPtr(o.Page.Margin),
		PrintBackground:   o.PrintBackground,
		PreferCSSPageSize: o.PreferCSSPageSize,
	}
}

// stepError wraps err with sentinel, adding ErrRenderTimeout when the step's
// own deadline expired.
func stepError(sentinel error, stepCtx context.Context, err error) error {
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", sentinel, ErrRenderTimeout)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
