package html2pdf

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Renderer turns RenderRequests into PDFs.
// Each Render launches and tears down its own browser; a Renderer holds no
// browser between calls and is safe for concurrent use.
type Renderer struct {
	cfg     rendererConfig
	engine  pdfEngine
	inspect pdfInspector
	gate    *renderGate
	log     *zap.Logger
}

// NewRenderer creates a Renderer with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithURLOptions).
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		cfg: rendererConfig{
			timeout:           defaultTimeout,
			navigationTimeout: defaultNavigationTimeout,
			settleDelay:       defaultSettleDelay,
			htmlOptions:       DefaultHTMLOptions(),
			urlOptions:        DefaultURLOptions(),
		},
		inspect: inspectPDF,
		log:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.gate = newRenderGate(ResolveConcurrency(r.cfg.maxConcurrent))

	// Create engine if not injected (e.g., by tests)
	if r.engine == nil {
		r.engine = newRodEngine(r.cfg.browserBin, r.cfg.noSandbox, r.log)
	}

	return r
}

// Render validates req, renders it and checks the output.
// URL requests are validated before any browser is launched.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := r.gate.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	job := renderJob{
		kind:              req.Kind,
		opts:              r.optionsFor(req),
		loadTimeout:       r.cfg.timeout,
		navigationTimeout: r.cfg.navigationTimeout,
		printTimeout:      r.cfg.timeout,
		settleDelay:       r.cfg.settleDelay,
	}

	switch req.Kind {
	case SourceHTML:
		job.html = req.HTML
	case SourceURL:
		job.target = req.URL
	}

	start := time.Now()
	pdf, err := r.engine.Render(ctx, job)
	if err != nil {
		r.log.Warn("render failed",
			zap.Stringer("source", req.Kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	pages, err := r.inspect(pdf)
	if err != nil {
		return nil, err
	}

	r.log.Debug("render complete",
		zap.Stringer("source", req.Kind),
		zap.Int("pages", pages),
		zap.Int("bytes", len(pdf)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Result{PDF: pdf, Pages: pages}, nil
}

// optionsFor returns the request's options or the configured defaults.
func (r *Renderer) optionsFor(req RenderRequest) *RenderOptions {
	if req.Options != nil {
		return req.Options
	}
	if req.Kind == SourceURL {
		return r.cfg.urlOptions
	}
	return r.cfg.htmlOptions
}
