// Package html2pdf renders HTML documents and remote web pages to PDF using
// headless Chrome.
//
// # Quick Start
//
// Create a renderer and render a request:
//
//	r := html2pdf.NewRenderer()
//
//	res, err := r.Render(ctx, html2pdf.HTMLRequest("<h1>Hello</h1>"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.pdf", res.PDF, 0644)
//
// Remote pages use URLRequest:
//
//	res, err := r.Render(ctx, html2pdf.URLRequest("https://example.com"))
//
// # Render Lifecycle
//
// Every call to Render launches a dedicated browser and closes it before
// returning, on success, failure or timeout alike:
//
//  1. HTML content replaces an about:blank document and loads until the
//     network is idle. Its file:// references are not loaded.
//  2. Remote URLs are loaded in a 1920x1080 desktop viewport until the DOM is
//     parsed and the network is idle, then given a short settle delay.
//  3. Remote pages get a print stylesheet hiding navigation, cookie banners,
//     modals and footers (see DefaultHiddenSelectors).
//  4. The page is printed and the output is checked to be a parseable PDF.
//
// # Configuration
//
// Use functional options to customize the renderer:
//
//	r := html2pdf.NewRenderer(
//	    html2pdf.WithTimeout(2 * time.Minute),
//	    html2pdf.WithNavigationTimeout(45 * time.Second),
//	    html2pdf.WithMaxConcurrent(4),
//	    html2pdf.WithHTMLOptions(&html2pdf.RenderOptions{
//	        Page: html2pdf.PageSettings{Format: "a4", Margin: 0.2},
//	    }),
//	)
//
// # Errors
//
// Errors wrap package sentinels; KindOf classifies them for transport layers
// (validation, navigation, access denied, not found, render).
//
// # Browser Requirements
//
// PDF generation requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
// Use WithBrowser to point at a preinstalled binary or to disable the sandbox
// in containers.
package html2pdf
