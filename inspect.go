package html2pdf

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/h2non/filetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfInspector checks rendered output and returns its page count.
type pdfInspector func(data []byte) (pages int, err error)

var disablePDFConfigDir sync.Once

// inspectPDF rejects output that is not a parseable PDF with at least one page.
func inspectPDF(data []byte) (int, error) {
	if !filetype.Is(data, "pdf") {
		return 0, fmt.Errorf("%w: output is not a PDF", ErrPDFGeneration)
	}

	// pdfcpu would otherwise create a config directory under the user's home.
	disablePDFConfigDir.Do(api.DisableConfigDir)

	pages, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: parsing output: %v", ErrPDFGeneration, err)
	}
	if pages < 1 {
		return 0, fmt.Errorf("%w: output has no pages", ErrPDFGeneration)
	}
	return pages, nil
}
