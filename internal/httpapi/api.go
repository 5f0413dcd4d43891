package httpapi

import (
	"context"
	"embed"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/conversion"
	"github.com/alnah/go-html2pdf/internal/storage"
)

//go:embed static/index.html
var static embed.FS

// UploadField is the multipart field carrying the HTML document.
const UploadField = "htmlFile"

// maxJSONBody bounds /convert-url request bodies.
const maxJSONBody = 64 << 10

// Converter runs conversions. *conversion.Service satisfies it.
type Converter interface {
	ConvertUpload(ctx context.Context, filename string, src io.Reader) (*conversion.Output, error)
	ConvertURL(ctx context.Context, rawURL string) (*conversion.Output, error)
}

// Catalog lists, opens and deletes generated PDFs. *storage.Registry satisfies it.
type Catalog interface {
	List() ([]storage.Entry, error)
	Open(name string) (*os.File, storage.Entry, error)
	Delete(name string) error
}

// Compile-time interface checks.
var (
	_ Converter = (*conversion.Service)(nil)
	_ Catalog   = (*storage.Registry)(nil)
)

// API serves the HTTP endpoints.
type API struct {
	converter      Converter
	catalog        Catalog
	log            *zap.Logger
	maxUploadBytes int64
	now            func() time.Time
}

// New returns an API. maxUploadBytes bounds /convert bodies; a nil logger is
// replaced by a no-op one.
func New(converter Converter, catalog Catalog, maxUploadBytes int64, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		converter:      converter,
		catalog:        catalog,
		log:            log,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Routes returns the router with middleware installed.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log))
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleIndex)
	r.Get("/healthz", a.handleHealth)
	r.Post("/convert", a.handleConvert)
	r.Post("/convert-url", a.handleConvertURL)
	r.Get("/download/{filename}", a.handleDownload)
	r.Get("/api/pdfs", a.handleList)
	r.Delete("/delete/{filename}", a.handleDelete)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}
