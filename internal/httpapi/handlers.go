package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/conversion"
	"github.com/alnah/go-html2pdf/internal/storage"
)

type convertResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	PDFFile      string `json:"pdfFile"`
	DownloadLink string `json:"downloadLink"`
	SourceURL    string `json:"sourceUrl,omitempty"`
	Pages        int    `json:"pages"`
}

type convertURLRequest struct {
	URL string `json:"url"`
}

type fileInfo struct {
	Name         string    `json:"name"`
	DownloadLink string    `json:"downloadLink"`
	CreatedAt    time.Time `json:"createdAt"`
	Size         int64     `json:"size"`
}

type listResponse struct {
	Files []fileInfo `json:"files"`
}

type deleteResponse struct {
	Success     bool   `json:"success"`
	DeletedFile string `json:"deletedFile"`
}

func (a *API) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		a.fail(w, nil, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConvert streams the htmlFile part of a multipart upload into the
// conversion service. Other parts are skipped.
func (a *API) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: expected multipart/form-data with a %q field", html2pdf.ErrNoFile, UploadField))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			a.fail(w, r, a.uploadError(err))
			return
		}
		if part.FormName() != UploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		out, err := a.converter.ConvertUpload(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			a.fail(w, r, a.uploadError(err))
			return
		}
		writeJSON(w, http.StatusOK, newConvertResponse(out))
		return
	}

	a.fail(w, r, html2pdf.ErrNoFile)
}

// uploadError turns a body limit hit into ErrUploadTooLarge.
func (a *API) uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", html2pdf.ErrUploadTooLarge, tooLarge.Limit)
	}
	return err
}

func (a *API) handleConvertURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req convertURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, r, fmt.Errorf("%w: request body must be JSON {\"url\": \"...\"}", html2pdf.ErrInvalidURL))
		return
	}

	out, err := a.converter.ConvertURL(r.Context(), req.URL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConvertResponse(out))
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := fileParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	f, entry, err := a.catalog.Open(name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": entry.Name}))
	http.ServeContent(w, r, entry.Name, entry.ModTime, f)
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.catalog.List()
	if err != nil {
		a.fail(w, r, err)
		return
	}

	files := lo.Map(entries, func(e storage.Entry, _ int) fileInfo {
		return fileInfo{
			Name:         e.Name,
			DownloadLink: downloadLink(e.Name),
			CreatedAt:    e.ModTime,
			Size:         e.Size,
		}
	})
	writeJSON(w, http.StatusOK, listResponse{Files: files})
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, err := fileParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.catalog.Delete(name); err != nil {
		a.fail(w, r, err)
		return
	}

	a.log.Info("pdf deleted", zap.String("pdf", name))
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, DeletedFile: name})
}

// fileParam returns the decoded {filename} route parameter. chi matches on
// the raw path when it contains escapes, so "%2F" arrives still encoded.
func fileParam(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		return "", fmt.Errorf("%w: malformed file name", storage.ErrAccessDenied)
	}
	return name, nil
}

func newConvertResponse(out *conversion.Output) convertResponse {
	return convertResponse{
		Success:      true,
		Message:      "PDF generated successfully",
		PDFFile:      out.File.Name,
		DownloadLink: downloadLink(out.File.Name),
		SourceURL:    out.SourceURL,
		Pages:        out.Pages,
	}
}

func downloadLink(name string) string {
	return "/download/" + url.PathEscape(name)
}
