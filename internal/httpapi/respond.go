package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/hints"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind html2pdf.Kind) int {
	switch kind {
	case html2pdf.KindValidation, html2pdf.KindNavigation:
		return http.StatusBadRequest
	case html2pdf.KindAccessDenied:
		return http.StatusForbidden
	case html2pdf.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// hintFor returns an actionable hint for err, or "".
func (a *API) hintFor(err error) string {
	switch {
	case errors.Is(err, html2pdf.ErrBrowserConnect):
		return hints.Text(hints.ForBrowserConnect())
	case errors.Is(err, html2pdf.ErrNavigation):
		return hints.Text(hints.ForNavigation())
	case errors.Is(err, html2pdf.ErrRenderTimeout):
		return hints.Text(hints.ForTimeout())
	case errors.Is(err, html2pdf.ErrUploadTooLarge):
		return hints.Text(hints.ForUploadTooLarge(a.maxUploadBytes))
	}
	return ""
}

// fail writes err as a JSON error response and logs it.
// r may be nil when no request context is available.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := html2pdf.KindOf(err)
	status := statusFor(kind)

	fields := []zap.Field{zap.Stringer("kind", kind), zap.Int("status", status), zap.Error(err)}
	if r != nil {
		fields = append(fields, zap.String("request_id", middleware.GetReqID(r.Context())))
	}
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", fields...)
	} else {
		a.log.Info("request rejected", fields...)
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Hint: a.hintFor(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
