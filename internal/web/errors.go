package web

// errors.go turns pipeline errors into responses.
//
// Every error is:
//   - Logged with full technical details and the request id
//   - Mapped by core.MapError to a fixed message with a support code
//   - Rendered as JSON for /api routes and as an HTML alert otherwise

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/logging"
	"github.com/JonMunkholm/coinconvert/internal/rates"
	"github.com/JonMunkholm/coinconvert/internal/reconcile"
	"github.com/JonMunkholm/coinconvert/internal/table"
	"github.com/JonMunkholm/coinconvert/internal/tabular"
	"github.com/JonMunkholm/coinconvert/internal/web/views"
)

var (
	errMissingFile     = errors.New("no file provided")
	errHistoryDisabled = errors.New("conversion history is not configured")
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a pipeline error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, tabular.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, tabular.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errMissingFile), errors.Is(err, tabular.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, errHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, rates.ErrDataSource):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrUnknownSchema),
		errors.Is(err, core.ErrNotSupported),
		errors.Is(err, table.ErrInvalidValue),
		errors.Is(err, reconcile.ErrIntegrity),
		errors.Is(err, reconcile.ErrAmbiguousMatch),
		errors.Is(err, reconcile.ErrUnreconcilableOrder):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// messageFor maps errors the core mapping does not know about.
func messageFor(err error) core.UserMessage {
	switch {
	case errors.Is(err, errMissingFile):
		return core.UserMessage{
			Message: "No file provided",
			Action:  "Choose a CSV or XLSX export and try again.",
			Code:    "UPL004",
		}
	case errors.Is(err, errHistoryDisabled):
		return core.UserMessage{
			Message: "Conversion history is not available",
			Action:  "Set DATABASE_URL to enable it.",
			Code:    "HIS001",
		}
	}
	return core.MapError(err)
}

// respondError logs err and writes its user message in the format the
// client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := messageFor(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	respondErrorHTML(w, r, msg, status)
}

// respondErrorHTML renders the error alert inside the page layout.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := views.Page("Error", views.ErrorAlert(msg.Message, msg.Action, msg.Code))
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

// wantsJSON checks if the client prefers a JSON response. API routes
// default to JSON unless a browser asks for HTML.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
