package web

// errors.go turns service errors into JSON responses.
//
// The technical error is logged with the request ID; the client receives
// the mapped user message and support code from core.MapError. Validation
// failures additionally list every offending field.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
	"github.com/lakshya1112/Buyer-lead-app/internal/web/middleware"
)

// errMalformed marks requests whose body or parameters cannot be parsed.
var errMalformed = errors.New("malformed request")

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		verrs  core.ValidationErrors
		decErr *core.DecodeError
	)
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, middleware.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrCapacityExceeded),
		errors.As(err, &decErr),
		errors.Is(err, core.ErrNothingToImport),
		errors.Is(err, core.ErrInvalidState),
		errors.Is(err, errMalformed),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   sentence(msg),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	writeJSON(w, status, resp)
}

// sentence joins message and action into one line for simple clients.
func sentence(msg core.UserMessage) string {
	text := strings.TrimSuffix(msg.Message, ".")
	if msg.Action == "" {
		return text + "."
	}
	return text + ". " + strings.TrimSuffix(msg.Action, ".") + "."
}
