package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError renders an AppError with its own status. Anything else is
// reported as a 500 without leaking the underlying message.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled error", "error", err)
		appErr = internal.NewInternalError("internal server error", err)
	}

	status, body := appErr.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", status, "code", appErr.Code, "error", errors.Unwrap(appErr))
	} else {
		h.Logger.Warn("http error", "status", status, "code", appErr.Code)
	}

	h.WriteJSON(w, status, body)
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

// ParseID parses a positive integer path or query identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
