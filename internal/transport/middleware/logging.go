package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/go-chi/chi"
)

// maxLoggedBody caps how much of a request body ends up in the log.
const maxLoggedBody = 4 << 10

const redacted = "[FILTERED]"

// sensitiveFields are matched as substrings of lower-cased header and JSON keys.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"credential",
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// LoggingMiddleware writes one line when a request arrives and one when it
// completes. Bodies are logged for writes only, with credentials masked.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			origin := internal.OriginFromContext(r.Context())

			attrs := []any{
				"request_id", origin.RequestID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_ip", origin.IPAddress,
				"user_agent", origin.UserAgent,
				"headers", maskHeaders(r.Header),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			if hasBody(r) {
				attrs = append(attrs, "body", peekBody(r))
			}
			logger.DebugContext(r.Context(), "incoming request", attrs...)

			sw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request completed",
				"request_id", origin.RequestID,
				"method", r.Method,
				"route", routePattern(r),
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", sw.written,
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// peekBody reads the body and puts it back so handlers see it untouched.
func peekBody(r *http.Request) string {
	raw, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "[UNREADABLE]"
	}
	return maskBody(raw)
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// maskBody redacts sensitive JSON keys. Non-JSON bodies are dropped when
// they mention a sensitive field, since they cannot be masked selectively.
func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxLoggedBody {
		return "[TRUNCATED]"
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSensitive(string(body)) {
			return redacted
		}
		return string(body)
	}

	masked, err := json.Marshal(maskJSON(doc))
	if err != nil {
		return redacted
	}
	return string(masked)
}

func maskJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			if isSensitive(key) {
				out[key] = redacted
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = maskJSON(item)
		}
		return out
	default:
		return v
	}
}
