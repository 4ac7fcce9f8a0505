package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/company-authz/internal"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

const readinessTimeout = 2 * time.Second

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// IsolationReporter exposes the current tenant isolation mode.
type IsolationReporter interface {
	CompanyIsolationEnforced() bool
}

type HealthHandler struct {
	db        Pinger
	isolation IsolationReporter
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// WithIsolation adds the authorization mode to the readiness report.
func (h *HealthHandler) WithIsolation(r IsolationReporter) *HealthHandler {
	h.isolation = r
	return h
}

// pingHandler is the liveness probe.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// healthCheckHandler is the readiness probe. Only the database can make it fail.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:     HealthHealthy,
		CheckedAt:  time.Now().UTC(),
		Components: map[string]CheckEntry{"postgres": h.checkDatabase(ctx)},
	}
	if resp.Components["postgres"].Status == HealthUnhealthy {
		resp.Status = HealthUnhealthy
	}

	if h.isolation != nil {
		resp.Components["authorization"] = CheckEntry{
			Status:  HealthHealthy,
			Details: map[string]any{"company_isolation": h.isolation.CompanyIsolationEnforced()},
		}
	}

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, statusCode, resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckEntry {
	start := time.Now()
	err := h.db.PingContext(ctx)

	entry := CheckEntry{Status: HealthHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = "database unreachable"
	}
	return entry
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
