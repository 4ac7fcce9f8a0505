package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/company-authz/internal/transport/rest"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

type stubIsolation bool

func (s stubIsolation) CompanyIsolationEnforced() bool { return bool(s) }

func healthRouter(p rest.Pinger) *chi.Mux {
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health: rest.NewHealthHandler(p).WithIsolation(stubIsolation(true)),
	}, rest.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	return router
}

var _ = Describe("Health", func() {
	It("reports ready with the isolation mode", func() {
		w := httptest.NewRecorder()
		healthRouter(stubPinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var body rest.HealthResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.HealthHealthy))
		Expect(body.Components["authorization"].Details).To(HaveKeyWithValue("company_isolation", true))
	})

	It("is unavailable when the database does not answer", func() {
		w := httptest.NewRecorder()
		healthRouter(stubPinger{err: errors.New("dial tcp: refused")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Body.String()).NotTo(ContainSubstring("refused"))
	})

	It("answers the liveness probe without touching the database", func() {
		w := httptest.NewRecorder()
		healthRouter(stubPinger{err: errors.New("down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
	})
})
