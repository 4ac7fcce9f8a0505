package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingQuery struct {
	got audit.Filter
}

func (q *recordingQuery) Query(ctx context.Context, f audit.Filter) ([]*audit.Entry, error) {
	q.got = f
	return []*audit.Entry{{ID: "01A", ResourceType: "company"}}, nil
}

var _ = Describe("Audit Handler", func() {
	var (
		query   *recordingQuery
		handler *audit.Handler
	)

	BeforeEach(func() {
		query = &recordingQuery{}
		handler = audit.NewHandler(transport.NewBaseHandler(quietLogger()), query)
	})

	It("scopes company listings to the resolved company", func() {
		req := httptest.NewRequest(http.MethodGet, "/companies/7/audit-logs?company_id=99&security_only=true&limit=20", nil)
		req = req.WithContext(internal.ContextWithCompanyID(req.Context(), 7))
		w := httptest.NewRecorder()

		handler.ListCompanyEntries(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(*query.got.CompanyID).To(Equal(int64(7)))
		Expect(*query.got.IsSecurityEvent).To(BeTrue())
		Expect(query.got.Limit).To(Equal(20))

		var resp audit.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Count).To(Equal(1))
	})

	It("rejects malformed filters", func() {
		req := httptest.NewRequest(http.MethodGet, "/audit-logs?from=yesterday", nil)
		w := httptest.NewRecorder()

		handler.ListEntries(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("allows an optional company filter on the system-wide listing", func() {
		req := httptest.NewRequest(http.MethodGet, "/audit-logs?company_id=3&actor_id=2", nil)
		w := httptest.NewRecorder()

		handler.ListEntries(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(*query.got.CompanyID).To(Equal(int64(3)))
		Expect(*query.got.ActorID).To(Equal(int64(2)))
	})
})
