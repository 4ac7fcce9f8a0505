package postgres_test

import (
	"context"
	"errors"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/frahmantamala/company-authz/internal/audit"
	auditPostgres "github.com/frahmantamala/company-authz/internal/audit/postgres"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var auditColumns = []string{
	"id", "actor_id", "company_id", "action", "resource_type", "resource_id", "details",
	"is_security_event", "ip_address", "user_agent", "request_id", "occurred_at",
}

var _ = Describe("QueryRepository", func() {
	var (
		mock sqlmock.Sqlmock
		repo audit.ReaderAPI
	)

	BeforeEach(func() {
		mockDB, m, err := sqlmock.New()
		Expect(err).NotTo(HaveOccurred())
		mock = m
		repo = auditPostgres.NewQueryRepository(sqlx.NewDb(mockDB, "sqlmock"))
		DeferCleanup(mockDB.Close)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("filters by company and security flag in timestamp order", func() {
		// Given
		company := int64(10)
		security := true
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`FROM audit_logs WHERE is_security_event = \? AND company_id = \? ORDER BY occurred_at ASC, id ASC LIMIT \?`).
			WithArgs(true, int64(10), audit.DefaultQueryLimit).
			WillReturnRows(sqlmock.NewRows(auditColumns).
				AddRow("01A", int64(2), int64(10), "denied", "membership", nil, `{"reason":"permission_denied"}`, true, "10.0.0.1", "curl", "trace-1", at).
				AddRow("01B", nil, int64(10), "denied", "authentication", nil, `{}`, true, "", "", "", at.Add(time.Second)))

		// When
		rows, err := repo.Find(context.Background(), audit.Filter{CompanyID: &company, IsSecurityEvent: &security})

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(*rows[0].ActorID).To(Equal(int64(2)))
		Expect(rows[1].ActorID).To(BeNil())
		Expect(rows[0].OccurredAt).To(Equal(at))
	})

	It("applies the time range and actor filters", func() {
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.Add(24 * time.Hour)
		actor := int64(4)
		mock.ExpectQuery(`WHERE occurred_at >= \? AND occurred_at <= \? AND actor_id = \? ORDER BY`).
			WithArgs(from, to, int64(4), 5).
			WillReturnRows(sqlmock.NewRows(auditColumns))

		rows, err := repo.Find(context.Background(), audit.Filter{From: &from, To: &to, ActorID: &actor, Limit: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})

	It("returns store errors to the caller", func() {
		mock.ExpectQuery(`FROM audit_logs ORDER BY`).WillReturnError(errors.New("connection refused"))

		_, err := repo.Find(context.Background(), audit.Filter{})
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
	})
})
