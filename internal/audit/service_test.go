package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	auditDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/audit"
	"github.com/frahmantamala/company-authz/internal/core/events"
	"github.com/frahmantamala/company-authz/internal/core/metrics"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

type memoryStore struct {
	mu   sync.Mutex
	rows []*auditDatamodel.AuditLog
	err  error
}

func (m *memoryStore) Append(ctx context.Context, row *auditDatamodel.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *memoryStore) Find(ctx context.Context, f audit.Filter) ([]*auditDatamodel.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*auditDatamodel.AuditLog
	for _, r := range m.rows {
		if f.CompanyID != nil && (r.CompanyID == nil || *r.CompanyID != *f.CompanyID) {
			continue
		}
		if f.IsSecurityEvent != nil && r.IsSecurityEvent != *f.IsSecurityEvent {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Audit Service", func() {
	var (
		store *memoryStore
		bus   *events.EventBus
		svc   *audit.Service
		opts  audit.Options
	)

	JustBeforeEach(func() {
		svc = audit.NewService(store, store, bus, opts, quietLogger())
	})

	BeforeEach(func() {
		store = &memoryStore{}
		bus = events.NewEventBus(quietLogger())
		opts = audit.Options{LogAllActions: true}
	})

	Describe("LogAction", func() {
		It("assigns id, timestamp and origin from the context", func() {
			// Given
			ctx := internal.ContextWithOrigin(context.Background(), internal.Origin{IPAddress: "10.1.1.1", UserAgent: "curl/8", RequestID: "trace-9"})

			// When
			entry, err := svc.LogAction(ctx, audit.Record{
				ActorID:      audit.ID(1),
				CompanyID:    audit.ID(2),
				Action:       catalog.ActionCreate,
				ResourceType: "invoice",
				ResourceID:   "123",
				Details:      map[string]any{"amount": 10},
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ID).To(HaveLen(26))
			Expect(entry.OccurredAt).NotTo(BeZero())
			Expect(entry.IPAddress).To(Equal("10.1.1.1"))
			Expect(entry.RequestID).To(Equal("trace-9"))
			Expect(*entry.ResourceID).To(Equal("123"))
			Expect(store.count()).To(Equal(1))
			Expect(store.rows[0].Details).To(MatchJSON(`{"amount":10}`))
		})

		It("rejects unknown actions and missing resource types", func() {
			_, err := svc.LogAction(context.Background(), audit.Record{Action: "read", ResourceType: "x"})
			Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(BeTrue())

			_, err = svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionCreate})
			Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(BeTrue())
			Expect(store.count()).To(BeZero())
		})

		It("never lets timestamps go backwards when the wall clock does", func() {
			base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
			ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second), base.Add(-time.Hour)}
			var i int
			svc.WithClock(func() time.Time {
				t := ticks[i%len(ticks)]
				i++
				return t
			})

			var stamps []time.Time
			var ids []string
			for range ticks {
				e, err := svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionUpdate, ResourceType: "company"})
				Expect(err).NotTo(HaveOccurred())
				stamps = append(stamps, e.OccurredAt)
				ids = append(ids, e.ID)
			}

			for j := 1; j < len(stamps); j++ {
				Expect(stamps[j].Before(stamps[j-1])).To(BeFalse())
			}
			Expect(sort.StringsAreSorted(ids)).To(BeTrue())
		})

		It("keeps timestamps monotonic under concurrent appends", func() {
			var wg sync.WaitGroup
			for n := 0; n < 50; n++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionView, ResourceType: "report"})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			rows := append([]*auditDatamodel.AuditLog(nil), store.rows...)
			sort.Slice(rows, func(a, b int) bool { return rows[a].ID < rows[b].ID })
			for j := 1; j < len(rows); j++ {
				Expect(rows[j].OccurredAt.Before(rows[j-1].OccurredAt)).To(BeFalse())
			}
			Expect(rows).To(HaveLen(50))
		})

		Context("when the store is unavailable", func() {
			BeforeEach(func() {
				store.err = errors.New("connection reset")
			})

			It("returns a StorageError and raises an operator alert", func() {
				// Given
				alerts := make(chan events.Event, 1)
				bus.Subscribe(events.EventTypeAuditWriteFailed, func(ctx context.Context, e events.Event) error {
					alerts <- e
					return nil
				})
				before := testutil.ToFloat64(metrics.AuditWriteFailures)

				// When
				entry, err := svc.LogAction(context.Background(), audit.Record{
					ActorID:         audit.ID(5),
					Action:          catalog.ActionDenied,
					ResourceType:    "membership",
					IsSecurityEvent: true,
				})

				// Then
				Expect(entry).To(BeNil())
				Expect(internal.IsErrorType(err, internal.ErrorTypeStorage)).To(BeTrue())
				Eventually(alerts).Should(Receive(WithTransform(func(e events.Event) string { return e.EventType() }, Equal(events.EventTypeAuditWriteFailed))))
				Expect(testutil.ToFloat64(metrics.AuditWriteFailures)).To(Equal(before + 1))
			})

			It("only logs from LogBestEffort", func() {
				Expect(func() {
					svc.LogBestEffort(context.Background(), audit.Record{Action: catalog.ActionCreate, ResourceType: "company"})
				}).NotTo(Panic())
			})
		})

		Context("with security_events_only", func() {
			BeforeEach(func() {
				opts = audit.Options{SecurityEventsOnly: true, LogAllActions: true}
			})

			It("persists only security events", func() {
				entry, err := svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionCreate, ResourceType: "company"})
				Expect(err).NotTo(HaveOccurred())
				Expect(entry).To(BeNil())

				entry, err = svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionDenied, ResourceType: "company", IsSecurityEvent: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(entry).NotTo(BeNil())
				Expect(store.count()).To(Equal(1))
			})
		})

		Context("without log_all_actions", func() {
			BeforeEach(func() {
				opts = audit.Options{LogAllActions: false}
			})

			It("drops plain reads but keeps mutations and security reads", func() {
				e, _ := svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionView, ResourceType: "report"})
				Expect(e).To(BeNil())

				e, _ = svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionView, ResourceType: "report", IsSecurityEvent: true})
				Expect(e).NotTo(BeNil())

				e, _ = svc.LogAction(context.Background(), audit.Record{Action: catalog.ActionUpdate, ResourceType: "company"})
				Expect(e).NotTo(BeNil())
				Expect(store.count()).To(Equal(2))
			})
		})
	})

	Describe("Query", func() {
		It("rejects an inverted time range", func() {
			from := time.Now()
			to := from.Add(-time.Hour)
			_, err := svc.Query(context.Background(), audit.Filter{From: &from, To: &to})
			Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("returns decoded entries", func() {
			_, err := svc.LogAction(context.Background(), audit.Record{CompanyID: audit.ID(4), Action: catalog.ActionAssignRole, ResourceType: "membership", Details: map[string]any{"role": "manager"}, IsSecurityEvent: true})
			Expect(err).NotTo(HaveOccurred())

			entries, err := svc.Query(context.Background(), audit.Filter{CompanyID: audit.ID(4)})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Details).To(HaveKeyWithValue("role", "manager"))
		})

		It("wraps reader failures as StorageError", func() {
			store.err = errors.New("timeout")
			_, err := svc.Query(context.Background(), audit.Filter{})
			Expect(internal.IsErrorType(err, internal.ErrorTypeStorage)).To(BeTrue())
		})
	})
})
