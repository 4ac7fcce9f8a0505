package authz_test

import (
	"context"
	"errors"
	"sync"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/authz"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/metrics"
	"github.com/frahmantamala/company-authz/internal/core/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []audit.Record
	err     error
}

func (f *fakeRecorder) LogAction(ctx context.Context, rec audit.Record) (*audit.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.records = append(f.records, rec)
	return &audit.Entry{Action: rec.Action}, nil
}

var _ = Describe("Enforcer", func() {
	var (
		members  *fakeMembers
		recorder *fakeRecorder
		enforcer *authz.Enforcer
		ctx      context.Context

		root  = &user.User{ID: 1, IsSuperAdmin: true, IsActive: true}
		alice = &user.User{ID: 2, IsActive: true}
		bob   = &user.User{ID: 3, IsActive: true}
	)

	BeforeEach(func() {
		ctx = context.Background()
		members = newFakeMembers()
		members.set(alice.ID, companyA, catalog.RoleAdmin)
		members.set(bob.ID, companyA, catalog.RoleEmployee)
		recorder = &fakeRecorder{}
		enforcer = authz.NewEnforcer(authz.NewEngine(members, &staticPolicy{enforced: true}), recorder, quietLogger())
	})

	It("allows a request when every permission holds", func() {
		err := enforcer.Authorize(ctx, authz.Request{
			User:        alice,
			CompanyID:   companyA,
			Permissions: []catalog.Permission{catalog.PermissionViewCompany, catalog.PermissionManageUsers},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.records).To(BeEmpty())
	})

	It("writes exactly one denial entry for a missing permission", func() {
		before := testutil.ToFloat64(metrics.AuthzDecisions.WithLabelValues(string(catalog.PermissionManageUsers), metrics.OutcomeDeny))

		err := enforcer.Authorize(ctx, authz.Request{
			User:         bob,
			CompanyID:    companyA,
			Permissions:  []catalog.Permission{catalog.PermissionViewCompany, catalog.PermissionManageUsers, catalog.PermissionAssignRole},
			ResourceType: "membership",
		})

		Expect(err).To(MatchError(internal.ErrNotAuthorized))
		Expect(err.Error()).To(Equal("not authorized"))
		Expect(recorder.records).To(HaveLen(1))

		rec := recorder.records[0]
		Expect(rec.Action).To(Equal(catalog.ActionDenied))
		Expect(rec.IsSecurityEvent).To(BeTrue())
		Expect(*rec.ActorID).To(Equal(bob.ID))
		Expect(*rec.CompanyID).To(Equal(companyA))
		Expect(rec.ResourceType).To(Equal("membership"))
		Expect(rec.Details).To(HaveKeyWithValue("reason", "permission_denied"))

		after := testutil.ToFloat64(metrics.AuthzDecisions.WithLabelValues(string(catalog.PermissionManageUsers), metrics.OutcomeDeny))
		Expect(after - before).To(Equal(1.0))
	})

	It("flags cross-company attempts", func() {
		err := enforcer.Authorize(ctx, authz.Request{
			User:        alice,
			CompanyID:   companyB,
			Permissions: []catalog.Permission{catalog.PermissionViewReports},
		})

		Expect(err).To(MatchError(internal.ErrNotAuthorized))
		Expect(recorder.records).To(HaveLen(1))
		Expect(recorder.records[0].Details).To(HaveKeyWithValue("reason", "cross_company"))
	})

	It("records super-admin access to a company without membership", func() {
		err := enforcer.Authorize(ctx, authz.Request{
			User:        root,
			CompanyID:   companyB,
			Permissions: []catalog.Permission{catalog.PermissionViewAuditLogs},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.records).To(HaveLen(1))
		Expect(recorder.records[0].Action).To(Equal(catalog.ActionSuperAdminAccess))
		Expect(recorder.records[0].IsSecurityEvent).To(BeTrue())
	})

	It("does not record super-admin access outside any company", func() {
		err := enforcer.Authorize(ctx, authz.Request{
			User:        root,
			CompanyID:   authz.NoCompany,
			Permissions: []catalog.Permission{catalog.PermissionCreateCompany},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.records).To(BeEmpty())
	})

	It("denies global permissions to company admins", func() {
		err := enforcer.Authorize(ctx, authz.Request{
			User:        alice,
			CompanyID:   authz.NoCompany,
			Permissions: []catalog.Permission{catalog.PermissionCreateCompany},
		})

		Expect(err).To(MatchError(internal.ErrNotAuthorized))
		Expect(recorder.records).To(HaveLen(1))
		Expect(recorder.records[0].CompanyID).To(BeNil())
	})

	It("still rejects when the audit log is down", func() {
		recorder.err = internal.NewStorageError("audit log unavailable", errors.New("disk full"))

		err := enforcer.Authorize(ctx, authz.Request{
			User:        bob,
			CompanyID:   companyA,
			Permissions: []catalog.Permission{catalog.PermissionManageUsers},
		})

		Expect(err).To(MatchError(internal.ErrNotAuthorized))
	})

	It("propagates store failures without allowing", func() {
		members.err = internal.NewStorageError("membership store unavailable", errors.New("timeout"))

		err := enforcer.Authorize(ctx, authz.Request{
			User:        alice,
			CompanyID:   companyA,
			Permissions: []catalog.Permission{catalog.PermissionViewCompany},
		})

		Expect(internal.IsErrorType(err, internal.ErrorTypeStorage)).To(BeTrue())
		Expect(recorder.records).To(BeEmpty())
	})

	It("rejects a request without a user", func() {
		err := enforcer.Authorize(ctx, authz.Request{CompanyID: companyA, Permissions: []catalog.Permission{catalog.PermissionViewCompany}})
		Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})
})
