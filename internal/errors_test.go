package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("finds the type through wrapping", func() {
		err := fmt.Errorf("remove member: %w", internal.ErrLastAdmin)

		Expect(internal.IsErrorType(err, internal.ErrorTypeInvariantViolation)).To(BeTrue())
		Expect(internal.IsErrorType(err, internal.ErrorTypeForbidden)).To(BeFalse())
		Expect(internal.IsErrorType(errors.New("plain"), internal.ErrorTypeInternal)).To(BeFalse())
	})

	It("maps each category to its status", func() {
		cases := map[*internal.AppError]int{
			internal.NewValidationError("bad", internal.ErrCodeValidationFailed): http.StatusBadRequest,
			internal.ErrNotAuthorized:                                           http.StatusForbidden,
			internal.NewPrivilegeEscalationError("no"):                          http.StatusForbidden,
			internal.ErrLastAdmin:                                               http.StatusConflict,
			internal.ErrMembershipNotFound:                                      http.StatusNotFound,
			internal.NewRateLimitedError():                                      http.StatusTooManyRequests,
			internal.NewStorageError("down", errors.New("eof")):                 http.StatusServiceUnavailable,
		}
		for appErr, status := range cases {
			code, _ := appErr.ToHTTPResponse()
			Expect(code).To(Equal(status), string(appErr.Type))
		}
	})

	It("never serializes the cause", func() {
		appErr := internal.NewStorageError("membership store unavailable", errors.New("pq: password authentication failed"))

		raw, err := json.Marshal(appErr)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).NotTo(ContainSubstring("password authentication"))
		Expect(errors.Unwrap(appErr)).To(MatchError("pq: password authentication failed"))
	})

	It("keeps the denial message generic", func() {
		Expect(internal.ErrNotAuthorized.Error()).To(Equal("not authorized"))
	})
})
