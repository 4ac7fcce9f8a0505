package middleware

import (
	"net/http"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("log masking", func() {
	ginkgo.It("masks credentials in nested JSON", func() {
		out := maskBody([]byte(`{"email":"alice@example.com","password":"hunter2","nested":[{"refresh_token":"abc"}]}`))

		gomega.Expect(out).To(gomega.ContainSubstring(`"email":"alice@example.com"`))
		gomega.Expect(out).NotTo(gomega.ContainSubstring("hunter2"))
		gomega.Expect(out).NotTo(gomega.ContainSubstring("abc"))
	})

	ginkgo.It("drops plain bodies that mention a secret", func() {
		gomega.Expect(maskBody([]byte("password=hunter2"))).To(gomega.Equal(redacted))
		gomega.Expect(maskBody([]byte("role=admin"))).To(gomega.Equal("role=admin"))
	})

	ginkgo.It("refuses oversized bodies", func() {
		gomega.Expect(maskBody([]byte(strings.Repeat("a", maxLoggedBody+1)))).To(gomega.Equal("[TRUNCATED]"))
	})

	ginkgo.It("masks the authorization header", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer xyz")
		h.Set("Accept", "application/json")

		masked := maskHeaders(h)
		gomega.Expect(masked["Authorization"]).To(gomega.Equal(redacted))
		gomega.Expect(masked["Accept"]).To(gomega.Equal("application/json"))
	})
})
