package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/frahmantamala/company-authz/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("request fields", func() {
	It("accumulates fields and tags the given logger", func() {
		ctx := logger.With(context.Background(), "traceID", "req-1")
		ctx = logger.With(ctx, "user_id", int64(2))

		var buf bytes.Buffer
		base := slog.New(slog.NewTextHandler(&buf, nil))
		logger.Enrich(ctx, base).Info("denied")

		Expect(buf.String()).To(ContainSubstring("traceID=req-1"))
		Expect(buf.String()).To(ContainSubstring("user_id=2"))
	})

	It("leaves the logger alone without fields", func() {
		base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		Expect(logger.Enrich(context.Background(), base)).To(BeIdenticalTo(base))
	})

	It("routes operator alerts on their own channel", func() {
		var buf bytes.Buffer
		logger.Configure(&buf, "info", "json")
		logger.Operator().Error("audit entry lost")
		Expect(buf.String()).To(ContainSubstring(`"channel":"operator_alert"`))
	})
})
