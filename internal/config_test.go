package internal_test

import (
	"time"

	"github.com/frahmantamala/company-authz/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validConfig() *internal.Config {
	return &internal.Config{
		Server: internal.ServerConfig{
			Port:              8080,
			AllowedOrigins:    "http://localhost:3000, *",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
		},
		Database: internal.DatabaseConfig{
			Source:       "postgres://localhost/authz",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Security: internal.SecurityConfig{
			AccessTokenSecret:  "access-secret-access-secret-access-secret",
			RefreshTokenSecret: "refresh-secret-refresh-secret-refresh-sec",
			BCryptCost:         12,
		},
		RateLimit: internal.RateLimitConfig{Enabled: true, WindowSeconds: 60, MaxRequests: 100, MaxRequestsPerAddress: 1000},
		Observability: internal.ObservabilityConfig{
			Metrics: internal.MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: internal.LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

var _ = Describe("Config", func() {
	It("accepts a complete configuration", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	It("joins the errors of every section", func() {
		cfg := validConfig()
		cfg.Database.Source = ""
		cfg.Security.RefreshTokenSecret = cfg.Security.AccessTokenSecret

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("database config: source is required"))
		Expect(err.Error()).To(ContainSubstring("secrets must differ"))
	})

	It("rejects an unusable rate limit only when enabled", func() {
		cfg := validConfig()
		cfg.RateLimit.MaxRequests = 0
		Expect(cfg.Validate()).NotTo(Succeed())

		cfg.RateLimit.Enabled = false
		Expect(cfg.Validate()).To(Succeed())

		cfg = validConfig()
		cfg.RateLimit.MaxRequestsPerAddress = 0
		Expect(cfg.Validate()).NotTo(Succeed())
	})

	Describe("trusted proxies", func() {
		It("trusts nobody when unset", func() {
			prefixes, err := validConfig().Server.TrustedProxyPrefixes()
			Expect(err).NotTo(HaveOccurred())
			Expect(prefixes).To(BeEmpty())
		})

		It("accepts CIDRs and bare addresses", func() {
			cfg := validConfig()
			cfg.Server.TrustedProxies = "10.0.0.0/8, 192.168.1.7 ,fd00::/8"

			prefixes, err := cfg.Server.TrustedProxyPrefixes()
			Expect(err).NotTo(HaveOccurred())
			Expect(prefixes).To(HaveLen(3))
			Expect(prefixes[0].String()).To(Equal("10.0.0.0/8"))
			Expect(prefixes[1].String()).To(Equal("192.168.1.7/32"))
			Expect(prefixes[2].String()).To(Equal("fd00::/8"))
		})

		It("rejects entries that are not addresses", func() {
			cfg := validConfig()
			cfg.Server.TrustedProxies = "10.0.0.0/8,proxy.internal"

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid trusted proxy proxy.internal"))
		})
	})

	It("rejects unknown log levels and relative metrics paths", func() {
		cfg := validConfig()
		cfg.Observability.Logging.Level = "trace"
		Expect(cfg.Validate()).NotTo(Succeed())

		cfg = validConfig()
		cfg.Observability.Metrics.Path = "metrics"
		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("turns the window into a duration", func() {
		rl := internal.RateLimitConfig{WindowSeconds: 60}
		Expect(rl.Window()).To(Equal(time.Minute))
	})

	It("defaults to enforcing company isolation and logging everything", func() {
		d := internal.Defaults()
		Expect(d).To(HaveKeyWithValue("authorization.enforce_company_isolation", true))
		Expect(d).To(HaveKeyWithValue("authorization.log_all_actions", true))
		Expect(d).To(HaveKeyWithValue("authorization.security_events_only", false))
		Expect(d).To(HaveKeyWithValue("rate_limit.window_seconds", 60))
		Expect(d).To(HaveKeyWithValue("rate_limit.max_requests", 100))
		Expect(d).To(HaveKeyWithValue("rate_limit.max_requests_per_address", 1000))
	})

	It("reads container settings from the environment", func() {
		GinkgoT().Setenv("DATABASE_URL", "postgres://db/authz")
		GinkgoT().Setenv("ENFORCE_COMPANY_ISOLATION", "false")
		GinkgoT().Setenv("RATE_LIMIT_MAX_REQUESTS", "3")
		GinkgoT().Setenv("TRUSTED_PROXIES", "10.0.0.0/8")

		cfg := internal.LoadConfigFromEnv()
		Expect(cfg.Database.Source).To(Equal("postgres://db/authz"))
		Expect(cfg.Authorization.EnforceCompanyIsolation).To(BeFalse())
		Expect(cfg.RateLimit.MaxRequests).To(Equal(3))
		Expect(cfg.RateLimit.MaxRequestsPerAddress).To(Equal(1000))
		Expect(cfg.Server.TrustedProxies).To(Equal("10.0.0.0/8"))
	})
})
