package internal

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	// TrustedProxies lists the CIDRs or addresses allowed to set
	// X-Forwarded-For and X-Real-IP. Empty trusts nobody.
	TrustedProxies    string        `mapstructure:"trusted_proxies"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// AuthorizationConfig carries the decision and audit switches.
type AuthorizationConfig struct {
	EnforceCompanyIsolation bool `mapstructure:"enforce_company_isolation"`
	LogAllActions           bool `mapstructure:"log_all_actions"`
	SecurityEventsOnly      bool `mapstructure:"security_events_only"`
}

// RateLimitConfig sets the per-user budget and a separate, larger budget per
// client address, since many users can share one address behind NAT.
type RateLimitConfig struct {
	Enabled               bool `mapstructure:"enabled"`
	WindowSeconds         int  `mapstructure:"window_seconds"`
	MaxRequests           int  `mapstructure:"max_requests"`
	MaxRequestsPerAddress int  `mapstructure:"max_requests_per_address"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// Defaults lists the values applied before the config file and environment.
func Defaults() map[string]any {
	return map[string]any{
		"http_server.port":                        8080,
		"http_server.read_header_timeout":         5 * time.Second,
		"http_server.read_timeout":                15 * time.Second,
		"http_server.write_timeout":               15 * time.Second,
		"http_server.idle_timeout":                60 * time.Second,
		"http_server.request_timeout":             10 * time.Second,
		"database.max_open_conns":                 20,
		"database.max_idle_conns":                 5,
		"database.conn_max_lifetime":              30 * time.Minute,
		"database.conn_max_idle_time":             5 * time.Minute,
		"security.access_token_duration":          15 * time.Minute,
		"security.refresh_token_duration":         7 * 24 * time.Hour,
		"security.bcrypt_cost":                    12,
		"authorization.enforce_company_isolation": true,
		"authorization.log_all_actions":           true,
		"authorization.security_events_only":      false,
		"rate_limit.enabled":                      true,
		"rate_limit.window_seconds":               60,
		"rate_limit.max_requests":                 100,
		"rate_limit.max_requests_per_address":     1000,
		"observability.metrics.enabled":           true,
		"observability.metrics.path":              "/metrics",
		"observability.logging.level":             "info",
		"observability.logging.format":            "text",
	}
}

// LoadConfigFromEnv builds the config from plain environment variables, used
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			TrustedProxies:    getEnv("TRUSTED_PROXIES", ""),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:    getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("JWT_ACCESS_SECRET", ""),
			RefreshTokenSecret:   getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
		},
		Authorization: AuthorizationConfig{
			EnforceCompanyIsolation: getEnvAsBool("ENFORCE_COMPANY_ISOLATION", true),
			LogAllActions:           getEnvAsBool("LOG_ALL_ACTIONS", true),
			SecurityEventsOnly:      getEnvAsBool("SECURITY_EVENTS_ONLY", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:         getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			MaxRequests:           getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
			MaxRequestsPerAddress: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS_PER_ADDRESS", 1000),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a
// single-host prefix.
func (c *ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, raw := range strings.Split(c.TrustedProxies, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %s: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %s: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access_token_secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh_token_secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.WindowSeconds <= 0 {
		return errors.New("window_seconds must be positive")
	}
	if c.MaxRequests <= 0 {
		return errors.New("max_requests must be positive")
	}
	if c.MaxRequestsPerAddress <= 0 {
		return errors.New("max_requests_per_address must be positive")
	}
	return nil
}

// Window returns the rate limit window as a duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c *ObservabilityConfig) Validate() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics path must start with /")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
