package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	PythonPath      string
	MfluxModule     string
	MfluxModel      string
	GenerateTimeout time.Duration
	WorkDir         string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string

	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the peer
	// address. Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	var errs []error
	seconds := func(key string, fallback int) time.Duration {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return time.Duration(v) * time.Second
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("MLX_IMAGE_PORT", getEnv("PORT", "8189")),
		PythonPath:       getEnv("MFLUX_PYTHON", "python3"),
		MfluxModule:      getEnv("MFLUX_MODULE", "mflux.generate"),
		MfluxModel:       getEnv("MFLUX_MODEL", "schnell"),
		GenerateTimeout:  seconds("MFLUX_TIMEOUT_SECONDS", 300),
		WorkDir:          os.Getenv("MFLUX_WORKDIR"),
		HTTPReadTimeout:  seconds("HTTP_READ_TIMEOUT_SECONDS", 15),
		HTTPWriteTimeout: seconds("HTTP_WRITE_TIMEOUT_SECONDS", 330),
		HTTPIdleTimeout:  seconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
	rateLimit, err := getEnvInt("RATE_LIMIT_PER_MINUTE", 0)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.RateLimitPerMin = rateLimit
	cfg.TrustProxyHeaders = getEnv("TRUST_PROXY_HEADERS", "false") == "true"
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid port %q", cfg.Port)
	}
	if cfg.GenerateTimeout <= 0 {
		return nil, fmt.Errorf("MFLUX_TIMEOUT_SECONDS must be positive")
	}
	// A zero write timeout means no deadline at all.
	if cfg.HTTPWriteTimeout < 0 || (cfg.HTTPWriteTimeout > 0 && cfg.HTTPWriteTimeout <= cfg.GenerateTimeout) {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT_SECONDS (%s) must exceed MFLUX_TIMEOUT_SECONDS (%s)",
			cfg.HTTPWriteTimeout, cfg.GenerateTimeout)
	}
	if strings.TrimSpace(cfg.PythonPath) == "" || strings.TrimSpace(cfg.MfluxModule) == "" {
		return nil, fmt.Errorf("MFLUX_PYTHON and MFLUX_MODULE are required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: not an integer", key, v)
	}
	return i, nil
}

func splitList(raw string) []string {
	items := lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Uniq(lo.Compact(items))
}
