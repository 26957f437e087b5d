package http

import (
	"log/slog"
	"net/http"
	"time"

	"casetrack/internal/handler/http/auth"
	"casetrack/internal/handler/http/requestid"
	"casetrack/internal/observability/tracing"
)

// RouterConfig configures the intake middleware chain.
type RouterConfig struct {
	Logger         *slog.Logger
	Auth           auth.Config
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wraps h with the middleware chain, outermost first: request
// id, tracing, logging, recover, metrics, input limits, timeout, auth.
func NewRouter(h http.Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}

	h = auth.Authz(cfg.Auth)(h)
	h = Timeout(cfg.RequestTimeout)(h)
	h = InputLimits(cfg.MaxBodyBytes)(h)
	h = MetricsMiddleware(h)
	h = Recover(logger)(h)
	h = Logging(logger)(h)
	h = tracing.Middleware(h)
	return requestid.Middleware(h)
}
