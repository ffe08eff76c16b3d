package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig holds the transport tunables
type RouterConfig struct {
	SecretKey          string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	AdminRatePerMinute int

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// NewRouter builds the HTTP API
func NewRouter(h *Handler, cfg RouterConfig, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(APIKeyMiddleware(cfg.SecretKey))

		// Waiting routes stay open until the next restock
		r.Get("/listen-for-restock", h.ListenForRestock)
		r.Get("/stream", h.Stream)

		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
			}
			r.Get("/stock", h.GetStock)

			r.Group(func(r chi.Router) {
				if cfg.MaxRequestBodySize > 0 {
					r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
				}
				r.Use(RateLimitMiddleware(NewAdminLimiter(cfg.AdminRatePerMinute)))

				r.Post("/force-restock", h.ForceRestock)
				r.Post("/set-timer", h.SetTimer)
				r.Post("/set-stock", h.SetStock)
			})
		})
	})

	// The websocket route needs the raw writer for hijacking
	return otelhttp.NewHandler(r, "restock-service",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/stream"
		}),
	)
}
