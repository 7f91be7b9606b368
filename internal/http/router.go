// Package httpapi wires the HTTP transport (Gin) to the verse, prayer, and
// export services, middleware, and page handlers. It centralizes
// cross-cutting concerns such as tracing, correlation IDs, logging and
// redaction, panic recovery, metrics, compression, rate limiting, CORS,
// security headers, and the session cookie.
//
// Middleware order (RequestID → logging → recovery) keeps every log line and
// every error page correlated with the request.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/daily-verse/internal/config"
	"github.com/tbourn/daily-verse/internal/domain"
	"github.com/tbourn/daily-verse/internal/http/handlers"
	"github.com/tbourn/daily-verse/internal/http/middleware"
	"github.com/tbourn/daily-verse/internal/http/views"
	"github.com/tbourn/daily-verse/internal/locale"
	"github.com/tbourn/daily-verse/internal/repo"
	"github.com/tbourn/daily-verse/internal/services"
	"github.com/tbourn/daily-verse/internal/session"
)

// Stores are the two flat-file collections behind the site.
type Stores struct {
	Verses   repo.Collection[domain.Verse]
	Requests repo.Collection[domain.PrayerRequest]
}

// Paths exempt from tracing, rate limiting, and request metrics.
var (
	probePaths   = []string{"/health", "/metrics"}
	noStorePaths = []string{"/verse", "/prayer", "/export.csv"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and builds the services over stores.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything but probes
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip
//  8. Rate limiter (per IP)
//  9. CORS and Security headers
//  10. Session cookie
func RegisterRoutes(r *gin.Engine, stores Stores, cfg config.Config) error {
	codec, err := session.NewCodec(cfg.Session.Secret, cfg.Session.Window)
	if err != nil {
		return fmt.Errorf("session codec: %w", err)
	}

	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(views.Templates())

	// 1) Trace all page requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName, otelgin.WithFilter(func(req *http.Request) bool {
		return !isProbe(req.URL.Path)
	})))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to a 500 page or JSON (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression (the Prometheus handler negotiates its own)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) Token-bucket rate limiter per IP
	skip := append([]string{"/static/"}, probePaths...)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP(), skip...)
	r.Use(rl.Handler())

	// 9) CORS posture (allow all if none configured) and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStorePaths: noStorePaths,
		CSP:          middleware.DefaultCSP,
	}))

	// 10) Signed cookie carrying the dispense marker
	r.Use(middleware.Session(codec, session.Options{
		Name:   cfg.Session.CookieName,
		Path:   "/",
		Secure: cfg.Session.Secure,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: services ← stores
	labels := locale.For(cfg.Locale)
	verseSvc := &services.VerseService{
		Verses: stores.Verses,
		Window: cfg.Session.Window,
		Labels: labels,
	}
	prayerSvc := &services.PrayerService{Requests: stores.Requests}
	exportSvc := &services.ExportService{Requests: stores.Requests, Labels: labels}
	h := handlers.New(verseSvc, prayerSvc, exportSvc, labels)

	r.GET("/health", h.Health)
	r.StaticFS("/static", http.FS(views.Static()))

	r.GET("/", h.Index)
	r.POST("/verse", h.Verse)
	r.POST("/prayer", h.Prayer)
	r.GET("/export.csv", h.Export)

	return nil
}

func isProbe(path string) bool {
	for _, p := range probePaths {
		if path == p {
			return true
		}
	}
	return false
}

// corsMiddleware mirrors the usual posture: with no allowlist every origin
// is accepted without credentials; otherwise listed origins are echoed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body size using http.MaxBytesReader. Requests
// exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
