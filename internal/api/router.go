// Package api serves the mobile app's HTTP endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crewlog/internal/attendance"
	"crewlog/internal/auth"
	"crewlog/internal/httpmiddleware"
	"crewlog/internal/metrics"
	"crewlog/internal/reminder"
	"crewlog/internal/roster"
	"crewlog/internal/session"
	"crewlog/pkg/logger"
)

// RecordStore is what the fleet panel reads confirmed records from.
type RecordStore interface {
	GetRecord(ctx context.Context, id string) (attendance.Record, error)
	ListRecords(ctx context.Context, f attendance.Filter) ([]attendance.Record, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the collaborators the router is built from.
type Deps struct {
	Directory *roster.Directory
	Sessions  session.Backend
	Tokens    *auth.Issuer
	Forms     *attendance.FormService
	// Records is nil when no database is configured; panel routes then answer 503.
	Records RecordStore
	Clock   reminder.Clock
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	Location       *time.Location
	Now            func() time.Time
	Health         map[string]HealthCheck
	MetricsHandler http.Handler
	CORSOrigins    []string

	RateLimitPerMin      int
	LoginRateLimitPerMin int
}

type server struct {
	Deps
	log *zap.Logger
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Clock == (reminder.Clock{}) {
		d.Clock = reminder.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	if d.MetricsHandler == nil {
		d.MetricsHandler = promhttp.Handler()
	}
	s := &server{Deps: d, log: logger.Or(d.Logger)}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log, "/healthz", "/metrics"))
	r.Use(corsMiddleware(d.CORSOrigins))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin).GinMiddleware(httpmiddleware.ClientIP))

	r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	r.GET("/healthz", s.healthz)

	loginLimit := httpmiddleware.NewSimpleTokenBucket(d.LoginRateLimitPerMin, d.LoginRateLimitPerMin)
	r.POST("/v1/login", loginLimit.GinMiddleware(httpmiddleware.ClientIP), s.login)
	r.POST("/v1/token/refresh", s.refresh)

	authed := r.Group("/v1", auth.RequireSession(d.Tokens, d.Sessions, s.log))
	authed.POST("/logout", s.logout)
	authed.GET("/session", s.currentSession)
	authed.GET("/home", s.home)

	form := authed.Group("/form", auth.RequireRole(roster.Driver))
	form.GET("", s.openForm)
	form.POST("/crew/:id/toggle", s.toggleCrew)
	form.POST("/submit", s.submitForm)
	form.POST("/confirm", s.confirmForm)
	form.POST("/cancel", s.cancelForm)

	panel := authed.Group("/panel", auth.RequireRole(roster.FleetCoordinator), s.requireRecords)
	panel.GET("/records", s.listRecords)
	panel.GET("/records/:id", s.getRecord)
	panel.GET("/export", s.exportRecords)

	return r
}

func (s *server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func requestLogger(log *zap.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if skipped[c.Request.URL.Path] {
			return
		}
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
