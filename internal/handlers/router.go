// Package handlers exposes the public site, the lead endpoint and the admin
// back office over HTTP.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"grahalia-estates/internal/auth"
	"grahalia-estates/internal/catalog"
	"grahalia-estates/internal/cleanup"
	"grahalia-estates/internal/gallery"
	"grahalia-estates/internal/history"
	"grahalia-estates/internal/leads"
	"grahalia-estates/internal/listing"
	"grahalia-estates/internal/notify"
	"grahalia-estates/internal/scheduler"
	"grahalia-estates/internal/search"
	"grahalia-estates/internal/storage"
)

// Services are the collaborators the handlers call. Worker and Scheduler
// may be nil when the process runs without background jobs.
type Services struct {
	Catalog   *catalog.Service
	Listings  *listing.Service
	Gallery   *gallery.Service
	Leads     *leads.Service
	History   *history.Service
	Cleanup   *cleanup.Service
	Search    *search.Service
	Outbox    *notify.Outbox
	Worker    *notify.Worker
	Scheduler *scheduler.Scheduler
	Auth      *auth.Authenticator
	Store     *storage.Store
}

// Options tune the router
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	LogRequests    bool
	FeaturedLimit  int
	TrustedProxies []string
}

// Handler holds the route handlers
type Handler struct {
	svc    Services
	opts   Options
	logger *slog.Logger
}

// NewRouter builds the gin engine with every route registered. Forwarded
// client addresses are only honored from opts.TrustedProxies.
func NewRouter(svc Services, opts Options, logger *slog.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FeaturedLimit <= 0 {
		opts.FeaturedLimit = 6
	}
	h := &Handler{svc: svc, opts: opts, logger: logger}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	if opts.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = opts.MaxUploadBytes
	}
	r.Use(RequestID())
	if opts.LogRequests {
		r.Use(RequestLogger(logger))
	}
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", RequestIDHeader},
			AllowCredentials: true,
		}))
	}

	if svc.Store != nil {
		r.StaticFS(svc.Store.PublicPath(), svc.Store.FileSystem())
	}

	r.GET("/health", h.Health)
	r.GET("/", h.RootRedirect)

	site := r.Group("/:lang", Locale())
	{
		site.GET("", h.Home)
		site.GET("/properties", h.Properties)
		site.GET("/properties/:slug", h.PropertyDetail)
		site.GET("/features", h.Features)
	}

	api := r.Group("/api")
	{
		api.POST("/leads", h.SubmitLead)
		api.GET("/:lang/search", h.Search)
		api.GET("/admin/leads/export", svc.Auth.RequireAdminAPI(), h.ExportLeads)
	}

	r.GET(auth.LoginPath, h.LoginPage)
	r.POST(auth.LoginPath, h.Login)
	r.POST("/admin/logout", h.Logout)

	admin := r.Group("/admin", svc.Auth.RequireAdmin())
	{
		admin.GET("", h.Dashboard)

		admin.GET("/properties", h.AdminProperties)
		admin.GET("/properties/new", h.NewProperty)
		admin.POST("/properties", h.CreateProperty)
		admin.GET("/properties/:id", h.EditProperty)
		admin.POST("/properties/:id", h.UpdateProperty)
		admin.POST("/properties/:id/images", h.PropertyImages)
		admin.POST("/properties/:id/plans", h.PropertyPlans)

		admin.GET("/leads", h.AdminLeads)
		admin.GET("/leads/:id", h.AdminLead)
		admin.POST("/leads/:id/processed", h.MarkLeadProcessed)

		admin.GET("/delete-logs", h.DeleteLogs)
		admin.GET("/changes", h.RecentChanges)
		admin.POST("/maintenance/run", h.RunMaintenance)
	}

	r.NoRoute(h.NotFound)
	return r, nil
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"search_enabled": h.svc.Search != nil && h.svc.Search.Enabled(),
	})
}

// NotFound sends page paths without a language prefix to the negotiated
// language and answers 404 JSON for everything else.
func (h *Handler) NotFound(c *gin.Context) {
	path := c.Request.URL.Path
	if c.Request.Method == http.MethodGet && isPagePath(path) {
		redirectToLocale(c, path)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

// isPagePath reports whether path is a public page outside the reserved
// prefixes and without a supported language segment.
func isPagePath(path string) bool {
	for _, prefix := range []string{"/api", "/admin", "/uploads", "/health"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return false
		}
	}
	first := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	return !isLang(first)
}
