package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "soundpulse/api/v1"
	"soundpulse/internal/config"
	"soundpulse/internal/http"
	"soundpulse/internal/jobs"
)

// publicCORSConfig is the CORS setup shared by the public ingestion
// endpoints, which players call cross-origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// SetupSession configures session management on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes mounts all application routes with a coordinator
// created from the server's own database manager. The running binary
// mounts via MountAPIRoutes instead so HTTP triggers and the
// scheduler's periodic refresh share one coordinator.
func MountAppRoutes(srv *cartridge.Server) {
	SetupSession(srv)
	coordinator := jobs.NewCoordinator(srv.GetDBManager(), srv.GetLogger(), config.GetConfig())
	MountAPIRoutes(srv, coordinator)
}

// MountAPIRoutes mounts the route surface against the given batch
// coordinator. Session setup happens separately.
func MountAPIRoutes(srv *cartridge.Server, coordinator *jobs.Coordinator) {
	cfg := config.GetConfig()

	// Rate limiting only applies in production; in development and test
	// it would interfere with rapid-fire requests.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Public event ingestion: 70 requests per minute per IP handles
	// legitimate player traffic while capping abuse.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Stricter limit on login to slow brute-force attempts.
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public API config: CORS runs first so rejected requests still
	// carry CORS headers.
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	loginConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}

	scores := http.NewScoresHandler(coordinator)

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)
	srv.Get("/metrics", http.MetricsAction)

	// === PUBLIC API ROUTES ===
	srv.Post("/x/api/v1/events", v1.CreateEventPublicAPIHandler, publicAPIConfig)
	srv.Options("/x/api/v1/events", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === AUTHENTICATION ROUTES ===
	srv.Post("/login", http.ProcessLoginAction, loginConfig)
	srv.Post("/logout", http.LogoutAction)

	// === STATS ROUTES ===
	// Handlers resolve the session themselves and answer 401/403 as
	// JSON, so no redirecting session middleware is attached here.
	srv.Get("/stats/analytics", http.AnalyticsStatsAction)
	srv.Get("/dashboard/stats", http.DashboardStatsAction)
	srv.Get("/stats/artists/top", scores.TopArtistsAction)
	srv.Get("/stats/artist/:id/strength", scores.ArtistStrengthAction)
	srv.Post("/stats/batch-calculate", scores.BatchCalculateAction)
	srv.Get("/stats/batch-calculate/:jobId", scores.BatchStatusAction)
}
