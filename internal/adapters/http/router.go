package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/greenside/internal/pkg/metrics"
)

// overlaysSunset is when the stateless overlay endpoint goes away.
var overlaysSunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 300 requests per minute per IP. Presses arrive in bursts
	// while a player pans the map.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/v1/courses/:id/overlays", SunsetDate: overlaysSunset, Alternative: "/v1/map/sessions"},
	}))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/courses", timeout.NewWithContext(ListCoursesHandler(deps), 15*time.Second))
	v1.Get("/courses/:id", timeout.NewWithContext(GetCourseHandler(deps), 15*time.Second))
	v1.Get("/courses/:id/holes", timeout.NewWithContext(CourseHolesHandler(deps), 15*time.Second))
	v1.Get("/courses/:id/overlays", timeout.NewWithContext(CourseOverlaysHandler(deps), 15*time.Second))

	// Map sessions
	v1.Post("/map/sessions", timeout.NewWithContext(OpenSessionHandler(deps), 15*time.Second))
	v1.Get("/map/sessions/:id", GetSessionHandler(deps))
	v1.Put("/map/sessions/:id", UpdateSessionHandler(deps))
	v1.Delete("/map/sessions/:id", CloseSessionHandler(deps))
	v1.Post("/map/sessions/:id/press", PressHandler(deps))
	v1.Get("/map/sessions/:id/scene", SceneHandler(deps))
	v1.Get("/map/sessions/:id/taps", timeout.NewWithContext(SessionTapsHandler(deps), 15*time.Second))

	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket tap relay
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
