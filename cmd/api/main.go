package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/greenside/internal/adapters/http"
	natsadapter "github.com/samirrijal/greenside/internal/adapters/nats"
	"github.com/samirrijal/greenside/internal/adapters/postgres"
	"github.com/samirrijal/greenside/internal/adapters/render"
	"github.com/samirrijal/greenside/internal/adapters/valkey"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
	"github.com/samirrijal/greenside/internal/core/ports"
	"github.com/samirrijal/greenside/internal/core/usecases"
	"github.com/samirrijal/greenside/internal/pkg/config"
	"github.com/samirrijal/greenside/internal/pkg/logging"
	"github.com/samirrijal/greenside/internal/pkg/metrics"
	"github.com/samirrijal/greenside/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("greenside-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.SampleRatio)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer flushCancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Cache (optional)
	var cache ports.CacheService
	vk, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		vk = nil
	} else {
		cache = vk
		defer vk.Close()
	}

	// Tap publisher (optional)
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, taps will not be published", "error", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	// Raw NATS connection for the WebSocket tap relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
		natsConn = nil
	} else {
		defer natsConn.Drain()
	}

	// Repos
	courseRepo := postgres.NewCourseRepo(db)
	tapRepo := postgres.NewTapRepo(db)

	// Renderers: headless engines serve every platform until a native
	// engine is attached.
	adapter := mapview.Adapter{Span: cfg.Map.DefaultSpan}
	engines := render.Engines{}
	selector := func(p domain.Platform) ports.MapRenderer {
		return render.Select(p, engines, adapter)
	}

	// Use cases
	courseSvc := usecases.NewCourseService(courseRepo, cache)
	sessionSvc := usecases.NewMapSessionService(courseSvc, selector, publisher, usecases.MapSessionConfig{
		Span:        cfg.Map.DefaultSpan,
		MaxSessions: cfg.Map.MaxSessions,
		TapHistory:  cfg.Map.TapHistory,
		FitCourse:   cfg.Map.FitCourse,
	})
	tapSvc := usecases.NewTapService(tapRepo)

	deps := &http.Dependencies{
		Courses:  courseSvc,
		Sessions: sessionSvc,
		Taps:     tapSvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    vk,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Greenside API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, capacitor://localhost",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if err := sessionSvc.CloseAll(shutdownCtx); err != nil {
		slog.Error("unmount sessions", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
