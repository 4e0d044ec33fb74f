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

	natsadapter "github.com/samirrijal/greenside/internal/adapters/nats"
	"github.com/samirrijal/greenside/internal/adapters/postgres"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/usecases"
	"github.com/samirrijal/greenside/internal/pkg/config"
	"github.com/samirrijal/greenside/internal/pkg/logging"
	"github.com/samirrijal/greenside/internal/pkg/metrics"
)

// durableName lets restarts resume from the last acked tap.
const durableName = "tapsink"

func main() {
	cfg, err := config.Load("greenside-tapsink")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, durableName)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	taps := usecases.NewTapService(postgres.NewTapRepo(db))
	if err := sub.SubscribeTaps(ctx, recordTap(taps)); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// Metrics only; the sink has no public API.
	app := fiber.New(fiber.Config{DisableStartupMessage: true, AppName: "Greenside tapsink"})
	app.Get("/metrics", metrics.Handler())
	app.Get("/v1/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	slog.Info("tap sink consuming", "stream", natsadapter.TapStream, "durable", durableName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down tap sink", "signal", sig.String())

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

// recordTap persists one delivered tap. A returned error naks the message
// so JetStream redelivers it.
func recordTap(taps *usecases.TapService) func(context.Context, *domain.TapEvent) error {
	return func(ctx context.Context, tap *domain.TapEvent) error {
		if err := taps.Record(ctx, tap); err != nil {
			slog.WarnContext(ctx, "persist tap failed", "session", tap.SessionID, "error", err)
			return err
		}
		metrics.TapsPersisted.Inc()
		return nil
	}
}
