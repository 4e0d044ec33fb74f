package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/greenside/internal/adapters/postgres"
	"github.com/samirrijal/greenside/internal/adapters/valkey"
	"github.com/samirrijal/greenside/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Courses  *usecases.CourseService
	Sessions *usecases.MapSessionService
	Taps     *usecases.TapService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
