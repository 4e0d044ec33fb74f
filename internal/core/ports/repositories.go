package ports

import (
	"context"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// CourseRepository persists courses with their holes and tee boxes.
type CourseRepository interface {
	Upsert(ctx context.Context, course *domain.Course) error
	// GetByID looks a course up by id or slug, without holes.
	GetByID(ctx context.Context, ref string) (*domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	// Holes returns the course's holes in manifest order, tee boxes in display
	// order. ref is a course id or slug.
	Holes(ctx context.Context, ref string) ([]domain.Hole, error)
}

// TapRepository persists translated map taps.
type TapRepository interface {
	Insert(ctx context.Context, tap *domain.TapEvent) error
	RecentBySession(ctx context.Context, sessionID string, limit int) ([]domain.TapEvent, error)
}
