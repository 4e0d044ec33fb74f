package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/ports"
	"github.com/samirrijal/greenside/internal/pkg/metrics"
)

// holesCacheTTL is how long a course's hole layout stays cached, in seconds.
const holesCacheTTL = 600

// CourseService handles course lookups.
type CourseService struct {
	courses ports.CourseRepository
	cache   ports.CacheService
}

// NewCourseService creates a new CourseService. cache may be nil.
func NewCourseService(courses ports.CourseRepository, cache ports.CacheService) *CourseService {
	return &CourseService{courses: courses, cache: cache}
}

// List returns all courses without their holes.
func (s *CourseService) List(ctx context.Context) ([]domain.Course, error) {
	return s.courses.List(ctx)
}

// GetByID returns a course with its holes.
func (s *CourseService) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	holes, err := s.Holes(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Holes = holes
	return course, nil
}

// Holes returns the course's holes in stored order, read through the cache.
func (s *CourseService) Holes(ctx context.Context, courseID string) ([]domain.Hole, error) {
	cacheKey := "courses:holes:" + courseID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var holes []domain.Hole
			if err := json.Unmarshal(data, &holes); err == nil {
				metrics.CacheHits.WithLabelValues("course_holes").Inc()
				return holes, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("course_holes").Inc()
	}

	holes, err := s.courses.Holes(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load holes for %s: %w", courseID, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(holes); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, holesCacheTTL)
		}
	}
	return holes, nil
}

// Invalidate drops the cached holes of a course, e.g. after an import.
func (s *CourseService) Invalidate(ctx context.Context, courseID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, "courses:holes:"+courseID)
}
