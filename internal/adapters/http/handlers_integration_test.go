//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/greenside/internal/adapters/http"
	"github.com/samirrijal/greenside/internal/adapters/postgres"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/usecases"
	"github.com/samirrijal/greenside/internal/pkg/config"
)

// setupTestDB connects to the test database configured for greenside-test.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("greenside-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return &postgres.DB{Pool: pool}
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	courses := usecases.NewCourseService(postgres.NewCourseRepo(db), nil)
	return &http.Dependencies{
		Courses:  courses,
		Sessions: usecases.NewMapSessionService(courses, headlessSelector, nil, usecases.MapSessionConfig{MaxSessions: 10}),
		Taps:     usecases.NewTapService(postgres.NewTapRepo(db)),
		DB:       db,
	}
}

// seedTestCourse stores a two-hole course through the repository and returns it.
func seedTestCourse(t *testing.T, db *postgres.DB, slug string) *domain.Course {
	course := &domain.Course{
		Slug: slug,
		Name: "Test Course " + slug,
		Holes: []domain.Hole{
			{
				Number:      1,
				GreenCenter: domain.GeoPoint{Lat: 43.3401, Lon: -3.0052},
				TeeBoxes: []domain.TeeBox{
					{Location: domain.GeoPoint{Lat: 43.3380, Lon: -3.0071}, Name: "Championship", Color: "black"},
					{Location: domain.GeoPoint{Lat: 43.3384, Lon: -3.0068}},
				},
				Par: intPtr(4),
			},
			{Number: 2, GreenCenter: domain.GeoPoint{Lat: 43.3422, Lon: -3.0030}},
		},
	}
	if err := postgres.NewCourseRepo(db).Upsert(context.Background(), course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func TestGetCourse_Integration_BySlug(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	slug := "test_integ_" + time.Now().Format("20060102150405")
	seeded := seedTestCourse(t, db, slug)

	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/courses/"+slug, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var course domain.Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if course.ID != seeded.ID {
		t.Errorf("expected id %s, got %s", seeded.ID, course.ID)
	}
	if len(course.Holes) != 2 {
		t.Fatalf("expected 2 holes, got %d", len(course.Holes))
	}
	if len(course.Holes[0].TeeBoxes) != 2 || course.Holes[0].TeeBoxes[0].Color != "black" {
		t.Errorf("tee boxes not preserved in order: %+v", course.Holes[0].TeeBoxes)
	}
	if course.Holes[1].Par != nil {
		t.Errorf("expected absent par on hole 2, got %d", *course.Holes[1].Par)
	}
}

func TestMapSession_Integration_StoredCourse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	slug := "test_session_" + time.Now().Format("20060102150405")
	seedTestCourse(t, db, slug)

	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("POST", "/v1/map/sessions",
		strings.NewReader(`{"course_id":"`+slug+`","platform":"ios","selected_hole":1,"show_guide_line":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var info usecases.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// user + 2 greens + 2 tees
	if len(info.Scene.Markers) != 5 {
		t.Errorf("expected 5 markers, got %d", len(info.Scene.Markers))
	}
	if len(info.Scene.GuideLines) != 1 {
		t.Errorf("expected guide line, got %d", len(info.Scene.GuideLines))
	}
}
