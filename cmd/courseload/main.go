package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/greenside/internal/adapters/postgres"
	"github.com/samirrijal/greenside/internal/adapters/valkey"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/ports"
	"github.com/samirrijal/greenside/internal/core/usecases"
	"github.com/samirrijal/greenside/internal/pkg/config"
	"github.com/samirrijal/greenside/internal/pkg/logging"
)

// Manifest lists the courses to import.
type Manifest struct {
	Source  string        `json:"source"`
	Courses []CourseEntry `json:"courses"`
}

// CourseEntry describes one course. The layout comes from exactly one of
// Holes, Layout (local file) or LayoutURL; files ending in .csv are read as
// CSV, anything else as GeoJSON.
type CourseEntry struct {
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Holes     []domain.Hole `json:"holes,omitempty"`
	Layout    string        `json:"layout,omitempty"`
	LayoutURL string        `json:"layout_url,omitempty"`
}

func main() {
	cfg, err := config.Load("greenside-courseload")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vk, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cached layouts will expire on their own", "error", err)
	} else {
		cache = vk
		defer vk.Close()
	}

	manifestPath := "courses.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}
	baseDir := filepath.Dir(manifestPath)

	slog.Info("course import starting", "courses", len(manifest.Courses), "source", manifest.Source)

	// Optional CLI arg: comma-separated slug filter
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	repo := postgres.NewCourseRepo(db)
	courses := usecases.NewCourseService(repo, cache)
	client := &http.Client{Timeout: 60 * time.Second}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, 4) // max 4 concurrent imports

	for _, entry := range manifest.Courses {
		if len(slugFilter) > 0 && !slugFilter[entry.Slug] {
			continue
		}

		wg.Add(1)
		go func(e CourseEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := importCourse(ctx, repo, courses, client, baseDir, e); err != nil {
				slog.Error("course import failed", "slug", e.Slug, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(entry)
	}

	wg.Wait()
	slog.Info("course import complete", "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func importCourse(ctx context.Context, repo ports.CourseRepository, courses *usecases.CourseService, client *http.Client, baseDir string, e CourseEntry) error {
	if e.Slug == "" || e.Name == "" {
		return fmt.Errorf("slug and name are required")
	}

	holes, err := loadHoles(ctx, client, baseDir, e)
	if err != nil {
		return err
	}

	course := &domain.Course{Slug: e.Slug, Name: e.Name, Holes: holes}
	if err := repo.Upsert(ctx, course); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	// Sessions read layouts through the cache under both references.
	for _, ref := range []string{course.ID, course.Slug} {
		if err := courses.Invalidate(ctx, ref); err != nil {
			slog.Warn("cache invalidation failed", "slug", e.Slug, "ref", ref, "error", err)
		}
	}

	tees := 0
	for _, h := range holes {
		tees += len(h.TeeBoxes)
	}
	slog.Info("course imported", "slug", e.Slug, "id", course.ID, "holes", len(holes), "tee_boxes", tees)
	return nil
}

func loadHoles(ctx context.Context, client *http.Client, baseDir string, e CourseEntry) ([]domain.Hole, error) {
	switch {
	case e.Holes != nil:
		return e.Holes, nil

	case e.Layout != "":
		path := e.Layout
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read layout: %w", err)
		}
		return parseLayout(path, data)

	case e.LayoutURL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.LayoutURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, e.LayoutURL)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return parseLayout(e.LayoutURL, data)

	default:
		return nil, fmt.Errorf("no layout given")
	}
}

func parseLayout(name string, data []byte) ([]domain.Hole, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return ParseCSVLayout(bytes.NewReader(data))
	}
	return ParseGeoJSONLayout(data)
}
