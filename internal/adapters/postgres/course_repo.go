package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// CourseRepo implements ports.CourseRepository with pgx.
type CourseRepo struct {
	db *DB
}

// NewCourseRepo creates a new CourseRepo.
func NewCourseRepo(db *DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// Upsert writes the course by slug and replaces its holes and tee boxes in
// one transaction. course.ID is set from the stored row.
func (r *CourseRepo) Upsert(ctx context.Context, c *domain.Course) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO courses (slug, name)
			VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, created_at
		`, c.Slug, c.Name).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("upsert course: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM holes WHERE course_id = $1`, c.ID); err != nil {
			return fmt.Errorf("clear holes: %w", err)
		}

		batch := &pgx.Batch{}
		for seq, h := range c.Holes {
			batch.Queue(`
				INSERT INTO holes (course_id, seq, number, green_center, par, handicap)
				VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7)
			`, c.ID, seq, h.Number, h.GreenCenter.Lon, h.GreenCenter.Lat, h.Par, h.Handicap)
			for idx, t := range h.TeeBoxes {
				batch.Queue(`
					INSERT INTO tee_boxes (course_id, hole_seq, idx, location, name, color)
					VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7)
				`, c.ID, seq, idx, t.Location.Lon, t.Location.Lat, nilIfEmpty(t.Name), nilIfEmpty(t.Color))
			}
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		return br.Close()
	})
}

// GetByID returns a course by id or slug.
func (r *CourseRepo) GetByID(ctx context.Context, ref string) (*domain.Course, error) {
	var c domain.Course
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, created_at
		FROM courses WHERE id::text = $1 OR slug = $1
		LIMIT 1
	`, ref).Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every course ordered by name.
func (r *CourseRepo) List(ctx context.Context) ([]domain.Course, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, slug, name, created_at FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Holes loads a course's holes with their tee boxes.
func (r *CourseRepo) Holes(ctx context.Context, ref string) ([]domain.Hole, error) {
	course, err := r.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT seq, number,
		       ST_Y(green_center::geometry) AS lat,
		       ST_X(green_center::geometry) AS lon,
		       par, handicap
		FROM holes WHERE course_id = $1
		ORDER BY seq
	`, course.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holes := []domain.Hole{}
	bySeq := make(map[int]int)
	for rows.Next() {
		var h domain.Hole
		var seq int
		if err := rows.Scan(&seq, &h.Number, &h.GreenCenter.Lat, &h.GreenCenter.Lon, &h.Par, &h.Handicap); err != nil {
			return nil, err
		}
		bySeq[seq] = len(holes)
		holes = append(holes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	teeRows, err := r.db.Pool.Query(ctx, `
		SELECT hole_seq,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       COALESCE(name, ''), COALESCE(color, '')
		FROM tee_boxes WHERE course_id = $1
		ORDER BY hole_seq, idx
	`, course.ID)
	if err != nil {
		return nil, err
	}
	defer teeRows.Close()

	for teeRows.Next() {
		var seq int
		var t domain.TeeBox
		if err := teeRows.Scan(&seq, &t.Location.Lat, &t.Location.Lon, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		if i, ok := bySeq[seq]; ok {
			holes[i].TeeBoxes = append(holes[i].TeeBoxes, t)
		}
	}
	return holes, teeRows.Err()
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
