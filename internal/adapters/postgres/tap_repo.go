package postgres

import (
	"context"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// TapRepo implements ports.TapRepository.
type TapRepo struct {
	db *DB
}

func NewTapRepo(db *DB) *TapRepo {
	return &TapRepo{db: db}
}

func (r *TapRepo) Insert(ctx context.Context, tap *domain.TapEvent) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO map_taps (session_id, course_id, provider, location, tapped_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6)
	`, tap.SessionID, nilIfEmpty(tap.CourseID), string(tap.Provider),
		tap.Point.Lon, tap.Point.Lat, tap.At)
	return err
}

func (r *TapRepo) RecentBySession(ctx context.Context, sessionID string, limit int) ([]domain.TapEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT session_id, COALESCE(course_id, ''), provider,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       tapped_at
		FROM map_taps
		WHERE session_id = $1
		ORDER BY tapped_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var taps []domain.TapEvent
	for rows.Next() {
		var t domain.TapEvent
		var provider string
		if err := rows.Scan(&t.SessionID, &t.CourseID, &provider, &t.Point.Lat, &t.Point.Lon, &t.At); err != nil {
			return nil, err
		}
		t.Provider = domain.Provider(provider)
		taps = append(taps, t)
	}
	return taps, rows.Err()
}
