package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/ports"
)

// TapService persists translated map taps.
type TapService struct {
	taps ports.TapRepository
}

// NewTapService creates a new TapService.
func NewTapService(taps ports.TapRepository) *TapService {
	return &TapService{taps: taps}
}

// Record stores a tap. A zero timestamp is set to now.
func (s *TapService) Record(ctx context.Context, tap *domain.TapEvent) error {
	if tap.SessionID == "" {
		return fmt.Errorf("tap without session id")
	}
	if tap.At.IsZero() {
		tap.At = time.Now().UTC()
	}
	if err := s.taps.Insert(ctx, tap); err != nil {
		return fmt.Errorf("insert tap: %w", err)
	}
	return nil
}

// Recent returns the latest taps of a session, newest first.
func (s *TapService) Recent(ctx context.Context, sessionID string, limit int) ([]domain.TapEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.taps.RecentBySession(ctx, sessionID, limit)
}
