package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
	"github.com/samirrijal/greenside/internal/core/ports"
	"github.com/samirrijal/greenside/internal/pkg/geospatial"
	"github.com/samirrijal/greenside/internal/pkg/metrics"
	"github.com/samirrijal/greenside/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/greenside/internal/core/usecases")

// HoleSource loads the hole layout of a stored course.
type HoleSource interface {
	Holes(ctx context.Context, courseID string) ([]domain.Hole, error)
}

// MapSessionConfig bounds the session service.
type MapSessionConfig struct {
	Span        float64
	MaxSessions int
	TapHistory  int
	FitCourse   bool
}

// OpenSessionRequest describes a new map view. Holes are taken inline when
// given, otherwise loaded for CourseID.
type OpenSessionRequest struct {
	CourseID        string           `json:"course_id,omitempty"`
	Holes           []domain.Hole    `json:"holes,omitempty"`
	Platform        domain.Platform  `json:"platform"`
	UserLocation    domain.GeoPoint  `json:"user_location"`
	SelectedHole    *int             `json:"selected_hole,omitempty"`
	ShowGuideLine   bool             `json:"show_guide_line"`
	InitialViewport *domain.Viewport `json:"initial_viewport,omitempty"`
}

// UpdateSessionRequest changes a live view. Nil fields keep their value.
type UpdateSessionRequest struct {
	UserLocation   *domain.GeoPoint `json:"user_location,omitempty"`
	SelectedHole   *int             `json:"selected_hole,omitempty"`
	ClearSelection bool             `json:"clear_selection,omitempty"`
	ShowGuideLine  *bool            `json:"show_guide_line,omitempty"`
	Holes          []domain.Hole    `json:"holes,omitempty"`
}

// SessionInfo is a snapshot of one session.
type SessionInfo struct {
	ID              string            `json:"id"`
	CourseID        string            `json:"course_id,omitempty"`
	Platform        domain.Platform   `json:"platform"`
	Provider        domain.Provider   `json:"provider"`
	Lifecycle       domain.Lifecycle  `json:"lifecycle"`
	UserLocation    domain.GeoPoint   `json:"user_location"`
	SelectedHole    *int              `json:"selected_hole,omitempty"`
	ShowGuideLine   bool              `json:"show_guide_line"`
	GuideLineTarget *domain.GeoPoint  `json:"guide_line_target,omitempty"`
	Viewport        domain.Viewport   `json:"viewport"`
	Scene           domain.Scene      `json:"scene"`
	RecentTaps      []domain.TapEvent `json:"recent_taps"`
	OpenedAt        time.Time         `json:"opened_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type mapSession struct {
	mu sync.Mutex

	id       string
	courseID string
	platform domain.Platform
	renderer ports.MapRenderer
	props    domain.MapProps
	viewport domain.Viewport

	// pending collects taps fired during one DispatchPress; guarded by mu.
	pending []domain.GeoPoint
	taps    []domain.TapEvent

	openedAt  time.Time
	updatedAt time.Time
}

// MapSessionService owns the mounted renderers, one per client view.
type MapSessionService struct {
	holes     HoleSource
	selector  ports.RendererSelector
	publisher ports.EventPublisher
	cfg       MapSessionConfig
	adapter   mapview.Adapter
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*mapSession
}

// NewMapSessionService creates a new MapSessionService. publisher may be nil.
func NewMapSessionService(
	holes HoleSource,
	selector ports.RendererSelector,
	publisher ports.EventPublisher,
	cfg MapSessionConfig,
) *MapSessionService {
	return &MapSessionService{
		holes:     holes,
		selector:  selector,
		publisher: publisher,
		cfg:       cfg,
		adapter:   mapview.Adapter{Span: cfg.Span},
		now:       time.Now,
		sessions:  make(map[string]*mapSession),
	}
}

// Open mounts a renderer for the request's platform.
func (s *MapSessionService) Open(ctx context.Context, req OpenSessionRequest) (*SessionInfo, error) {
	ctx, span := tracer.Start(ctx, "MapSession.Open", trace.WithAttributes(
		attribute.String(telemetry.AttrCourseID, req.CourseID),
		attribute.String(telemetry.AttrPlatform, string(req.Platform)),
	))
	defer span.End()

	holes := req.Holes
	if holes == nil && req.CourseID != "" {
		loaded, err := s.holes.Holes(ctx, req.CourseID)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("resolve holes: %w", err)
		}
		holes = loaded
	}

	sess := &mapSession{
		id:       uuid.NewString(),
		courseID: req.CourseID,
		platform: req.Platform,
		props: domain.MapProps{
			Holes:              holes,
			UserLocation:       req.UserLocation,
			SelectedHoleNumber: copyInt(req.SelectedHole),
			ShowGuideLine:      req.ShowGuideLine,
			InitialViewport:    req.InitialViewport,
		},
	}
	if sess.props.InitialViewport == nil && s.cfg.FitCourse {
		if vp, ok := s.courseViewport(holes, req.UserLocation); ok {
			sess.props.InitialViewport = &vp
		}
	}
	sess.props.OnTap = sess.collect

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		recordSpanError(span, domain.ErrSessionLimit)
		return nil, domain.ErrSessionLimit
	}

	sess.renderer = s.selector(req.Platform)
	provider := sess.renderer.Provider()
	span.SetAttributes(
		attribute.String(telemetry.AttrSessionID, sess.id),
		attribute.String(telemetry.AttrProvider, string(provider)),
	)

	state := s.adapter.ViewState(sess.props)
	if err := sess.renderer.Mount(state); err != nil {
		metrics.MapRenderErrors.WithLabelValues(string(provider), "mount").Inc()
		recordSpanError(span, err)
		return nil, fmt.Errorf("mount %s renderer: %w", provider, err)
	}
	s.observeRender(provider, "mount", state)
	span.SetAttributes(attribute.Int(telemetry.AttrMarkers, mapview.MarkerCount(state.Holes)))

	sess.viewport = s.adapter.InitialViewport(state)
	sess.openedAt = s.now().UTC()
	sess.updatedAt = sess.openedAt
	s.sessions[sess.id] = sess
	metrics.ActiveMapSessions.Set(float64(len(s.sessions)))

	slog.InfoContext(ctx, "map session opened",
		"session", sess.id, "course", sess.courseID, "platform", sess.platform, "provider", provider)

	return sess.info(s.adapter), nil
}

// Update re-derives the session's view state and redraws it. The camera is
// never moved after mount.
func (s *MapSessionService) Update(ctx context.Context, id string, req UpdateSessionRequest) (*SessionInfo, error) {
	_, span := tracer.Start(ctx, "MapSession.Update", trace.WithAttributes(attribute.String(telemetry.AttrSessionID, id)))
	defer span.End()

	sess, err := s.lookup(id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	props := sess.props
	if req.UserLocation != nil {
		props.UserLocation = *req.UserLocation
	}
	switch {
	case req.ClearSelection:
		props.SelectedHoleNumber = nil
	case req.SelectedHole != nil:
		props.SelectedHoleNumber = copyInt(req.SelectedHole)
	}
	if req.ShowGuideLine != nil {
		props.ShowGuideLine = *req.ShowGuideLine
	}
	if req.Holes != nil {
		props.Holes = req.Holes
	}

	provider := sess.renderer.Provider()
	state := s.adapter.ViewState(props)
	if err := sess.renderer.Update(state); err != nil {
		metrics.MapRenderErrors.WithLabelValues(string(provider), "update").Inc()
		recordSpanError(span, err)
		return nil, fmt.Errorf("update %s renderer: %w", provider, err)
	}
	s.observeRender(provider, "update", state)

	sess.props = props
	sess.updatedAt = s.now().UTC()
	return sess.info(s.adapter), nil
}

// Press feeds an engine-native press payload to the session's renderer and
// returns the taps it produced. Each tap is kept in the session history and
// published.
func (s *MapSessionService) Press(ctx context.Context, id string, payload []byte) ([]domain.TapEvent, error) {
	ctx, span := tracer.Start(ctx, "MapSession.Press", trace.WithAttributes(attribute.String(telemetry.AttrSessionID, id)))
	defer span.End()

	sess, err := s.lookup(id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.pending = sess.pending[:0]
	if err := sess.renderer.DispatchPress(payload); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("dispatch press: %w", err)
	}

	provider := sess.renderer.Provider()
	taps := make([]domain.TapEvent, 0, len(sess.pending))
	for _, p := range sess.pending {
		tap := domain.TapEvent{
			SessionID: sess.id,
			CourseID:  sess.courseID,
			Provider:  provider,
			Point:     p,
			At:        s.now().UTC(),
		}
		taps = append(taps, tap)
		sess.remember(tap, s.cfg.TapHistory)
		metrics.MapTaps.WithLabelValues(string(provider)).Inc()

		if s.publisher != nil {
			if err := s.publisher.PublishTap(ctx, &tap); err != nil {
				slog.WarnContext(ctx, "publish tap failed", "session", sess.id, "error", err)
			}
		}
	}
	sess.pending = sess.pending[:0]
	return taps, nil
}

// Export writes the engine's current scene document to w.
func (s *MapSessionService) Export(ctx context.Context, id string, w io.Writer) (string, error) {
	_, span := tracer.Start(ctx, "MapSession.Export", trace.WithAttributes(attribute.String(telemetry.AttrSessionID, id)))
	defer span.End()

	sess, err := s.lookup(id)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.renderer.Export(w)
}

// Get returns a snapshot of the session.
func (s *MapSessionService) Get(_ context.Context, id string) (*SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.info(s.adapter), nil
}

// Count returns the number of open sessions.
func (s *MapSessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close unmounts and forgets the session.
func (s *MapSessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		metrics.ActiveMapSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	return s.unmount(ctx, sess)
}

// CloseAll unmounts every session. Used at shutdown.
func (s *MapSessionService) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	all := make([]*mapSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*mapSession)
	metrics.ActiveMapSessions.Set(0)
	s.mu.Unlock()

	var errs []error
	for _, sess := range all {
		if err := s.unmount(ctx, sess); err != nil {
			errs = append(errs, err)
		}
	}
	if len(all) > 0 {
		slog.InfoContext(ctx, "map sessions closed", "count", len(all), "errors", len(errs))
	}
	return errors.Join(errs...)
}

// Preview describes the scene a session would draw, without mounting one.
func (s *MapSessionService) Preview(ctx context.Context, courseID string, user domain.GeoPoint, selected *int, showGuideLine bool) (domain.Scene, error) {
	holes, err := s.holes.Holes(ctx, courseID)
	if err != nil {
		return domain.Scene{}, err
	}
	state := s.adapter.ViewState(domain.MapProps{
		Holes:              holes,
		UserLocation:       user,
		SelectedHoleNumber: selected,
		ShowGuideLine:      showGuideLine,
	})
	return mapview.Describe(state), nil
}

func (s *MapSessionService) lookup(id string) (*mapSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *MapSessionService) unmount(ctx context.Context, sess *mapSession) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.renderer.Unmount(); err != nil {
		slog.ErrorContext(ctx, "unmount failed", "session", sess.id, "error", err)
		return fmt.Errorf("unmount session %s: %w", sess.id, err)
	}
	return nil
}

func (s *MapSessionService) observeRender(provider domain.Provider, op string, state domain.ViewState) {
	metrics.MapRenders.WithLabelValues(string(provider), op).Inc()
	metrics.MapMarkers.Observe(float64(mapview.MarkerCount(state.Holes)))
}

// courseViewport frames every green, tee and the user.
func (s *MapSessionService) courseViewport(holes []domain.Hole, user domain.GeoPoint) (domain.Viewport, bool) {
	if len(holes) == 0 {
		return domain.Viewport{}, false
	}
	points := []domain.GeoPoint{user}
	for _, h := range holes {
		points = append(points, h.GreenCenter)
		for _, t := range h.TeeBoxes {
			points = append(points, t.Location)
		}
	}
	b, ok := geospatial.BoundsOf(points)
	if !ok {
		return domain.Viewport{}, false
	}
	minSpan := s.cfg.Span
	if minSpan <= 0 {
		minSpan = mapview.DefaultSpan
	}
	return geospatial.FitViewport(b, 0.1, minSpan), true
}

// collect is the session's tap handler. It runs inside DispatchPress, with
// sess.mu already held by Press.
func (sess *mapSession) collect(p domain.GeoPoint) {
	sess.pending = append(sess.pending, p)
}

func (sess *mapSession) remember(tap domain.TapEvent, limit int) {
	if limit <= 0 {
		return
	}
	sess.taps = append(sess.taps, tap)
	if over := len(sess.taps) - limit; over > 0 {
		sess.taps = append(sess.taps[:0:0], sess.taps[over:]...)
	}
}

func (sess *mapSession) info(adapter mapview.Adapter) *SessionInfo {
	state := adapter.ViewState(sess.props)
	return &SessionInfo{
		ID:              sess.id,
		CourseID:        sess.courseID,
		Platform:        sess.platform,
		Provider:        sess.renderer.Provider(),
		Lifecycle:       sess.renderer.Lifecycle(),
		UserLocation:    sess.props.UserLocation,
		SelectedHole:    copyInt(sess.props.SelectedHoleNumber),
		ShowGuideLine:   sess.props.ShowGuideLine,
		GuideLineTarget: state.GuideLineTarget,
		Viewport:        sess.viewport,
		Scene:           mapview.Describe(state),
		RecentTaps:      append([]domain.TapEvent{}, sess.taps...),
		OpenedAt:        sess.openedAt,
		UpdatedAt:       sess.updatedAt,
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
