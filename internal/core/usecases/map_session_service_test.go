package usecases_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/samirrijal/greenside/internal/adapters/render"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
	"github.com/samirrijal/greenside/internal/core/ports"
	"github.com/samirrijal/greenside/internal/core/usecases"
)

// --- Mock MapRenderer ---

type mockRenderer struct {
	provider  domain.Provider
	lifecycle domain.Lifecycle
	mountErr  error
	pressAt   []domain.GeoPoint
	mounts    int
	updates   []domain.ViewState
	unmounts  int
	onTap     domain.TapHandler
}

func (m *mockRenderer) Provider() domain.Provider { return m.provider }

func (m *mockRenderer) Lifecycle() domain.Lifecycle {
	if m.lifecycle == "" {
		return domain.LifecycleCreated
	}
	return m.lifecycle
}

func (m *mockRenderer) Mount(state domain.ViewState) error {
	if m.mountErr != nil {
		return m.mountErr
	}
	m.mounts++
	m.onTap = state.OnTap
	m.lifecycle = domain.LifecycleMounted
	return nil
}

func (m *mockRenderer) Update(state domain.ViewState) error {
	m.updates = append(m.updates, state)
	m.onTap = state.OnTap
	return nil
}

func (m *mockRenderer) DispatchPress(payload []byte) error {
	if string(payload) == "bad" {
		return errors.New("bad payload")
	}
	for _, p := range m.pressAt {
		if m.onTap != nil {
			m.onTap(p)
		}
	}
	return nil
}

func (m *mockRenderer) Export(w io.Writer) (string, error) {
	_, err := io.WriteString(w, "scene")
	return "text/plain", err
}

func (m *mockRenderer) Unmount() error {
	m.unmounts++
	m.lifecycle = domain.LifecycleUnmounted
	return nil
}

// --- Mock HoleSource / EventPublisher ---

type mockHoles struct {
	holesFn func(ctx context.Context, courseID string) ([]domain.Hole, error)
}

func (m *mockHoles) Holes(ctx context.Context, courseID string) ([]domain.Hole, error) {
	if m.holesFn != nil {
		return m.holesFn(ctx, courseID)
	}
	return nil, domain.ErrNotFound
}

type mockPublisher struct {
	mu   sync.Mutex
	taps []domain.TapEvent
	err  error
}

func (m *mockPublisher) PublishTap(ctx context.Context, tap *domain.TapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taps = append(m.taps, *tap)
	return m.err
}

// --- Helpers ---

func intPtr(v int) *int { return &v }

var courseHoles = []domain.Hole{
	{
		Number:      1,
		GreenCenter: domain.GeoPoint{Lat: 43.3460, Lon: -3.0060},
		Par:         intPtr(4),
		TeeBoxes:    []domain.TeeBox{{Location: domain.GeoPoint{Lat: 43.3440, Lon: -3.0080}}},
	},
	{Number: 2, GreenCenter: domain.GeoPoint{Lat: 43.3470, Lon: -3.0040}, Par: intPtr(3)},
}

func fixedHoles() *mockHoles {
	return &mockHoles{holesFn: func(ctx context.Context, courseID string) ([]domain.Hole, error) {
		if courseID != "neguri" {
			return nil, domain.ErrNotFound
		}
		return courseHoles, nil
	}}
}

func selectorFor(renderers map[domain.Platform]*mockRenderer) ports.RendererSelector {
	return func(p domain.Platform) ports.MapRenderer {
		if r, ok := renderers[p]; ok {
			return r
		}
		return &mockRenderer{provider: domain.ProviderGoogleMaps}
	}
}

func defaultCfg() usecases.MapSessionConfig {
	return usecases.MapSessionConfig{Span: mapview.DefaultSpan, MaxSessions: 10, TapHistory: 2}
}

// --- Tests ---

func TestMapSessionService_OpenLoadsCourseHoles(t *testing.T) {
	r := &mockRenderer{provider: domain.ProviderMapKit}
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(map[domain.Platform]*mockRenderer{"ios": r}), nil, defaultCfg())

	info, err := svc.Open(context.Background(), usecases.OpenSessionRequest{
		CourseID:      "neguri",
		Platform:      "ios",
		UserLocation:  domain.GeoPoint{Lat: 43.3450, Lon: -3.0070},
		SelectedHole:  intPtr(2),
		ShowGuideLine: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ID == "" {
		t.Fatal("expected session id")
	}
	if info.Provider != domain.ProviderMapKit {
		t.Errorf("expected mapkit, got %s", info.Provider)
	}
	if info.Lifecycle != domain.LifecycleMounted {
		t.Errorf("expected mounted, got %s", info.Lifecycle)
	}
	if r.mounts != 1 {
		t.Errorf("expected 1 mount, got %d", r.mounts)
	}
	if len(info.Scene.Markers) != 4 {
		t.Errorf("expected 4 markers, got %d", len(info.Scene.Markers))
	}
	if len(info.Scene.GuideLines) != 1 {
		t.Fatalf("expected guide line, got %d", len(info.Scene.GuideLines))
	}
	if info.GuideLineTarget == nil || *info.GuideLineTarget != courseHoles[1].GreenCenter {
		t.Errorf("expected target at hole 2 green, got %+v", info.GuideLineTarget)
	}
	if info.Viewport.Center != (domain.GeoPoint{Lat: 43.3450, Lon: -3.0070}) || info.Viewport.LatitudeDelta != 0.01 {
		t.Errorf("expected default viewport around user, got %+v", info.Viewport)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 session, got %d", svc.Count())
	}
}

func TestMapSessionService_OpenInlineHoles(t *testing.T) {
	holes := &mockHoles{holesFn: func(ctx context.Context, courseID string) ([]domain.Hole, error) {
		t.Fatal("hole source must not be called for inline holes")
		return nil, nil
	}}
	svc := usecases.NewMapSessionService(holes, selectorFor(nil), nil, defaultCfg())

	info, err := svc.Open(context.Background(), usecases.OpenSessionRequest{Holes: courseHoles[:1], Platform: "android"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Scene.Markers) != 3 {
		t.Errorf("expected 3 markers, got %d", len(info.Scene.Markers))
	}
}

func TestMapSessionService_OpenUnknownCourse(t *testing.T) {
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(nil), nil, defaultCfg())

	_, err := svc.Open(context.Background(), usecases.OpenSessionRequest{CourseID: "unknown"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no session, got %d", svc.Count())
	}
}

func TestMapSessionService_OpenMountFailure(t *testing.T) {
	boom := errors.New("engine unavailable")
	r := &mockRenderer{provider: domain.ProviderGoogleMaps, mountErr: boom}
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(map[domain.Platform]*mockRenderer{"android": r}), nil, defaultCfg())

	_, err := svc.Open(context.Background(), usecases.OpenSessionRequest{Platform: "android"})
	if !errors.Is(err, boom) {
		t.Errorf("expected mount error, got %v", err)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no session, got %d", svc.Count())
	}
}

func TestMapSessionService_SessionLimit(t *testing.T) {
	cfg := defaultCfg()
	cfg.MaxSessions = 1
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(nil), nil, cfg)

	if _, err := svc.Open(context.Background(), usecases.OpenSessionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Open(context.Background(), usecases.OpenSessionRequest{}); !errors.Is(err, domain.ErrSessionLimit) {
		t.Errorf("expected ErrSessionLimit, got %v", err)
	}
}

func TestMapSessionService_FitCourseViewport(t *testing.T) {
	cfg := defaultCfg()
	cfg.FitCourse = true
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(nil), nil, cfg)

	info, err := svc.Open(context.Background(), usecases.OpenSessionRequest{
		CourseID:     "neguri",
		UserLocation: domain.GeoPoint{Lat: 43.3450, Lon: -3.0070},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Lat 43.3440..43.3470, lon -3.0080..-3.0040
	if got := info.Viewport.Center.Lat; got < 43.3454 || got > 43.3456 {
		t.Errorf("expected centre lat ~43.3455, got %f", got)
	}
	if info.Viewport.LatitudeDelta != 0.01 {
		t.Errorf("expected span floored at 0.01, got %f", info.Viewport.LatitudeDelta)
	}
}

func TestMapSessionService_UpdateKeepsUnsetFields(t *testing.T) {
	r := &mockRenderer{provider: domain.ProviderGoogleMaps}
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(map[domain.Platform]*mockRenderer{"android": r}), nil, defaultCfg())
	ctx := context.Background()

	info, err := svc.Open(ctx, usecases.OpenSessionRequest{CourseID: "neguri", Platform: "android", SelectedHole: intPtr(1), ShowGuideLine: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	openedViewport := info.Viewport

	moved := domain.GeoPoint{Lat: 43.3455, Lon: -3.0065}
	info, err = svc.Update(ctx, info.ID, usecases.UpdateSessionRequest{UserLocation: &moved})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(r.updates))
	}
	if r.updates[0].UserLocation != moved {
		t.Errorf("expected moved user location, got %+v", r.updates[0].UserLocation)
	}
	if r.updates[0].GuideLineTarget == nil {
		t.Error("expected guide line target to persist")
	}
	if info.Viewport != openedViewport {
		t.Errorf("viewport must not change after mount: %+v vs %+v", info.Viewport, openedViewport)
	}

	info, err = svc.Update(ctx, info.ID, usecases.UpdateSessionRequest{ClearSelection: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.SelectedHole != nil || len(info.Scene.GuideLines) != 0 {
		t.Errorf("expected selection cleared, got %+v", info.SelectedHole)
	}

	off := false
	info, _ = svc.Update(ctx, info.ID, usecases.UpdateSessionRequest{SelectedHole: intPtr(2), ShowGuideLine: &off})
	if info.GuideLineTarget != nil {
		t.Error("expected no target with guide line hidden")
	}
	if info.SelectedHole == nil || *info.SelectedHole != 2 {
		t.Errorf("expected selection 2, got %v", info.SelectedHole)
	}
}

func TestMapSessionService_UnknownSession(t *testing.T) {
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(nil), nil, defaultCfg())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "nope", usecases.UpdateSessionRequest{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Update: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Press(ctx, "nope", nil); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Press: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Export(ctx, "nope", io.Discard); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Export: expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Close(ctx, "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Close: expected ErrSessionNotFound, got %v", err)
	}
}

func TestMapSessionService_PressRecordsAndPublishes(t *testing.T) {
	r := &mockRenderer{
		provider: domain.ProviderGoogleMaps,
		pressAt:  []domain.GeoPoint{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}},
	}
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(map[domain.Platform]*mockRenderer{"android": r}), pub, defaultCfg())
	ctx := context.Background()

	info, err := svc.Open(ctx, usecases.OpenSessionRequest{CourseID: "neguri", Platform: "android"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	taps, err := svc.Press(ctx, info.ID, []byte("tap"))
	if err != nil {
		t.Fatalf("publish failures must not fail the press: %v", err)
	}
	if len(taps) != 3 {
		t.Fatalf("expected 3 taps, got %d", len(taps))
	}
	if taps[0].SessionID != info.ID || taps[0].CourseID != "neguri" || taps[0].Provider != domain.ProviderGoogleMaps {
		t.Errorf("unexpected tap %+v", taps[0])
	}
	if len(pub.taps) != 3 {
		t.Errorf("expected 3 published taps, got %d", len(pub.taps))
	}

	info, _ = svc.Get(ctx, info.ID)
	if len(info.RecentTaps) != 2 {
		t.Fatalf("expected history bounded at 2, got %d", len(info.RecentTaps))
	}
	if info.RecentTaps[1].Point.Lat != 3 {
		t.Errorf("expected newest tap last, got %+v", info.RecentTaps[1])
	}

	if _, err := svc.Press(ctx, info.ID, []byte("bad")); err == nil {
		t.Error("expected dispatch error")
	}
}

func TestMapSessionService_CloseAndCloseAll(t *testing.T) {
	a := &mockRenderer{provider: domain.ProviderGoogleMaps}
	b := &mockRenderer{provider: domain.ProviderMapKit}
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(map[domain.Platform]*mockRenderer{"android": a, "ios": b}), nil, defaultCfg())
	ctx := context.Background()

	first, _ := svc.Open(ctx, usecases.OpenSessionRequest{Platform: "android"})
	_, _ = svc.Open(ctx, usecases.OpenSessionRequest{Platform: "ios"})

	if err := svc.Close(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.unmounts != 1 {
		t.Errorf("expected 1 unmount, got %d", a.unmounts)
	}
	if err := svc.Close(ctx, first.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second close, got %v", err)
	}

	if err := svc.CloseAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.unmounts != 1 {
		t.Errorf("expected ios renderer unmounted, got %d", b.unmounts)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no sessions, got %d", svc.Count())
	}
}

func TestMapSessionService_Preview(t *testing.T) {
	svc := usecases.NewMapSessionService(fixedHoles(), selectorFor(nil), nil, defaultCfg())

	scene, err := svc.Preview(context.Background(), "neguri", domain.GeoPoint{}, intPtr(9), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scene.Markers) != 4 {
		t.Errorf("expected 4 markers, got %d", len(scene.Markers))
	}
	if len(scene.GuideLines) != 0 {
		t.Error("expected no guide line for unknown hole")
	}
}

// End to end through the headless engines.
func TestMapSessionService_WithHeadlessEngines(t *testing.T) {
	selector := func(p domain.Platform) ports.MapRenderer {
		return render.Select(p, render.Engines{}, mapview.Adapter{})
	}
	pub := &mockPublisher{}
	svc := usecases.NewMapSessionService(fixedHoles(), selector, pub, defaultCfg())
	ctx := context.Background()

	gm, err := svc.Open(ctx, usecases.OpenSessionRequest{CourseID: "neguri", Platform: "android", SelectedHole: intPtr(1), ShowGuideLine: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mk, err := svc.Open(ctx, usecases.OpenSessionRequest{CourseID: "neguri", Platform: "iOS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gm.Provider != domain.ProviderGoogleMaps || mk.Provider != domain.ProviderMapKit {
		t.Fatalf("unexpected providers %s / %s", gm.Provider, mk.Provider)
	}

	taps, err := svc.Press(ctx, gm.ID, []byte(`{"type":"Point","coordinates":[-3.005,43.346]}`))
	if err != nil || len(taps) != 1 {
		t.Fatalf("google press: %v (%d taps)", err, len(taps))
	}
	if taps[0].Point != (domain.GeoPoint{Lat: 43.346, Lon: -3.005}) {
		t.Errorf("unexpected google tap %+v", taps[0].Point)
	}
	taps, err = svc.Press(ctx, mk.ID, []byte("-3.005,43.346"))
	if err != nil || len(taps) != 1 {
		t.Fatalf("mapkit press: %v (%d taps)", err, len(taps))
	}
	if taps[0].Point != (domain.GeoPoint{Lat: 43.346, Lon: -3.005}) {
		t.Errorf("unexpected mapkit tap %+v", taps[0].Point)
	}

	var buf bytes.Buffer
	ct, err := svc.Export(ctx, gm.ID, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "application/geo+json" || !strings.Contains(buf.String(), "guide-line") {
		t.Errorf("unexpected export %s: %s", ct, buf.String())
	}

	buf.Reset()
	ct, err = svc.Export(ctx, mk.ID, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "application/vnd.google-earth.kml+xml" || !strings.Contains(buf.String(), "<kml") {
		t.Errorf("unexpected export %s", ct)
	}

	if err := svc.CloseAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.taps) != 2 {
		t.Errorf("expected 2 published taps, got %d", len(pub.taps))
	}
}
