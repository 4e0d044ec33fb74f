package ports

import (
	"io"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// MapRenderer draws a ViewState on one map engine. An instance is mounted at
// most once; a remount needs a fresh instance.
type MapRenderer interface {
	Provider() domain.Provider
	Lifecycle() domain.Lifecycle

	// Mount acquires the engine, sets the initial camera and draws state.
	Mount(state domain.ViewState) error
	// Update redraws the full overlay set. The camera is left alone.
	Update(state domain.ViewState) error
	// DispatchPress feeds an engine-native press payload to the engine.
	DispatchPress(payload []byte) error
	// Export writes the engine's current scene and reports its content type.
	Export(w io.Writer) (string, error)
	// Unmount releases the engine. Calling it again is a no-op.
	Unmount() error
}

// RendererSelector returns a fresh, unmounted renderer for a host platform.
type RendererSelector func(platform domain.Platform) MapRenderer
