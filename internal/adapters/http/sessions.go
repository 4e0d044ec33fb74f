package http

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/usecases"
)

// OpenSessionHandler mounts a renderer for the client's platform.
// POST /v1/map/sessions
func OpenSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.OpenSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if msg := checkPoint(req.UserLocation); msg != "" {
			return errBadRequest(c, msg)
		}
		if req.InitialViewport != nil {
			if msg := checkPoint(req.InitialViewport.Center); msg != "" {
				return errBadRequest(c, "initial_viewport center: "+msg)
			}
		}
		if msg := checkHoles(req.Holes); msg != "" {
			return errBadRequest(c, msg)
		}

		info, err := deps.Sessions.Open(c.UserContext(), req)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/map/sessions/" + info.ID)
		return c.Status(fiber.StatusCreated).JSON(info)
	}
}

// GetSessionHandler returns the session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		info, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(info)
	}
}

// UpdateSessionHandler applies a partial change and redraws.
// PUT /v1/map/sessions/:id
func UpdateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.UpdateSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if req.UserLocation != nil {
			if msg := checkPoint(*req.UserLocation); msg != "" {
				return errBadRequest(c, msg)
			}
		}
		if msg := checkHoles(req.Holes); msg != "" {
			return errBadRequest(c, msg)
		}

		info, err := deps.Sessions.Update(c.UserContext(), c.Params("id"), req)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(info)
	}
}

// CloseSessionHandler unmounts the renderer.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Close(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PressHandler forwards an engine-native press payload. The body format
// depends on the session's provider: a GeoJSON Point for googlemaps,
// "lon,lat[,alt]" for mapkit.
// POST /v1/map/sessions/:id/press
func PressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(bytes.TrimSpace(body)) == 0 {
			return errBadRequest(c, "press payload is required")
		}
		// fasthttp reuses the body buffer after the handler returns.
		payload := append([]byte(nil), body...)

		taps, err := deps.Sessions.Press(c.UserContext(), c.Params("id"), payload)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"taps": taps})
	}
}

// SceneHandler streams the engine's exported document (GeoJSON or KML).
// GET /v1/map/sessions/:id/scene
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		contentType, err := deps.Sessions.Export(c.UserContext(), c.Params("id"), &buf)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(buf.Bytes())
	}
}

// SessionTapsHandler returns the persisted tap history of a session.
// GET /v1/map/sessions/:id/taps?limit=20
func SessionTapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Taps == nil {
			return errUnavailable(c, "tap history not available")
		}
		taps, err := deps.Taps.Recent(c.UserContext(), c.Params("id"), c.QueryInt("limit", 20))
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(taps)
	}
}

// checkHoles applies checkPoint to every green and tee box.
func checkHoles(holes []domain.Hole) string {
	for _, h := range holes {
		if msg := checkPoint(h.GreenCenter); msg != "" {
			return fmt.Sprintf("hole %d green_center: %s", h.Number, msg)
		}
		for i, tee := range h.TeeBoxes {
			if msg := checkPoint(tee.Location); msg != "" {
				return fmt.Sprintf("hole %d tee %d location: %s", h.Number, i, msg)
			}
		}
	}
	return ""
}
