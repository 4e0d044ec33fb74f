package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// ListCoursesHandler returns all stored courses, paginated.
func ListCoursesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courses, err := deps.Courses.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(courses)
		if offset >= total {
			courses = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			courses = courses[offset:end]
		}
		if courses == nil {
			courses = []domain.Course{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: courses, Pagination: pg})
	}
}

// GetCourseHandler returns a course with its holes. The id may also be a slug.
func GetCourseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "course id is required")
		}
		course, err := deps.Courses.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(course)
	}
}

// CourseHolesHandler returns the ordered holes of a course.
func CourseHolesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "course id is required")
		}
		holes, err := deps.Courses.Holes(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		if holes == nil {
			holes = []domain.Hole{}
		}
		return c.JSON(holes)
	}
}

// CourseOverlaysHandler describes the overlays a map of the course would draw
// for the given user position and selection, without opening a session.
// GET /v1/courses/:id/overlays?lat=43.34&lon=-3.01&hole=4&guide=true
func CourseOverlaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "course id is required")
		}
		user := domain.GeoPoint{Lat: c.QueryFloat("lat", 0), Lon: c.QueryFloat("lon", 0)}
		if msg := checkPoint(user); msg != "" {
			return errBadRequest(c, msg)
		}

		var selected *int
		if raw := c.Query("hole"); raw != "" {
			n := c.QueryInt("hole", -1)
			if n < 0 {
				return errBadRequest(c, "hole must be a non-negative integer")
			}
			selected = &n
		}

		scene, err := deps.Sessions.Preview(c.UserContext(), id, user, selected, c.QueryBool("guide", false))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

// checkPoint returns a message when p is outside WGS 84 range.
func checkPoint(p domain.GeoPoint) string {
	if p.Lat < -90 || p.Lat > 90 {
		return "lat must be between -90 and 90"
	}
	if p.Lon < -180 || p.Lon > 180 {
		return "lon must be between -180 and 180"
	}
	return ""
}
