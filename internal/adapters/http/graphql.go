package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	teeBoxType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TeeBox",
		Fields: graphql.Fields{
			"location": &graphql.Field{Type: geoPointType},
			"name":     &graphql.Field{Type: graphql.String},
			"color":    &graphql.Field{Type: graphql.String},
		},
	})

	holeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Hole",
		Fields: graphql.Fields{
			"number":       &graphql.Field{Type: graphql.Int},
			"green_center": &graphql.Field{Type: geoPointType},
			"tee_boxes":    &graphql.Field{Type: graphql.NewList(teeBoxType)},
			"par":          &graphql.Field{Type: graphql.Int},
			"handicap":     &graphql.Field{Type: graphql.Int},
		},
	})

	courseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Course",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.String},
			"slug":  &graphql.Field{Type: graphql.String},
			"name":  &graphql.Field{Type: graphql.String},
			"holes": &graphql.Field{Type: graphql.NewList(holeType)},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"kind":        &graphql.Field{Type: graphql.String},
			"position":    &graphql.Field{Type: geoPointType},
			"title":       &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"color":       &graphql.Field{Type: graphql.String},
		},
	})

	guideLineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GuideLine",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"points":          &graphql.Field{Type: graphql.NewList(geoPointType)},
			"stroke_color":    &graphql.Field{Type: graphql.String},
			"stroke_width":    &graphql.Field{Type: graphql.Float},
			"dash_pattern":    &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"distance_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	sceneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scene",
		Fields: graphql.Fields{
			"markers":     &graphql.Field{Type: graphql.NewList(markerType)},
			"guide_lines": &graphql.Field{Type: graphql.NewList(guideLineType)},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapSession",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"course_id":       &graphql.Field{Type: graphql.String},
			"platform":        &graphql.Field{Type: graphql.String},
			"provider":        &graphql.Field{Type: graphql.String},
			"lifecycle":       &graphql.Field{Type: graphql.String},
			"user_location":   &graphql.Field{Type: geoPointType},
			"selected_hole":   &graphql.Field{Type: graphql.Int},
			"show_guide_line": &graphql.Field{Type: graphql.Boolean},
			"scene":           &graphql.Field{Type: sceneType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"courses": &graphql.Field{
				Type:        graphql.NewList(courseType),
				Description: "List all courses",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Courses.List(p.Context)
				},
			},
			"course": &graphql.Field{
				Type:        courseType,
				Description: "Get a course with its holes by id or slug",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Courses.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"mapScene": &graphql.Field{
				Type:        sceneType,
				Description: "Overlays a map of the course would draw for a player",
				Args: graphql.FieldConfigArgument{
					"course_id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"hole":            &graphql.ArgumentConfig{Type: graphql.Int},
					"show_guide_line": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					var selected *int
					if n, ok := p.Args["hole"].(int); ok {
						selected = &n
					}
					return deps.Sessions.Preview(p.Context, p.Args["course_id"].(string), user, selected, p.Args["show_guide_line"].(bool))
				},
			},
			"mapSession": &graphql.Field{
				Type:        sessionType,
				Description: "Snapshot of an open map session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Get(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
