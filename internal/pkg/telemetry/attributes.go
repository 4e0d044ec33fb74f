package telemetry

// Span attribute keys for map session operations.
const (
	AttrSessionID = "map.session_id"
	AttrCourseID  = "map.course_id"
	AttrPlatform  = "map.platform"
	AttrProvider  = "map.provider"
	AttrMarkers   = "map.markers"
)
