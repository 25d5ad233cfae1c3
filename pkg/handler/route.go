package handler

// Route type
type Route string

const (
	// RouteRead serves the content of an object, ranged requests included
	RouteRead Route = "read"
	// RouteStat describes the requested locations
	RouteStat Route = "stat"
	// RouteList lists the entries below a directory
	RouteList Route = "list"
	// RouteWrite stores the request body as an object
	RouteWrite Route = "write"
	// RouteCopy copies an object
	RouteCopy Route = "copy"
	// RouteMove moves an object
	RouteMove Route = "move"
	// RouteDelete deletes an object or a directory
	RouteDelete  Route = "delete"
	RouteUnknown Route = "unknown"
)
