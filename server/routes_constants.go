package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Liveness
	RouteIndex = "/{$}"

	// Google login
	RouteGoogleLogin    = "/auth/google"
	RouteGoogleCallback = "/auth/google/callback"

	// Session
	RouteAuthLogout = "/auth/logout"
	RouteAuthMe     = "/auth/me"

	// Operations
	RouteMetrics = "/metrics"

	// Everything else, including CORS preflight
	RouteFallback = "/"
)
