package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.BaseMiddleware(s.SessionContextMiddleware)...))

	// GOOGLE LOGIN
	// Every outcome here is a redirect, so the session is attached but the
	// response is left alone; the callback replaces any old session itself.
	s.RegisterRouteHandler("GET "+RouteGoogleLogin, ChainMiddleware(s.GoogleLoginHandler(), s.BaseMiddleware(s.CorsMiddleware, s.SessionContextMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteGoogleCallback, ChainMiddleware(s.GoogleCallbackHandler(), s.BaseMiddleware(s.CorsMiddleware, s.SessionContextMiddleware)...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession)...))
	// POST only: a cross-site GET (an <img> tag) must not end the session.
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// OPERATIONS
	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.metrics.Handler().ServeHTTP, s.BaseMiddleware(s.SessionContextMiddleware)...))

	// Unknown routes, and CORS preflight for every route above
	s.RegisterRouteHandler(RouteFallback, ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
}

var _ http.Handler = (*Server)(nil)
