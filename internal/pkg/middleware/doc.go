// Package middleware provides HTTP middleware for the equipment locator API.
//
// Available middleware:
//   - RateLimiter: per-client token bucket limiting
//   - CORS: permissive cross-origin headers for the kiosk front end
//   - RequestID: tags each request with an id the logger picks up
//   - Logging: one debug line per request with status and latency
//
// Usage:
//
//	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
//	defer rl.Stop()
//	handler = middleware.Chain(mux, rl.Middleware, middleware.CORS, middleware.RequestID)
package middleware
