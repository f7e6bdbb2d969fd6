// Package middleware provides HTTP middleware for the diagnostics server.
//
//   - CORS: read-only cross-origin access for dashboards
//   - RateLimit: per-IP token bucket rate limiting with idle client eviction
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
