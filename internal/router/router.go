// Package router defines how HTTP routes are registered for the
// application: the two grid pages, the grid JSON API, the SSE change
// stream and the health check.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/SkySouL159/RMS/internal/config"
	"github.com/SkySouL159/RMS/internal/handler"
	"github.com/SkySouL159/RMS/internal/middleware"
)

// RegisterRoutes wires every route of the service onto the provided
// Echo instance. rdb may be nil, in which case the response cache and
// the rate limiter become pass-throughs.
func RegisterRoutes(e *echo.Echo, pages *handler.PageHandler, grids *handler.GridHandler, stream *handler.StreamHandler, rdb *redis.Client) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Server-rendered pages. The cache keeps repeated tab switches from
	// hammering the renderer; its TTL is a few seconds so realtime
	// reconciliations still show up promptly.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/", pages.Home)
	e.GET("/lightbill", pages.LightBill, cache)
	e.GET("/payment", pages.Payment, cache)

	// Grid JSON API, mirroring the presentation boundary of the grid
	// controllers.
	g := e.Group("/v1/grids/:grid")
	g.GET("/rows", grids.Rows, cache)
	g.GET("/rows/:id", grids.GetRow)
	g.POST("/edits", grids.BeginEdit)
	g.DELETE("/edits", grids.CancelEdit)

	// Commits PATCH the remote store; the token bucket caps how fast a
	// single client can burn the shared project quota.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	g.PUT("/rows/:id/cells/:column", grids.Commit, limit)

	// Per-grid SSE change stream (never cached).
	g.GET("/stream", stream.Stream)
}
