package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/SkySouL159/RMS/internal/config"
)

func contextFor(e *echo.Echo, target string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	// Routes are registered with a :grid parameter; simulate the match.
	c.SetPath("/v1/grids/:grid/rows")
	return c
}

func TestCacheKeyDistinguishesGrids(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "rms:cache", KeyStrategy: "route_query"}

	light := cacheKeyFrom(cfg, contextFor(e, "/v1/grids/lightbill/rows"))
	pay := cacheKeyFrom(cfg, contextFor(e, "/v1/grids/payment/rows"))
	if light == pay {
		t.Fatalf("cache keys collide across grids: %s", light)
	}

	// The same request must keep hashing to the same key.
	again := cacheKeyFrom(cfg, contextFor(e, "/v1/grids/lightbill/rows"))
	if light != again {
		t.Errorf("cache key unstable: %s vs %s", light, again)
	}
}

func TestCacheKeyDistinguishesQueries(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "rms:cache", KeyStrategy: "route_query"}

	plain := cacheKeyFrom(cfg, contextFor(e, "/v1/grids/lightbill/rows"))
	withQuery := cacheKeyFrom(cfg, contextFor(e, "/v1/grids/lightbill/rows?x=1"))
	if plain == withQuery {
		t.Error("cache key ignores the query string under route_query strategy")
	}
}
