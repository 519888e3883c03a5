// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The remote data service owns persistence
// and realtime delivery; this process only needs its endpoint and the
// anon key used as the bearer credential.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	SupabaseURL     string        // remote data service endpoint (https://<project>.supabase.co)
	SupabaseAnonKey string        // anon key sent as apikey + bearer token
	HTTPTimeout     time.Duration // per-request timeout for store calls
	RealtimeEnabled bool          // subscribe to the change stream on startup
	AuditEnabled    bool          // publish/consume row-change audit events over the broker
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must(); a missing value
// exits with a fatal log message at startup rather than surfacing later
// as a failed first request.
func Load() Config {
	return Config{
		Env:             getenv("APP_ENV", "dev"),
		Port:            getenv("APP_PORT", "8080"),
		SupabaseURL:     must("SUPABASE_URL"),
		SupabaseAnonKey: must("SUPABASE_ANON_KEY"),
		HTTPTimeout:     parseDur(getenv("HTTP_TIMEOUT", "10s")),
		RealtimeEnabled: getenv("REALTIME_ENABLED", "true") == "true",
		AuditEnabled:    getenv("CHANGE_AUDIT_ENABLED", "false") == "true",
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
