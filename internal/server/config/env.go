package config

import (
	"os"
	"strings"
	"time"
)

// parseEnv overlays Config fields from environment variables. The variable
// names follow the conventions of the hosted services this server fronts
// (SUPABASE_*, AUTH0_*), plus PORT for platform-assigned bind ports.
//
// Supported variables:
//
//	PORT                        bind port (expanded to ":{PORT}")
//	STORE_BACKEND               "rest" or "postgres"
//	SUPABASE_URL                REST backing store base URL
//	SUPABASE_SERVICE_ROLE_KEY   service-role key for outbound store calls
//	DATABASE_URL                PostgreSQL DSN for the "postgres" backend
//	AUTH0_DOMAIN                token issuer domain
//	AUTH0_AUDIENCE              expected token audience
//	REMOTE_TIMEOUT              backing-store call timeout, e.g. "5s"
func parseEnv(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.EndpointAddr = ":" + v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		config.StoreBackend = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		config.SupabaseURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); v != "" {
		config.SupabaseServiceKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("AUTH0_DOMAIN"); v != "" {
		config.Auth0Domain = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("AUTH0_AUDIENCE"); v != "" {
		config.Auth0Audience = v
	}
	if v := os.Getenv("REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.RemoteTimeout = d
		}
	}
}
