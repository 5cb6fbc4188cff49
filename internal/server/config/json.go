package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/willcounter/internal/flagx"
	"github.com/dmitrijs2005/willcounter/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its non-empty fields are copied
// into the runtime Config.
type JsonConfig struct {
	EndpointAddr       string         `json:"endpoint_addr"`
	StoreBackend       string         `json:"store_backend"`
	SupabaseURL        string         `json:"supabase_url"`
	SupabaseServiceKey string         `json:"supabase_service_key"`
	DatabaseDSN        string         `json:"database_dsn"`
	Auth0Domain        string         `json:"auth0_domain"`
	Auth0Audience      string         `json:"auth0_audience"`
	RemoteTimeout      timex.Duration `json:"remote_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config
// command-line flags; if neither is set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics:
// a requested-but-broken config file is a deployment error, not a runtime
// condition to absorb.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.StoreBackend != "" {
		config.StoreBackend = c.StoreBackend
	}
	if c.SupabaseURL != "" {
		config.SupabaseURL = c.SupabaseURL
	}
	if c.SupabaseServiceKey != "" {
		config.SupabaseServiceKey = c.SupabaseServiceKey
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.Auth0Domain != "" {
		config.Auth0Domain = c.Auth0Domain
	}
	if c.Auth0Audience != "" {
		config.Auth0Audience = c.Auth0Audience
	}
	if c.RemoteTimeout != 0 {
		config.RemoteTimeout = c.RemoteTimeout.Unwrap()
	}
}
