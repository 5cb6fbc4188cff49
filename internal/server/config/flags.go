package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/willcounter/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   store backend: "rest" or "postgres"
//	-u string   Supabase base URL
//	-k string   Supabase service-role key
//	-d string   PostgreSQL DSN (postgres backend only)
//	-m string   Auth0 domain
//	-q string   Auth0 audience
//	-t int      backing-store call timeout, seconds
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - The timeout flag is accepted as an integer in seconds and converted
//     to a time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-u", "-k", "-d", "-m", "-q", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend (rest|postgres)")
	fs.StringVar(&config.SupabaseURL, "u", config.SupabaseURL, "Supabase base URL")
	fs.StringVar(&config.SupabaseServiceKey, "k", config.SupabaseServiceKey, "Supabase service-role key")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Auth0Domain, "m", config.Auth0Domain, "Auth0 domain")
	fs.StringVar(&config.Auth0Audience, "q", config.Auth0Audience, "Auth0 audience")

	remoteTimeout := fs.Int("t", int(config.RemoteTimeout.Seconds()), "remote call timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RemoteTimeout = time.Duration(*remoteTimeout) * time.Second
}
