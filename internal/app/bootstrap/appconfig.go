// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from config files, NAMAJTRACKER_* environment variables or
// command-line flags (see LoadConfig). Framework settings such as ports,
// TLS, log level and CORS live in WAFFLE's CoreConfig instead.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: namajtracker-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 720h)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// API key for the machine client surface under /api/v1.
	// Leave empty to disable that surface.
	APIKey          string
	APICORSOrigins  []string      // Origins allowed to call /api/v1; empty allows any
	LedgerAll       bool          // Record every /api/v1 request, not only failures
	LedgerRetention time.Duration // Age after which ledger entries are pruned (0 keeps them)

	// Base URL used to build the OAuth redirect URL
	BaseURL string // e.g., "https://mosque.example.org" or "http://localhost:8080"

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAuth   string        // Sign-in, sign-out, linking and profile events
	AuditLogAdmin  string        // Member role and status changes
	AuditRetention time.Duration // Age after which audit events are pruned (0 keeps them)

	// Google OAuth configuration
	GoogleClientID     string // Google OAuth2 client ID
	GoogleClientSecret string // Google OAuth2 client secret

	// Admin seeding configuration
	SeedAdminEmail string // Email of the member promoted to admin on startup (if set)
	SeedAdminName  string // Name used if that member has to be created

	// Attendance
	Timezone string         // IANA zone that decides which date "today" is
	Location *time.Location // Timezone, resolved by LoadConfig

	MetricsEnabled bool // Serve Prometheus metrics at /metrics
}
