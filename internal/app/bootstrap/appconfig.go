// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (REDDINAMICA_*),
// configuration files, or command-line flags (loaded in LoadConfig).
// WAFFLE's CoreConfig covers the framework side: ports, TLS, logging level
// and request limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer-token verification. Tokens are issued by the platform login
	// service; this app only checks them.
	JWTSecret string
	JWTIssuer string // checked when non-empty

	// Optional Redis backing for the notification staff directory.
	// Blank RedisAddr disables Redis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DirectoryCacheTTL time.Duration
	NotifyWorkers     int

	// Author edit window for chat messages, conversation messages and
	// comments.
	EditWindow time.Duration

	// Posting limit per user on chat, conversation and comment endpoints.
	PostsPerWindow int
	PostWindow     time.Duration

	// Reconciliation tasks
	ReconcileSchedule  string
	ExportPendingGrace time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAcademic string
	AuditLogAdmin    string

	// Timeout overrides; zero keeps the default.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
