// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// minProdSecretLen is the shortest HS256 key accepted in prod.
const minProdSecretLen = 32

// appConfigKeys defines the configuration keys for RedDinámica.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: REDDINAMICA_MONGO_URI, REDDINAMICA_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "reddinamica", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 key used to verify bearer tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "", Desc: "Expected token issuer (blank disables the check)"},

	// Redis (optional)
	{Name: "redis_addr", Default: "", Desc: "Redis address for the staff directory cache (blank disables Redis)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Notifications
	{Name: "directory_cache_ttl", Default: "1m", Desc: "How long the staff recipient list is cached"},
	{Name: "notify_workers", Default: 8, Desc: "Concurrent notification handler slots"},

	// Lesson collaboration
	{Name: "edit_window", Default: "30m", Desc: "How long an author may edit or delete their message or comment"},
	{Name: "posts_per_window", Default: 30, Desc: "Chat, message and comment posts allowed per user per post_window"},
	{Name: "post_window", Default: "1m", Desc: "Window for posts_per_window"},

	// Reconciliation tasks
	{Name: "reconcile_schedule", Default: "@every 15m", Desc: "Cron spec for statistics and export reconciliation"},
	{Name: "export_pending_grace", Default: "5m", Desc: "Age before a pending catalog export is recovered"},

	// Audit logging settings
	{Name: "audit_log_academic", Default: "all", Desc: "Lesson and group event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Export event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeout overrides
	{Name: "timeout_short", Default: "", Desc: "Single-document operation timeout (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "List and transition timeout (e.g., 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Cascade and export timeout (e.g., 30s)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, REDDINAMICA_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "REDDINAMICA", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		RedisAddr:     strings.TrimSpace(appValues.String("redis_addr")),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		DirectoryCacheTTL: appValues.Duration("directory_cache_ttl", time.Minute),
		NotifyWorkers:     appValues.Int("notify_workers"),

		EditWindow:     appValues.Duration("edit_window", 30*time.Minute),
		PostsPerWindow: appValues.Int("posts_per_window"),
		PostWindow:     appValues.Duration("post_window", time.Minute),

		ReconcileSchedule:  strings.TrimSpace(appValues.String("reconcile_schedule")),
		ExportPendingGrace: appValues.Duration("export_pending_grace", 5*time.Minute),

		AuditLogAcademic: appValues.String("audit_log_academic"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// It catches a malformed MongoDB URI or cron spec before anything connects,
// and refuses to run prod with the development token key.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return errors.New("mongo_database must be set")
	}

	if err := validateJWTSecret(coreCfg.Env, appCfg.JWTSecret); err != nil {
		return err
	}

	if appCfg.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(appCfg.ReconcileSchedule); err != nil {
			return fmt.Errorf("invalid reconcile_schedule %q: %w", appCfg.ReconcileSchedule, err)
		}
	}

	if appCfg.EditWindow <= 0 {
		return errors.New("edit_window must be positive")
	}
	if appCfg.PostsPerWindow < 1 || appCfg.PostWindow <= 0 {
		return errors.New("posts_per_window and post_window must be positive")
	}

	for key, v := range map[string]string{
		"audit_log_academic": appCfg.AuditLogAcademic,
		"audit_log_admin":    appCfg.AuditLogAdmin,
	} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	return nil
}

func validateJWTSecret(env, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("jwt_secret must be set")
	}
	if env != "prod" {
		return nil
	}
	if secret == devJWTSecret {
		return errors.New("jwt_secret still has the development default")
	}
	if len(secret) < minProdSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d bytes in prod", minProdSecretLen)
	}
	return nil
}
