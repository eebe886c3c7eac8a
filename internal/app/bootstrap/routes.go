// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	academicgroupsfeature "github.com/reddinamica/reddinamica/internal/app/features/academicgroups"
	academiclessonsfeature "github.com/reddinamica/reddinamica/internal/app/features/academiclessons"
	admintasksfeature "github.com/reddinamica/reddinamica/internal/app/features/admintasks"
	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	healthfeature "github.com/reddinamica/reddinamica/internal/app/features/health"
	notificationsfeature "github.com/reddinamica/reddinamica/internal/app/features/notifications"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every feature router except health and metrics
// sits behind the bearer-token middleware.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	if svc == nil || svc.Bus == nil {
		return nil, errors.New("build handler: services not started")
	}
	db := deps.MongoDatabase

	// Role and status are re-read from MongoDB on every request, so role
	// changes and disabled accounts take effect immediately.
	authn := auth.NewMiddleware(appCfg.JWTSecret, appCfg.JWTIssuer, userstore.NewFetcher(db), logger).Authenticate

	errLog := apierr.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators
	var cache redis.Cmdable
	if deps.Redis != nil {
		cache = deps.Redis
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, cache, logger)))
	r.Handle("/metrics", promhttp.Handler())

	// Academic groups
	groupsHandler := academicgroupsfeature.NewHandler(db, svc.Bus, svc.Audit, errLog, logger)
	r.Mount("/academic-groups", academicgroupsfeature.Routes(groupsHandler, authn))

	// Academic lessons: lifecycle, team, discussion
	lessonsHandler := academiclessonsfeature.NewHandler(db, svc.Bus, svc.Audit, svc.Metrics, errLog, logger)
	lessonsHandler.Posting = svc.Posting
	lessonsHandler.EditWindow = appCfg.EditWindow
	r.Mount("/academic-lessons", academiclessonsfeature.Routes(lessonsHandler, authn))

	// Export to the public catalog
	tasksHandler := admintasksfeature.NewHandler(svc.Exporter, errLog, logger)
	r.Mount("/admin/tasks", admintasksfeature.Routes(tasksHandler, authn))

	notificationsHandler := notificationsfeature.NewHandler(db, errLog, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, authn))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierr.NotFound(w, "Ruta no encontrada")
	})

	return r, nil
}
