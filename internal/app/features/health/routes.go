// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes mounts under /health. It is public: load balancers call it
// without a token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
