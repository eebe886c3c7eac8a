package admintasks

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /admin/tasks.
func Routes(h *Handler, authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(authn)
		pr.Post("/lecciones/{id}/mover-a-reddinamica", h.HandleExport)
	})
	return r
}
