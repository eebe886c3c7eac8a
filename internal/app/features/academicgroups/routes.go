// internal/app/features/academicgroups/routes.go
package academicgroups

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /academic-groups. authn is the bearer-token
// middleware; every route requires it.
func Routes(h *Handler, authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(authn)

		pr.Get("/", h.HandleList)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{groupId}", h.HandleGet)
		pr.Put("/{groupId}", h.HandleUpdate)
		pr.Put("/{groupId}/permissions", h.HandleUpdatePermissions)
		pr.Delete("/{groupId}", h.HandleDelete)

		// MEMBERSHIP
		pr.Post("/{groupId}/students/{studentId}", h.HandleAddStudent)
		pr.Delete("/{groupId}/students/{studentId}", h.HandleRemoveStudent)

		pr.Get("/{groupId}/lessons", h.HandleListLessons)
		pr.Post("/{groupId}/statistics/recompute", h.HandleRecomputeStatistics)
	})

	return r
}
