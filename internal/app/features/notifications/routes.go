package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /notifications.
func Routes(h *Handler, authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(authn)
		pr.Get("/", h.HandleList)
		pr.Post("/{id}/read", h.HandleMarkRead)
	})
	return r
}
