// internal/app/features/academiclessons/routes.go
package academiclessons

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /academic-lessons. authn is the bearer-token
// middleware; every route requires it. When h.Posting is set, new chat
// messages and comments are rate limited per user.
func Routes(h *Handler, authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	posting := func(next http.Handler) http.Handler { return next }
	if h.Posting != nil {
		posting = h.Posting.Middleware(userKey)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authn)

		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.HandleGet)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)

		// LIFECYCLE
		pr.Put("/{id}/state", h.HandleUpdateState)
		pr.Post("/{id}/propose", h.HandlePropose)
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/reject", h.HandleReject)
		pr.Post("/{id}/grade", h.HandleGrade)
		pr.Post("/{id}/request-export", h.HandleRequestExport)

		// TEAM
		pr.Post("/{id}/members/invite", h.HandleInvite)
		pr.Post("/{id}/members/respond", h.HandleRespond)
		pr.Post("/{id}/leave", h.HandleLeave)
		pr.Delete("/{id}/members/{userId}", h.HandleRemoveMember)
		pr.Put("/{id}/leader", h.HandleTransferLeader)

		pr.Delete("/{id}/files/{fileId}", h.HandleDeleteFile)

		// DISCUSSION
		pr.Get("/{id}/chat", h.HandleListChat)
		pr.With(posting).Post("/{id}/chat", h.HandlePostChat)
		pr.Put("/{id}/chat/{messageId}", h.HandleEditChat)
		pr.Delete("/{id}/chat/{messageId}", h.HandleDeleteChat)

		pr.Get("/{id}/conversations", h.HandleListConversations)
		pr.Post("/{id}/conversations", h.HandleCreateConversation)
		pr.With(posting).Post("/{id}/conversations/{conversationId}/messages", h.HandlePostConversationMessage)
		pr.Put("/{id}/conversations/{conversationId}/messages/{messageId}", h.HandleEditConversationMessage)
		pr.Delete("/{id}/conversations/{conversationId}/messages/{messageId}", h.HandleDeleteConversationMessage)

		pr.With(posting).Post("/{id}/comments", h.HandlePostComment)
		pr.Put("/{id}/comments/{commentId}", h.HandleEditComment)
		pr.Delete("/{id}/comments/{commentId}", h.HandleDeleteComment)
	})

	return r
}
