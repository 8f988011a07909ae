package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jx-dohwan/devlog/internal/audit"
	"github.com/jx-dohwan/devlog/internal/auth"
)

// Maintainer prunes expired auth rows. Only the Postgres-backed session
// store needs this; Redis expires keys natively.
type Maintainer interface {
	Cleanup(ctx context.Context, batchSize int) (auth.CleanupResult, error)
}

func (a *API) handleAdminPostDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postID := chi.URLParam(r, "postId")
	if err := a.posts.Delete(r.Context(), principal, postID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.post.delete", map[string]any{
		"subject_id": principal.ID,
		"post_id":    postID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "post deleted"})
}

func (a *API) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	if a.maintainer == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	batchSize, _ := strconv.Atoi(r.URL.Query().Get("batchSize"))
	result, err := a.maintainer.Cleanup(r.Context(), batchSize)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
