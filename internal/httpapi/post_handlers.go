package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jx-dohwan/devlog/internal/auth"
	"github.com/jx-dohwan/devlog/internal/post"
)

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (a *API) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	created, err := a.posts.Create(r.Context(), principal, post.CreateInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handlePostGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.posts.Get(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePostList(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	posts, meta, err := a.posts.List(r.Context(), page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if posts == nil {
		posts = []post.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": posts,
		"meta": meta,
	})
}

func (a *API) handlePostUpdate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	updated, err := a.posts.Update(r.Context(), principal, chi.URLParam(r, "postId"), post.CreateInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := a.posts.Delete(r.Context(), principal, chi.URLParam(r, "postId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "post deleted"})
}
