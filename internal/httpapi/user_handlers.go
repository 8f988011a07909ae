package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jx-dohwan/devlog/internal/auth"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := a.users.Profile(r.Context(), principal.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.users.Profile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleUserRank(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	ranked, total, err := a.users.Ranking(r.Context(), page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	type entry struct {
		ID       string `json:"id"`
		Nickname string `json:"nickname"`
		Score    int64  `json:"score"`
		Rank     int64  `json:"rank"`
	}
	data := make([]entry, 0, len(ranked))
	for _, u := range ranked {
		data = append(data, entry{ID: u.ID, Nickname: u.Nickname, Score: u.Score, Rank: u.Rank})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"total": total,
	})
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}
