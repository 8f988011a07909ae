package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jx-dohwan/devlog/internal/auth"
	"github.com/jx-dohwan/devlog/internal/obs"
	"github.com/jx-dohwan/devlog/internal/user"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. The response
// body stays generic; diagnostic detail goes to the log only.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		obs.Info("request forbidden", map[string]any{
			"path":   r.URL.Path,
			"detail": err.Error(),
		})
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		obs.Error("request failed", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return auth.ErrInvalidInput
	}
	return nil
}
