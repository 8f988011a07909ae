package httpapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/jx-dohwan/devlog/internal/auth"
)

const refreshCookieName = "refreshToken"

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9]{8,50}$`)
	hasLetter       = regexp.MustCompile(`[A-Za-z]`)
	hasDigit        = regexp.MustCompile(`[0-9]`)
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

func (in signUpRequest) validate() bool {
	if !emailPattern.MatchString(in.Email) {
		return false
	}
	if !passwordPattern.MatchString(in.Password) ||
		!hasLetter.MatchString(in.Password) || !hasDigit.MatchString(in.Password) {
		return false
	}
	if n := len([]rune(in.Nickname)); n < 2 || n > 20 {
		return false
	}
	return true
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !req.validate() {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}
	err := a.auth.SignUp(r.Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "sign-up completed"})
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	pair, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	a.setRefreshCookie(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": pair.AccessToken})
}

func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := a.auth.SignOut(r.Context(), principal.ID, token); err != nil {
		writeDomainError(w, r, err)
		return
	}
	a.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"message": "sign-out completed"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	pair, err := a.auth.RefreshTokens(r.Context(), cookie.Value)
	if err != nil {
		a.clearRefreshCookie(w)
		writeDomainError(w, r, err)
		return
	}
	a.setRefreshCookie(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": pair.AccessToken})
}

// setRefreshCookie stores the refresh token as an HTTP-only cookie so that
// scripts never see it. Outside local development the cookie is further
// locked down to HTTPS and same-site requests.
func (a *API) setRefreshCookie(w http.ResponseWriter, pair auth.TokenPair) {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		MaxAge:   int(time.Until(pair.RefreshExpiresAt) / time.Second),
		HttpOnly: true,
	}
	if !a.localEnv {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, cookie)
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
	if !a.localEnv {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, cookie)
}
