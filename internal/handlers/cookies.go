package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/lojf/garage/internal/auth"
)

const sessionCookieName = "session"

func setSessionCookie(w http.ResponseWriter, tok *auth.Tokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    tok.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  tok.ExpiresAt,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// accessToken reads "Authorization: Bearer <token>" or the session cookie.
func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, found := strings.CutPrefix(h, "Bearer "); found {
			return strings.TrimSpace(t)
		}
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
