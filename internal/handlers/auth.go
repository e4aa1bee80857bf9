package handlers

import (
	"net/http"

	"github.com/apex/log"

	"github.com/lojf/garage/internal/auth"
)

// RequireSession is middleware: blocks access unless signed in.
func RequireSession(a *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := accessToken(r)
			if tok == "" {
				fail(w, r, auth.ErrInvalidToken)
				return
			}
			sess, err := a.Authenticate(r.Context(), tok)
			if err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /auth/signin
func SignIn(a *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in credentials
		if err := decode(r, &in); err != nil {
			fail(w, r, err)
			return
		}
		tok, err := a.SignIn(r.Context(), in.Email, in.Password)
		countSignIn(err)
		if err != nil {
			flashErr(r, "signin_failed", err)
			fail(w, r, err)
			return
		}
		setSessionCookie(w, tok)
		flashOK(r, "signed_in")
		reply(w, r, http.StatusOK, tok)
	}
}

// POST /auth/signout
func SignOut(a *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sess *auth.Session
		if tok := accessToken(r); tok != "" {
			sess, _ = a.Authenticate(r.Context(), tok)
		}
		if err := a.SignOut(r.Context(), sess); err != nil {
			flashErr(r, "signout_failed", err)
			fail(w, r, err)
			return
		}
		clearSessionCookie(w)
		flashOK(r, "signed_out")
		reply(w, r, http.StatusOK, nil)
	}
}

// POST /auth/refresh
func Refresh(a *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := decode(r, &in); err != nil {
			fail(w, r, err)
			return
		}
		tok, err := a.Refresh(r.Context(), in.RefreshToken)
		if err != nil {
			fail(w, r, err)
			return
		}
		setSessionCookie(w, tok)
		reply(w, r, http.StatusOK, tok)
	}
}

// GET /auth/session
func SessionInfo(w http.ResponseWriter, r *http.Request) {
	reply(w, r, http.StatusOK, auth.FromContext(r.Context()))
}

// POST /auth/forgot-password
func ForgotPassword(a *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if err := decode(r, &in); err != nil {
			fail(w, r, err)
			return
		}
		if err := a.RequestPasswordReset(r.Context(), in.Email); err != nil {
			flashErr(r, "reset_failed", err)
			fail(w, r, err)
			return
		}
		flashOK(r, "reset_sent")
		reply(w, r, http.StatusOK, nil)
	}
}

type passwordForm struct {
	Password string `json:"password"`
}

// POST /auth/reset-password?access_token=..&refresh_token=..&type=recovery
func ResetPassword(a *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in passwordForm
		if err := decode(r, &in); err != nil {
			fail(w, r, err)
			return
		}
		q := r.URL.Query()
		err := a.ResetPassword(r.Context(), q.Get("access_token"), q.Get("refresh_token"), q.Get("type"), in.Password)
		if err != nil {
			flashErr(r, "update_failed", err)
			fail(w, r, err)
			return
		}
		log.Info("password reset through recovery link")
		flashOK(r, "password_updated")
		reply(w, r, http.StatusOK, nil)
	}
}

// POST /auth/password
func UpdatePassword(a *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in passwordForm
		if err := decode(r, &in); err != nil {
			fail(w, r, err)
			return
		}
		if err := a.UpdatePassword(r.Context(), auth.FromContext(r.Context()), in.Password); err != nil {
			flashErr(r, "update_failed", err)
			fail(w, r, err)
			return
		}
		flashOK(r, "password_updated")
		reply(w, r, http.StatusOK, nil)
	}
}
